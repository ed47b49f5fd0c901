// Package normalize shapes free-form model output into the canonical
// response envelope. Providers frequently wrap their JSON in markdown fences
// or surrounding prose; the parsing strategy here is fence-strip, then
// direct parse, then bracket-scan substring parse, then fail loudly. All
// functions are pure and deterministic.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/numeri/numeri/proxy/pkg/models"
)

// ParseError indicates the text could not be coerced into JSON after
// fence-stripping and substring extraction. Treated as a provider failure.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no valid JSON found in model response: %s", e.Reason)
}

// StructureError indicates the parsed JSON lacked the required content
// array. Treated like a parse error.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("model response missing required structure: %s", e.Reason)
}

// envelopeFields is the loose shape the model is instructed to return.
type envelopeFields struct {
	Filename    string       `json:"filename"`
	Content     []models.Row `json:"content"`
	Explanation string       `json:"explanation"`
}

// Normalize converts raw model text into a complete envelope. A bare JSON
// array is accepted as the content field. Missing filename and explanation
// are filled with fixed defaults so the envelope is always complete.
func Normalize(raw string) (*models.Envelope, error) {
	data, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	env := &models.Envelope{}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var rows []models.Row
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, &StructureError{Reason: "top-level array is not an array of objects"}
		}
		env.Content = rows
	} else {
		var fields envelopeFields
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, &StructureError{Reason: "content field is not an array of objects"}
		}
		if fields.Content == nil {
			return nil, &StructureError{Reason: `missing "content" array`}
		}
		env.Filename = fields.Filename
		env.Content = fields.Content
		env.Explanation = fields.Explanation
	}

	if env.Filename == "" {
		env.Filename = models.DefaultFilename
	}
	if strings.TrimSpace(env.Explanation) == "" {
		env.Explanation = models.DefaultExplanation
	}
	return env, nil
}

// ExtractJSON locates the JSON document inside raw model text. It strips
// markdown code fences, attempts a direct parse, and falls back to the
// substring between the first opening bracket and the matching last closing
// bracket. No further heuristics are applied.
func ExtractJSON(raw string) ([]byte, error) {
	text := StripFences(raw)
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Reason: "empty response"}
	}

	if json.Valid([]byte(text)) {
		return []byte(text), nil
	}

	sub, ok := bracketSpan(text)
	if !ok {
		return nil, &ParseError{Reason: "no JSON object or array delimiters"}
	}
	if !json.Valid([]byte(sub)) {
		return nil, &ParseError{Reason: "extracted substring is not valid JSON"}
	}
	return []byte(sub), nil
}

// StripFences removes markdown code-fence markers (``` and ```json) from
// the text, leaving the fenced body intact.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.Contains(text, "```") {
		return text
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// bracketSpan returns the substring from the first { or [ to the last
// matching } or ].
func bracketSpan(text string) (string, bool) {
	objStart := strings.IndexByte(text, '{')
	arrStart := strings.IndexByte(text, '[')

	start := objStart
	closer := byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		closer = ']'
	}
	if start < 0 {
		return "", false
	}

	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}
