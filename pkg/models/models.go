// Package models defines the wire types shared across the Numeri agent proxy:
// dataset rows, the inbound edit request, and the canonical response envelope.
package models

import (
	"encoding/json"
	"strings"
)

// ── Dataset ─────────────────────────────────────────────────

// Row is one dataset entry. Fields are open-ended; the "id" field, when
// present, is the row's immutable identity and survives every proxy edit.
type Row map[string]any

// IdentityField is the conventional name of the row identity field.
const IdentityField = "id"

// ── Routes ──────────────────────────────────────────────────

// Route identifies which adapter serves a classified request.
type Route string

const (
	RouteCrossAgent Route = "cross-agent"
	RouteVision     Route = "vision"
	RouteLogic      Route = "logic"
	RouteNone       Route = ""
)

// TargetAgentHeader is the header a client sets to force the cross-agent route.
const TargetAgentHeader = "X-Target-Agent"

// TargetAskOrchestrate is the recognized sentinel value for TargetAgentHeader.
const TargetAskOrchestrate = "AskOrchestrate"

// imageFields are the accepted body keys for a base64 image payload, in the
// order they are checked.
var imageFields = []string{"imageBase64", "image", "file", "attachment"}

// ── Edit Request ────────────────────────────────────────────

// EditRequest is the transient, single-use value object built from one
// POST /api/agent call. It is constructed per request, handed to exactly one
// adapter, and discarded once the response is written.
type EditRequest struct {
	// CurrentData is the client-held dataset, if any.
	CurrentData []Row

	// Prompt is the natural-language instruction. The router may synthesize
	// a default instruction for vision requests that arrive without one.
	Prompt string

	// Image is the base64 image payload with any data-URI prefix stripped.
	Image string

	// TargetAgent is the raw value of the X-Target-Agent header.
	TargetAgent string

	// Datasets holds every body field whose name contains "data" (but not
	// "base64"), keyed by field name, for cross-file reasoning.
	Datasets map[string]json.RawMessage

	// Size is the serialized size of the request body in bytes.
	Size int
}

// editRequestBody mirrors the documented JSON body fields.
type editRequestBody struct {
	CurrentData []Row  `json:"currentData"`
	Prompt      string `json:"prompt"`
	TextPrompt  string `json:"text_prompt"`
	ImageBase64 string `json:"imageBase64"`
	Image       string `json:"image"`
	File        string `json:"file"`
	Attachment  string `json:"attachment"`
}

// ParseEditRequest decodes a request body into an EditRequest. The body is
// decoded twice: once into the documented fields and once into a raw map so
// that dataset-bearing keys the schema does not name are still visible to
// the cross-file route.
func ParseEditRequest(body []byte, targetAgent string) (*EditRequest, error) {
	var fields editRequestBody
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	req := &EditRequest{
		CurrentData: fields.CurrentData,
		Prompt:      fields.Prompt,
		TargetAgent: strings.TrimSpace(targetAgent),
		Datasets:    make(map[string]json.RawMessage),
		Size:        len(body),
	}
	if req.Prompt == "" {
		req.Prompt = fields.TextPrompt
	}

	// First populated image field wins.
	for _, f := range imageFields {
		var v string
		switch f {
		case "imageBase64":
			v = fields.ImageBase64
		case "image":
			v = fields.Image
		case "file":
			v = fields.File
		case "attachment":
			v = fields.Attachment
		}
		if v != "" {
			req.Image = StripDataURI(v)
			break
		}
	}

	for k, v := range raw {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "data") && !strings.Contains(lower, "base64") {
			req.Datasets[k] = v
		}
	}

	return req, nil
}

// HasImage reports whether an image payload is present.
func (r *EditRequest) HasImage() bool { return r.Image != "" }

// DataKeyCount returns the number of dataset-bearing body keys.
func (r *EditRequest) DataKeyCount() int { return len(r.Datasets) }

// StripDataURI removes a "data:...;base64," prefix from a base64 payload.
// Payloads without a prefix are returned unchanged.
func StripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ";base64,"); i >= 0 {
		return s[i+len(";base64,"):]
	}
	return s
}

// ── Response Envelope ───────────────────────────────────────

// Default envelope values filled in when the model omits a field.
const (
	DefaultFilename    = "transactions_updated.json"
	DefaultExplanation = "Pemrosesan selesai."
)

// Envelope is the canonical proxy response, returned regardless of which
// adapter served the request. Content is always an array, even on partial
// failure, and Explanation is never empty.
type Envelope struct {
	Filename    string `json:"filename"`
	Content     []Row  `json:"content"`
	Explanation string `json:"explanation"`
}

// ErrorBody is the error response shape. Details is only populated outside
// production deployments.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
