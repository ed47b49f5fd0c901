package normalize_test

import (
	"errors"
	"testing"

	"github.com/numeri/numeri/proxy/internal/normalize"
	"github.com/numeri/numeri/proxy/pkg/models"
)

const bareEnvelope = `{"filename":"out.json","content":[{"id":1,"desc":"abc"}],"explanation":"Selesai."}`

func TestNormalize_DirectJSON(t *testing.T) {
	env, err := normalize.Normalize(bareEnvelope)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if env.Filename != "out.json" {
		t.Errorf("Filename = %q, want %q", env.Filename, "out.json")
	}
	if len(env.Content) != 1 {
		t.Fatalf("Content has %d rows, want 1", len(env.Content))
	}
	if env.Explanation != "Selesai." {
		t.Errorf("Explanation = %q, want %q", env.Explanation, "Selesai.")
	}
}

// Fenced, prose-wrapped, and bare renditions of the same JSON must all
// normalize to the same envelope.
func TestNormalize_ExtractionRobustness(t *testing.T) {
	variants := map[string]string{
		"bare":        bareEnvelope,
		"fenced":      "```json\n" + bareEnvelope + "\n```",
		"plain_fence": "```\n" + bareEnvelope + "\n```",
		"prose":       "Here is the updated dataset:\n" + bareEnvelope + "\nLet me know if you need anything else.",
	}

	for name, raw := range variants {
		t.Run(name, func(t *testing.T) {
			env, err := normalize.Normalize(raw)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if env.Filename != "out.json" || len(env.Content) != 1 || env.Explanation != "Selesai." {
				t.Errorf("variant %q normalized differently: %+v", name, env)
			}
		})
	}
}

func TestNormalize_BareArrayBecomesContent(t *testing.T) {
	env, err := normalize.Normalize(`[{"id":1},{"id":2}]`)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(env.Content) != 2 {
		t.Errorf("Content has %d rows, want 2", len(env.Content))
	}
}

func TestNormalize_FillsDefaults(t *testing.T) {
	env, err := normalize.Normalize(`{"content":[]}`)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if env.Filename != models.DefaultFilename {
		t.Errorf("Filename = %q, want default %q", env.Filename, models.DefaultFilename)
	}
	if env.Explanation != models.DefaultExplanation {
		t.Errorf("Explanation = %q, want default %q", env.Explanation, models.DefaultExplanation)
	}
	if env.Content == nil {
		t.Error("Content must be a non-nil array")
	}
}

func TestNormalize_ParseError(t *testing.T) {
	for _, raw := range []string{"", "no json here at all", "{broken", "```\n```"} {
		_, err := normalize.Normalize(raw)
		var parseErr *normalize.ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("Normalize(%q) error = %v, want ParseError", raw, err)
		}
	}
}

func TestNormalize_StructureError(t *testing.T) {
	for _, raw := range []string{
		`{"explanation":"no content field"}`,
		`{"content":"not an array"}`,
		`[1,2,3]`,
	} {
		_, err := normalize.Normalize(raw)
		var structErr *normalize.StructureError
		if !errors.As(err, &structErr) {
			t.Errorf("Normalize(%q) error = %v, want StructureError", raw, err)
		}
	}
}

func TestStripFences(t *testing.T) {
	got := normalize.StripFences("```json\n{\"a\":1}\n```")
	if got != `{"a":1}` {
		t.Errorf("StripFences() = %q", got)
	}

	// Unfenced text passes through.
	if got := normalize.StripFences("plain"); got != "plain" {
		t.Errorf("StripFences(plain) = %q", got)
	}
}

func TestExtractJSON_PrefersObjectSpan(t *testing.T) {
	raw := `The result {"content":[{"id":1}]} as requested`
	data, err := normalize.ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON() error = %v", err)
	}
	if string(data) != `{"content":[{"id":1}]}` {
		t.Errorf("ExtractJSON() = %s", data)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := "noise " + bareEnvelope + " noise"
	first, err := normalize.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	second, err := normalize.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if first.Filename != second.Filename || first.Explanation != second.Explanation || len(first.Content) != len(second.Content) {
		t.Errorf("Normalize() not deterministic: %+v vs %+v", first, second)
	}
}
