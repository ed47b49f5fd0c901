package models_test

import (
	"testing"

	"github.com/numeri/numeri/proxy/pkg/models"
)

func TestParseEditRequest_ImageFieldPriority(t *testing.T) {
	body := `{"image":"c2Vjb25k","imageBase64":"Zmlyc3Q=","prompt":"x"}`
	req, err := models.ParseEditRequest([]byte(body), "")
	if err != nil {
		t.Fatalf("ParseEditRequest() error = %v", err)
	}
	if req.Image != "Zmlyc3Q=" {
		t.Errorf("Image = %q, want imageBase64 to win", req.Image)
	}
}

func TestParseEditRequest_AcceptsAlternateImageFields(t *testing.T) {
	for _, field := range []string{"imageBase64", "image", "file", "attachment"} {
		body := `{"` + field + `":"aGVsbG8="}`
		req, err := models.ParseEditRequest([]byte(body), "")
		if err != nil {
			t.Fatalf("ParseEditRequest(%s) error = %v", field, err)
		}
		if !req.HasImage() {
			t.Errorf("field %q not recognized as image", field)
		}
	}
}

func TestParseEditRequest_StripsDataURIPrefix(t *testing.T) {
	body := `{"imageBase64":"data:image/png;base64,aGVsbG8="}`
	req, err := models.ParseEditRequest([]byte(body), "")
	if err != nil {
		t.Fatalf("ParseEditRequest() error = %v", err)
	}
	if req.Image != "aGVsbG8=" {
		t.Errorf("Image = %q, want prefix stripped", req.Image)
	}
}

func TestParseEditRequest_DataKeys(t *testing.T) {
	body := `{"currentData":[{"id":1}],"salesData":[],"imageDataBase64":"x","metadata":{"a":1},"prompt":"q"}`
	req, err := models.ParseEditRequest([]byte(body), "")
	if err != nil {
		t.Fatalf("ParseEditRequest() error = %v", err)
	}

	// currentData, salesData and metadata contain "data"; the base64 key
	// is excluded.
	if req.DataKeyCount() != 3 {
		t.Errorf("DataKeyCount() = %d, want 3: %v", req.DataKeyCount(), req.Datasets)
	}
	if _, ok := req.Datasets["imageDataBase64"]; ok {
		t.Error("base64-bearing key must not count as a dataset")
	}
}

func TestParseEditRequest_TextPromptFallback(t *testing.T) {
	req, err := models.ParseEditRequest([]byte(`{"text_prompt":"halo"}`), "")
	if err != nil {
		t.Fatalf("ParseEditRequest() error = %v", err)
	}
	if req.Prompt != "halo" {
		t.Errorf("Prompt = %q, want text_prompt fallback", req.Prompt)
	}

	// prompt wins over text_prompt when both are set.
	req, err = models.ParseEditRequest([]byte(`{"prompt":"a","text_prompt":"b"}`), "")
	if err != nil {
		t.Fatalf("ParseEditRequest() error = %v", err)
	}
	if req.Prompt != "a" {
		t.Errorf("Prompt = %q, want %q", req.Prompt, "a")
	}
}

func TestParseEditRequest_RecordsSize(t *testing.T) {
	body := []byte(`{"prompt":"hi"}`)
	req, err := models.ParseEditRequest(body, "")
	if err != nil {
		t.Fatalf("ParseEditRequest() error = %v", err)
	}
	if req.Size != len(body) {
		t.Errorf("Size = %d, want %d", req.Size, len(body))
	}
}

func TestStripDataURI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"data:image/jpeg;base64,abc123", "abc123"},
		{"abc123", "abc123"},
		{"data:weird-no-marker", "data:weird-no-marker"},
	}
	for _, tt := range tests {
		if got := models.StripDataURI(tt.in); got != tt.want {
			t.Errorf("StripDataURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
