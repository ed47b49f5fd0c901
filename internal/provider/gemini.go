package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/numeri/numeri/proxy/pkg/models"
)

// GeminiClient wraps the Gemini generateContent API. Authentication is a
// plain API key in the query string; no token exchange is involved.
type GeminiClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGeminiClient creates a Gemini client for the given base URL.
func NewGeminiClient(baseURL, apiKey string) *GeminiClient {
	return &GeminiClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: callTimeout},
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate sends one generateContent request and concatenates the text parts
// of the first candidate.
func (c *GeminiClient) generate(ctx context.Context, model string, parts []geminiPart) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, model, url.QueryEscape(c.apiKey))

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &Error{Provider: "gemini", Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", &Error{Provider: "gemini", Status: httpResp.StatusCode, Body: string(respBody)}
	}

	var gResp geminiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&gResp); err != nil {
		return "", &Error{Provider: "gemini", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(gResp.Candidates) == 0 {
		return "", &Error{Provider: "gemini", Err: fmt.Errorf("response has no candidates")}
	}

	var buf bytes.Buffer
	for _, p := range gResp.Candidates[0].Content.Parts {
		buf.WriteString(p.Text)
	}
	return buf.String(), nil
}

// ── Logic Adapter ───────────────────────────────────────────

// GeminiLogic serves the logic route on Gemini, using the same structured
// prompt as the watsonx logic adapter.
type GeminiLogic struct {
	client *GeminiClient
	model  string
}

func NewGeminiLogic(client *GeminiClient, model string) *GeminiLogic {
	return &GeminiLogic{client: client, model: model}
}

func (a *GeminiLogic) Name() string { return "gemini-logic" }

func (a *GeminiLogic) Run(ctx context.Context, req *models.EditRequest) (string, error) {
	return a.client.generate(ctx, a.model, []geminiPart{{Text: logicPrompt(req)}})
}

// ── Vision Adapter ──────────────────────────────────────────

// GeminiVision serves the vision route on Gemini. The image travels as an
// inline_data part rather than embedded in the prompt text.
type GeminiVision struct {
	client *GeminiClient
	model  string
}

func NewGeminiVision(client *GeminiClient, model string) *GeminiVision {
	return &GeminiVision{client: client, model: model}
}

func (a *GeminiVision) Name() string { return "gemini-vision" }

func (a *GeminiVision) Run(ctx context.Context, req *models.EditRequest) (string, error) {
	// The prompt text omits the base64 payload; Gemini receives the image
	// as a proper multimodal part.
	textOnly := *req
	textOnly.Image = "(attached)"

	return a.client.generate(ctx, a.model, []geminiPart{
		{Text: visionPrompt(&textOnly)},
		{InlineData: &geminiInlineData{MimeType: "image/jpeg", Data: req.Image}},
	})
}
