package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/numeri/numeri/proxy/internal/iam"
	"github.com/numeri/numeri/proxy/pkg/contracts"
	"github.com/numeri/numeri/proxy/pkg/models"

	"github.com/rs/zerolog/log"
)

// Model identifiers for the watsonx text-generation endpoint.
const (
	watsonxLogicModel  = "ibm/granite-3-8b-instruct"
	watsonxVisionModel = "meta-llama/llama-3-2-90b-instruct-vision-001"
)

// WatsonxClient wraps the watsonx /ml/v1/text/generation endpoint.
type WatsonxClient struct {
	url       string
	projectID string
	tokens    contracts.TokenSource
	// apiKey is used as the bearer value directly when the IAM exchange
	// fails and keyFallback is enabled (degraded-but-functional mode).
	apiKey      string
	keyFallback bool
	client      *http.Client
}

// NewWatsonxClient creates a watsonx client for the given generation URL.
func NewWatsonxClient(url, projectID string, tokens contracts.TokenSource, apiKey string, keyFallback bool) *WatsonxClient {
	return &WatsonxClient{
		url:         url,
		projectID:   projectID,
		tokens:      tokens,
		apiKey:      apiKey,
		keyFallback: keyFallback,
		client:      &http.Client{Timeout: callTimeout},
	}
}

type watsonxParameters struct {
	DecodingMethod string  `json:"decoding_method"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	MinNewTokens   int     `json:"min_new_tokens"`
	Temperature    float64 `json:"temperature"`
}

type watsonxRequest struct {
	ModelID    string            `json:"model_id"`
	Input      string            `json:"input"`
	Parameters watsonxParameters `json:"parameters"`
	ProjectID  string            `json:"project_id"`
}

type watsonxResponse struct {
	Results []struct {
		GeneratedText string `json:"generated_text"`
	} `json:"results"`
}

// bearer resolves the credential for an outbound call: a cached/fresh IAM
// token, or the raw API key when fallback is enabled and the exchange fails.
func (c *WatsonxClient) bearer(ctx context.Context) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err == nil {
		return token, nil
	}

	var authErr *iam.AuthError
	if errors.As(err, &authErr) && c.keyFallback && c.apiKey != "" {
		log.Warn().Err(err).Msg("IAM exchange failed, falling back to raw API key")
		return c.apiKey, nil
	}
	return "", err
}

// generate sends one text-generation request and returns the generated text.
func (c *WatsonxClient) generate(ctx context.Context, modelID, input string, params watsonxParameters) (string, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(watsonxRequest{
		ModelID:    modelID,
		Input:      input,
		Parameters: params,
		ProjectID:  c.projectID,
	})
	if err != nil {
		return "", fmt.Errorf("watsonx: marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("watsonx: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &Error{Provider: "watsonx", Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", &Error{Provider: "watsonx", Status: httpResp.StatusCode, Body: string(respBody)}
	}

	var wxResp watsonxResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&wxResp); err != nil {
		return "", &Error{Provider: "watsonx", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(wxResp.Results) == 0 {
		return "", &Error{Provider: "watsonx", Err: fmt.Errorf("response has no results")}
	}

	log.Debug().
		Str("model", modelID).
		Dur("duration", time.Since(start)).
		Msg("watsonx generation complete")

	return wxResp.Results[0].GeneratedText, nil
}

// ── Logic Adapter ───────────────────────────────────────────

// WatsonxLogic serves the logic route: dataset + instruction in, full
// updated dataset out. Greedy decoding keeps edits deterministic.
type WatsonxLogic struct {
	client *WatsonxClient
}

func NewWatsonxLogic(client *WatsonxClient) *WatsonxLogic {
	return &WatsonxLogic{client: client}
}

func (a *WatsonxLogic) Name() string { return "watsonx-logic" }

func (a *WatsonxLogic) Run(ctx context.Context, req *models.EditRequest) (string, error) {
	return a.client.generate(ctx, watsonxLogicModel, logicPrompt(req), watsonxParameters{
		DecodingMethod: "greedy",
		MaxNewTokens:   4096,
		MinNewTokens:   50,
		Temperature:    0.1,
	})
}

// ── Vision Adapter ──────────────────────────────────────────

// WatsonxVision serves the vision route. In single-call mode the multimodal
// model extracts and structures the transaction in one pass; in two-stage
// mode an OCR pass feeds a separate structuring pass on the logic model.
type WatsonxVision struct {
	client   *WatsonxClient
	twoStage bool
}

func NewWatsonxVision(client *WatsonxClient, twoStage bool) *WatsonxVision {
	return &WatsonxVision{client: client, twoStage: twoStage}
}

func (a *WatsonxVision) Name() string { return "watsonx-vision" }

func (a *WatsonxVision) Run(ctx context.Context, req *models.EditRequest) (string, error) {
	visionParams := watsonxParameters{
		DecodingMethod: "sampling",
		MaxNewTokens:   4096,
		MinNewTokens:   50,
		Temperature:    0.3,
	}

	if !a.twoStage {
		return a.client.generate(ctx, watsonxVisionModel, visionPrompt(req), visionParams)
	}

	transcript, err := a.client.generate(ctx, watsonxVisionModel, ocrPrompt(req), visionParams)
	if err != nil {
		return "", err
	}

	return a.client.generate(ctx, watsonxLogicModel, structurePrompt(req, transcript), watsonxParameters{
		DecodingMethod: "greedy",
		MaxNewTokens:   4096,
		MinNewTokens:   50,
		Temperature:    0.1,
	})
}
