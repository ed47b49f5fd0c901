package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/numeri/numeri/proxy/pkg/contracts"
	"github.com/numeri/numeri/proxy/pkg/models"
)

// Orchestrate serves the cross-agent route: free-form or multi-dataset
// questions delegated to a stateful watsonx Orchestrate agent. Its output is
// explanatory text, not necessarily a revised dataset; the router echoes the
// original dataset when no revision comes back.
type Orchestrate struct {
	baseURL    string
	instanceID string
	agentID    string
	tokens     contracts.TokenSource
	client     *http.Client
}

// NewOrchestrate creates the cross-agent adapter.
func NewOrchestrate(baseURL, instanceID, agentID string, tokens contracts.TokenSource) *Orchestrate {
	return &Orchestrate{
		baseURL:    strings.TrimRight(baseURL, "/"),
		instanceID: instanceID,
		agentID:    agentID,
		tokens:     tokens,
		client:     &http.Client{Timeout: callTimeout},
	}
}

func (a *Orchestrate) Name() string { return "orchestrate" }

type orchestrateMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type orchestrateRequest struct {
	Message orchestrateMessage `json:"message"`
	AgentID string             `json:"agent_id"`
}

func (a *Orchestrate) Run(ctx context.Context, req *models.EditRequest) (string, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(orchestrateRequest{
		Message: orchestrateMessage{Role: "user", Content: crossAgentPrompt(req)},
		AgentID: a.agentID,
	})
	if err != nil {
		return "", fmt.Errorf("orchestrate: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/instances/%s/v1/orchestrate/runs", a.baseURL, a.instanceID)

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("orchestrate: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return "", &Error{Provider: "orchestrate", Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", &Error{Provider: "orchestrate", Err: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", &Error{Provider: "orchestrate", Status: httpResp.StatusCode, Body: string(respBody)}
	}

	return extractAgentText(respBody), nil
}

// extractAgentText pulls the answer text out of an Orchestrate run response.
// The run API has varied its envelope across releases, so the known shapes
// are tried in order; an unrecognized body is returned verbatim for the
// normalizer/router to handle.
func extractAgentText(body []byte) string {
	var run struct {
		Output struct {
			Text string `json:"text"`
		} `json:"output"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &run); err == nil {
		switch {
		case run.Output.Text != "":
			return run.Output.Text
		case run.Message.Content != "":
			return run.Message.Content
		case len(run.Choices) > 0 && run.Choices[0].Message.Content != "":
			return run.Choices[0].Message.Content
		case run.Result != "":
			return run.Result
		}
	}
	return string(body)
}
