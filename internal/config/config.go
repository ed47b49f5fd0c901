package config

import (
	"fmt"
	"os"
	"strconv"
)

// Provider selects which backend serves the logic and vision routes.
const (
	ProviderWatsonx = "watsonx"
	ProviderGemini  = "gemini"
)

// Config holds all configuration for the Numeri agent proxy.
type Config struct {
	Port        int
	Version     string
	Environment string
	Provider    string
	IBM         IBMConfig
	Orchestrate OrchestrateConfig
	Gemini      GeminiConfig
	Telemetry   TelemetryConfig
}

// IBMConfig names the watsonx connection details. Endpoints are validated at
// startup rather than discovered empirically at request time.
type IBMConfig struct {
	APIKey    string
	ProjectID string
	Region    string
	Host      string
	IAMURL    string
	// AllowKeyFallback enables the degraded mode where adapters use the raw
	// API key as the bearer value when the IAM exchange fails.
	AllowKeyFallback bool
	// VisionTwoStage runs vision requests as an OCR pass followed by a
	// structuring pass instead of a single multimodal call.
	VisionTwoStage bool
}

type OrchestrateConfig struct {
	BaseURL    string
	InstanceID string
	AgentID    string
}

type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:        envInt("PORT", 8080),
		Version:     envStr("NUMERI_VERSION", "0.4.0"),
		Environment: envStr("APP_ENV", "production"),
		Provider:    envStr("PROVIDER", ProviderWatsonx),
		IBM: IBMConfig{
			APIKey:           envStr("IBM_CLOUD_API_KEY", ""),
			ProjectID:        envStr("IBM_PROJECT_ID", ""),
			Region:           envStr("IBM_REGION", "us-south"),
			Host:             envStr("IBM_WATSONX_HOST", "ml.cloud.ibm.com"),
			IAMURL:           envStr("IBM_IAM_URL", "https://iam.cloud.ibm.com/identity/token"),
			AllowKeyFallback: envBool("IBM_ALLOW_KEY_FALLBACK", false),
			VisionTwoStage:   envBool("VISION_TWO_STAGE", false),
		},
		Orchestrate: OrchestrateConfig{
			BaseURL:    envStr("ORCHESTRATE_BASE_URL", ""),
			InstanceID: envStr("ORCHESTRATE_INSTANCE_ID", ""),
			AgentID:    envStr("ORCHESTRATE_AGENT_ID", ""),
		},
		Gemini: GeminiConfig{
			APIKey:      envStr("GEMINI_API_KEY", ""),
			BaseURL:     envStr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			Model:       envStr("GEMINI_MODEL", "gemini-2.0-flash"),
			VisionModel: envStr("GEMINI_VISION_MODEL", "gemini-2.0-flash"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "numeri-agent-proxy"),
		},
	}
}

// Validate checks that the selected provider has the credentials it needs.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderWatsonx:
		if c.IBM.APIKey == "" {
			return fmt.Errorf("IBM_CLOUD_API_KEY is required when PROVIDER=%s", ProviderWatsonx)
		}
		if c.IBM.ProjectID == "" {
			return fmt.Errorf("IBM_PROJECT_ID is required when PROVIDER=%s", ProviderWatsonx)
		}
		if c.IBM.Region == "" || c.IBM.Host == "" {
			return fmt.Errorf("IBM_REGION and IBM_WATSONX_HOST must be set")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when PROVIDER=%s", ProviderGemini)
		}
	default:
		return fmt.Errorf("unknown PROVIDER %q (expected %s or %s)", c.Provider, ProviderWatsonx, ProviderGemini)
	}
	return nil
}

// Production reports whether internal error detail should be withheld from
// API responses.
func (c *Config) Production() bool {
	return c.Environment != "development"
}

// WatsonxURL builds the text-generation endpoint for the configured region.
func (c *IBMConfig) WatsonxURL() string {
	return fmt.Sprintf("https://%s.%s/ml/v1/text/generation?version=2023-05-29", c.Region, c.Host)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
