package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `json:"server"`
	LLM     LLMConfig     `json:"llm"`
	Carrier CarrierConfig `json:"carrier"`
	Storage StorageConfig `json:"storage"`
	Media   MediaConfig   `json:"media"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int    `json:"port"`
	PublicBaseURL string `json:"public_base_url"`
}

// LLMConfig holds configuration for the inference backend
type LLMConfig struct {
	Provider string       `json:"provider"`
	OpenAI   OpenAIConfig `json:"openai"`
}

// OpenAIConfig holds specific configuration for the OpenAI integration.
// An empty APIKey disables inference-backed replies instead of failing
// startup.
type OpenAIConfig struct {
	APIKey         string `json:"api_key"`
	Model          string `json:"model"`
	VisionModel    string `json:"vision_model"`
	MaxTokens      int    `json:"max_tokens"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// CarrierConfig holds credentials for the WhatsApp carrier (Twilio-style
// REST API plus authenticated media URLs).
type CarrierConfig struct {
	AccountSID     string  `json:"account_sid"`
	AuthToken      string  `json:"auth_token"`
	FromNumber     string  `json:"from_number"`
	APIBase        string  `json:"api_base"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	SendsPerSecond float64 `json:"sends_per_second"`
}

// StorageConfig holds configuration for the interaction store
type StorageConfig struct {
	DatabasePath string `json:"database_path"`
}

// MediaConfig holds bounds for media normalization and compression
type MediaConfig struct {
	MaxUploadMB         int    `json:"max_upload_mb"`
	MaxEdgePixels       int    `json:"max_edge_pixels"`
	JPEGQuality         int    `json:"jpeg_quality"`
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds"`
	DebugDir            string `json:"debug_dir"`
}

// MaxUploadBytes returns the upload size bound in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMB) << 20
}

// LoadConfig loads configuration from a JSON file, applying defaults for
// anything the file leaves out and environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := DefaultConfig()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	applyEnv(config)
	return config, nil
}

// DefaultConfig returns a default configuration with environment overrides
// applied.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		LLM: LLMConfig{
			Provider: "openai",
			OpenAI: OpenAIConfig{
				Model:          "gpt-4o-mini",
				VisionModel:    "gpt-4o-mini",
				MaxTokens:      400,
				TimeoutSeconds: 60,
			},
		},
		Carrier: CarrierConfig{
			APIBase:        "https://api.twilio.com",
			TimeoutSeconds: 20,
			SendsPerSecond: 1,
		},
		Storage: StorageConfig{
			DatabasePath: "./data/agricagent.db",
		},
		Media: MediaConfig{
			MaxUploadMB:         15,
			MaxEdgePixels:       1600,
			JPEGQuality:         82,
			FetchTimeoutSeconds: 20,
		},
	}
	applyEnv(cfg)
	return cfg
}

// applyEnv overlays secrets and deployment settings from the environment,
// matching the env variables the hosted deployments already use.
func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Carrier.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Carrier.AuthToken = v
	}
	if v := os.Getenv("TWILIO_PHONE_NUMBER"); v != "" {
		cfg.Carrier.FromNumber = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.Server.PublicBaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}
