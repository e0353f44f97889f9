package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed alerts.yaml
var alertsYAML []byte

type Config struct {
	Storage     StorageConfig
	Recognition RecognitionConfig
	Embedding   EmbeddingConfig
	OpenAI      OpenAIConfig
	Gemini      GeminiConfig
	Admin       AdminConfig
	Alerts      AlertsConfig
}

type StorageConfig struct {
	DataDir string // base directory for collection files, faces/ and trash/ (default ./data)
}

type RecognitionConfig struct {
	Threshold float64 // max cosine distance for a match (default 0.60)
}

type EmbeddingConfig struct {
	URL string // face embedding service base URL, defaults to http://localhost:8000
	Dim int    // expected embedding dimensionality, defaults to 128
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type AdminConfig struct {
	Key string // X-Admin-Key value required for destructive operations
}

// AlertsConfig holds alert ledger tuning. Defaults come from the embedded
// alerts.yaml and can be overridden per deployment with env vars.
type AlertsConfig struct {
	Cap            int     `yaml:"cap"`
	ShiftThreshold float64 `yaml:"shift_threshold"`
}

type alertsFile struct {
	Alerts AlertsConfig `yaml:"alerts"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var alerts alertsFile
	if err := yaml.Unmarshal(alertsYAML, &alerts); err != nil {
		// Embedded file, so this should never happen in practice.
		panic("failed to unmarshal embedded alerts.yaml: " + err.Error())
	}

	return &Config{
		Storage: StorageConfig{
			DataDir: envString("DATA_DIR", "data"),
		},
		Recognition: RecognitionConfig{
			Threshold: envFloat("THRESHOLD", 0.60),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 128),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Admin: AdminConfig{
			Key: os.Getenv("ADMIN_KEY"),
		},
		Alerts: AlertsConfig{
			Cap:            envInt("ALERT_CAP", alerts.Alerts.Cap),
			ShiftThreshold: envFloat("ALERT_SHIFT_THRESHOLD", alerts.Alerts.ShiftThreshold),
		},
	}
}

// AdminKeyRequired reports whether destructive operations must present an
// admin key. The placeholder value "changeme" disables the check, matching
// the behavior operators expect from a fresh install.
func (c *AdminConfig) AdminKeyRequired() bool {
	return c.Key != "" && c.Key != "changeme"
}
