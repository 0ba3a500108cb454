package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server      ServerConfig      `toml:"server"`      // HTTP server settings
	Logging     LoggingConfig     `toml:"logging"`     // Application logging settings
	Storage     StorageConfig     `toml:"storage"`     // Data persistence settings
	Uploads     UploadsConfig     `toml:"uploads"`     // Uploaded audio scratch directory settings
	Recognition RecognitionConfig `toml:"recognition"` // Speech-to-text provider settings
	Summarizer  SummarizerConfig  `toml:"summarizer"`  // Language-model summarization settings
	Trello      TrelloConfig      `toml:"trello"`      // Task-tracker provider settings
	LiveKit     LiveKitConfig     `toml:"livekit"`     // Video-room token provider settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type       string `toml:"type"`        // Storage backend type (currently only "sqlite" is supported)
	SQLitePath string `toml:"sqlite_path"` // Path to the SQLite database file
}

// UploadsConfig contains settings for the uploaded-audio working directory
type UploadsConfig struct {
	BaseDir        string `toml:"base_dir"`        // Directory where uploaded audio files are written before transcription
	TranscriptsDir string `toml:"transcripts_dir"` // Directory where raw recognition JSON artifacts are written
	MaxSizeMB      int    `toml:"max_size_mb"`     // Maximum accepted upload size in megabytes
}

// RecognitionConfig contains settings for the speech-to-text provider
type RecognitionConfig struct {
	APIKey         string `toml:"api_key"`         // Deepgram API key (falls back to DEEPGRAM_API_KEY)
	BaseURL        string `toml:"base_url"`        // Base URL for the recognition API. Defaults to https://api.deepgram.com
	Model          string `toml:"model"`           // Recognition model to use (e.g., "general")
	Tier           string `toml:"tier"`            // Recognition tier (e.g., "nova")
	MimeType       string `toml:"mime_type"`       // MIME type sent with uploaded audio (e.g., "audio/mp3")
	TimeoutSeconds int    `toml:"timeout_seconds"` // HTTP timeout for recognition requests in seconds
}

// SummarizerConfig contains settings for the language-model provider
type SummarizerConfig struct {
	APIKey         string   `toml:"api_key"`         // OpenAI API key (falls back to OPENAI_API_KEY)
	Model          string   `toml:"model"`           // Chat model to use (e.g., "gpt-4o-mini")
	Temperature    *float64 `toml:"temperature"`     // Sampling temperature (0.0-2.0). Defaults to 0.7 when unset; an explicit 0.0 is respected
	TimeoutSeconds int      `toml:"timeout_seconds"` // HTTP timeout for chat completion requests in seconds
}

// TrelloConfig contains settings for the task-tracker provider
type TrelloConfig struct {
	APIKey         string `toml:"api_key"`         // Trello API key (falls back to TRELLO_API_KEY)
	Token          string `toml:"token"`           // Trello member token (falls back to TRELLO_TOKEN)
	ListID         string `toml:"list_id"`         // Board list cards are created in (falls back to TRELLO_LIST_ID)
	AILabelID      string `toml:"ai_label_id"`     // Label applied to machine-created cards (falls back to TRELLO_AI_LABEL_ID)
	BaseURL        string `toml:"base_url"`        // Base URL for the Trello API. Defaults to https://api.trello.com
	TimeoutSeconds int    `toml:"timeout_seconds"` // HTTP timeout for card creation requests in seconds
}

// LiveKitConfig contains settings for the video-room token provider
type LiveKitConfig struct {
	APIKey        string `toml:"api_key"`         // LiveKit API key (falls back to LIVEKIT_API_KEY)
	APISecret     string `toml:"api_secret"`      // LiveKit API secret (falls back to LIVEKIT_API_SECRET)
	ServerURL     string `toml:"server_url"`      // LiveKit server URL used to build meeting links (falls back to LIVEKIT_SERVER_URL)
	TokenTTLHours int    `toml:"token_ttl_hours"` // Access token lifetime in hours
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnvOverlay()

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// Load .env if present so credential fallbacks are available
	_ = godotenv.Load()

	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// applyEnvOverlay fills empty credential fields from environment variables
func (c *Config) applyEnvOverlay() {
	fromEnv := func(current *string, key string) {
		if *current == "" {
			*current = os.Getenv(key)
		}
	}

	fromEnv(&c.Recognition.APIKey, "DEEPGRAM_API_KEY")
	fromEnv(&c.Summarizer.APIKey, "OPENAI_API_KEY")
	fromEnv(&c.Trello.APIKey, "TRELLO_API_KEY")
	fromEnv(&c.Trello.Token, "TRELLO_TOKEN")
	fromEnv(&c.Trello.ListID, "TRELLO_LIST_ID")
	fromEnv(&c.Trello.AILabelID, "TRELLO_AI_LABEL_ID")
	fromEnv(&c.LiveKit.APIKey, "LIVEKIT_API_KEY")
	fromEnv(&c.LiveKit.APISecret, "LIVEKIT_API_SECRET")
	fromEnv(&c.LiveKit.ServerURL, "LIVEKIT_SERVER_URL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Validate storage config
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("invalid storage type: %s (only 'sqlite' is supported)", c.Storage.Type)
	}
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required when storage type is sqlite")
	}

	// Validate uploads config
	if err := c.ValidateUploads(); err != nil {
		return err
	}

	// Validate provider configs
	if err := c.ValidateProviders(); err != nil {
		return err
	}

	// Warn on missing credentials for configured features
	c.WarnMissingCredentials()

	return nil
}

// ValidateUploads validates the uploads configuration and applies defaults
func (c *Config) ValidateUploads() error {
	if c.Uploads.BaseDir == "" {
		c.Uploads.BaseDir = "uploads"
	}
	if c.Uploads.TranscriptsDir == "" {
		c.Uploads.TranscriptsDir = "uploads/transcripts"
	}
	if c.Uploads.MaxSizeMB <= 0 {
		c.Uploads.MaxSizeMB = 100
	}
	return nil
}

// ValidateProviders validates provider settings and applies endpoint defaults
func (c *Config) ValidateProviders() error {
	if c.Recognition.BaseURL == "" {
		c.Recognition.BaseURL = "https://api.deepgram.com"
	}
	if c.Recognition.Model == "" {
		c.Recognition.Model = "general"
	}
	if c.Recognition.Tier == "" {
		c.Recognition.Tier = "nova"
	}
	if c.Recognition.MimeType == "" {
		c.Recognition.MimeType = "audio/mp3"
	}
	if c.Recognition.TimeoutSeconds <= 0 {
		c.Recognition.TimeoutSeconds = 120
	}

	if c.Summarizer.Model == "" {
		c.Summarizer.Model = "gpt-4o-mini"
	}
	if c.Summarizer.Temperature == nil {
		defaultTemp := 0.7
		c.Summarizer.Temperature = &defaultTemp
	}
	if *c.Summarizer.Temperature < 0 || *c.Summarizer.Temperature > 2 {
		return fmt.Errorf("invalid summarizer temperature: %f", *c.Summarizer.Temperature)
	}
	if c.Summarizer.TimeoutSeconds <= 0 {
		c.Summarizer.TimeoutSeconds = 120
	}

	if c.Trello.BaseURL == "" {
		c.Trello.BaseURL = "https://api.trello.com"
	}
	if c.Trello.TimeoutSeconds <= 0 {
		c.Trello.TimeoutSeconds = 30
	}

	if c.LiveKit.TokenTTLHours <= 0 {
		c.LiveKit.TokenTTLHours = 1
	}
	if c.LiveKit.ServerURL == "" {
		c.LiveKit.ServerURL = "wss://your-livekit-server.com"
	}

	return nil
}

// WarnMissingCredentials prints warnings for absent provider credentials.
// Missing keys do not fail startup; the dependent operations return
// credentials-missing errors instead.
func (c *Config) WarnMissingCredentials() {
	if c.Recognition.APIKey == "" {
		fmt.Printf("WARN: No Deepgram API key provided - audio transcription will be disabled\n")
	}
	if c.Summarizer.APIKey == "" {
		fmt.Printf("WARN: No OpenAI API key provided - meeting summarization will be disabled\n")
	}
	if c.Trello.APIKey == "" || c.Trello.Token == "" || c.Trello.ListID == "" {
		fmt.Printf("WARN: Trello credentials incomplete - task export will be disabled\n")
	}
	if c.LiveKit.APIKey == "" || c.LiveKit.APISecret == "" {
		fmt.Printf("WARN: LiveKit credentials missing - room token issuing will be disabled\n")
	}
}
