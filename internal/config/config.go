package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage"    validate:"required"`
	Sync       SyncConfig       `mapstructure:"sync"       validate:"required"`
	Study      StudyConfig      `mapstructure:"study"      validate:"required"`
	Generation GenerationConfig `mapstructure:"generation"`
}

// ServerConfig contains the local status endpoint settings.
type ServerConfig struct {
	// StatusAddr is the listen address of the local status API.
	StatusAddr string `mapstructure:"status_addr" validate:"required"`
	LogLevel   string `mapstructure:"log_level"   validate:"required,oneof=debug info warn error"`
}

// StorageConfig contains the embedded database settings.
type StorageConfig struct {
	// Path is the SQLite database file location.
	Path string `mapstructure:"path" validate:"required"`
}

// SyncConfig contains the sync engine and transport settings. An empty
// ServerURL runs the app purely local: mutations still queue in the
// outbox and drain once a server is configured.
type SyncConfig struct {
	ServerURL             string `mapstructure:"server_url"              validate:"omitempty,url"`
	IntervalSeconds       int    `mapstructure:"interval_seconds"        validate:"required,gt=0"`
	RetryCeiling          int    `mapstructure:"retry_ceiling"           validate:"required,gt=0"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`
	ProbeIntervalSeconds  int    `mapstructure:"probe_interval_seconds"  validate:"required,gt=0"`
}

// StudyConfig contains study queue defaults.
type StudyConfig struct {
	// CardsPerSession caps how many due cards a session pulls at once.
	CardsPerSession int `mapstructure:"cards_per_session" validate:"required,gt=0"`
	// NewCardsPerDay caps how many unseen cards enter the queue per day.
	NewCardsPerDay int `mapstructure:"new_cards_per_day" validate:"required,gt=0"`
}

// GenerationConfig contains AI card drafting settings. The group is
// optional; an empty API key disables drafting entirely.
type GenerationConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	ModelName         string `mapstructure:"model_name"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// Enabled reports whether AI drafting is configured.
func (c GenerationConfig) Enabled() bool {
	return c.GeminiAPIKey != ""
}
