package config

import (
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	AuthEnabled bool
	DatabaseURL string

	// AI provider
	AIProvider    string // "gemini", "ollama" or "auto"
	GeminiApiKey  string
	GeminiModel   string
	OllamaBaseURL string
	OllamaModel   string

	// Speech to text (Whisper-compatible endpoint)
	TranscribeBaseURL  string
	TranscribeAPIKey   string
	TranscribeModel    string
	TranscribeLanguage string

	// Google Calendar
	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenFile    string
	CalendarID         string
	EventTimezone      string

	// Todoist
	TodoistAPIToken  string
	TodoistBaseURL   string
	TodoistProjectID string

	// Pipeline
	StageTimeout       time.Duration
	DispatchMaxRetries int
	DispatchBackoff    time.Duration
	LabelDedup         bool
	RateLimitPerMinute int

	// Pub/Sub voice jobs and push replies
	GoogleProjectID     string
	GooglePubSubTopic   string
	GoogleCredentials   string
	FirebaseCredentials string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		AuthEnabled: getEnvBool("AUTH_ENABLED", true),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		AIProvider:    getEnv("AI_PROVIDER", "auto"),
		GeminiApiKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),

		TranscribeBaseURL:  getEnv("TRANSCRIBE_BASE_URL", "https://api.openai.com/v1"),
		TranscribeAPIKey:   getEnv("TRANSCRIBE_API_KEY", ""),
		TranscribeModel:    getEnv("TRANSCRIBE_MODEL", "whisper-1"),
		TranscribeLanguage: getEnv("TRANSCRIBE_LANGUAGE", "it"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleTokenFile:    getEnv("GOOGLE_TOKEN_FILE", "token.json"),
		CalendarID:         getEnv("CALENDAR_ID", "primary"),
		EventTimezone:      getEnv("EVENT_TIMEZONE", "Europe/Rome"),

		TodoistAPIToken:  getEnv("TODOIST_API_TOKEN", ""),
		TodoistBaseURL:   getEnv("TODOIST_BASE_URL", "https://api.todoist.com/rest/v2"),
		TodoistProjectID: getEnv("TODOIST_PROJECT_ID", ""),

		StageTimeout:       getEnvDuration("STAGE_TIMEOUT", 30*time.Second),
		DispatchMaxRetries: getEnvInt("DISPATCH_MAX_RETRIES", 2),
		DispatchBackoff:    getEnvDuration("DISPATCH_BACKOFF", 500*time.Millisecond),
		LabelDedup:         getEnvBool("LABEL_DEDUP", true),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),

		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", ""),
		GoogleCredentials:   getEnv("GOOGLE_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
	}
}

// Validate checks the settings the command pipeline cannot run without.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.By(validPort)),
		validation.Field(&c.AIProvider, validation.Required, validation.In("gemini", "ollama", "auto")),
		validation.Field(&c.EventTimezone, validation.Required, validation.By(validTimezone)),
		validation.Field(&c.StageTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.DispatchMaxRetries, validation.Min(0), validation.Max(2)),
		validation.Field(&c.RateLimitPerMinute, validation.Min(0)),
		validation.Field(&c.JWTSecret, validation.When(c.AuthEnabled, validation.Required)),
	)
}

// Location returns the fixed timezone events are created in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.EventTimezone)
}

func validPort(value interface{}) error {
	s, _ := value.(string)
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return validation.NewError("validation_port", "must be a port number between 1 and 65535")
	}
	return nil
}

func validTimezone(value interface{}) error {
	s, _ := value.(string)
	if _, err := time.LoadLocation(s); err != nil {
		return validation.NewError("validation_timezone", "must be a valid IANA timezone")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
