package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"pantry-intake/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	GCSBucket       string

	GoogleCredentialsFile string
	SourceSheetID         string
	ResponseSheetName     string
	GuidelinesSheetID     string
	SlidesTemplateID      string
	OutputFolderID        string
	SheetsBackend         string
	SheetsRPS             float64
	ResponsesCSV          string
	GuidelinesCSV         string

	Renderer         string
	DocxTemplatePath string
	GotenbergURL     string
	DocxBarcodeImage string

	SequenceBackend string
	BadgerDir       string

	IntakeQueueURL string
	WebhookToken   string
	PollInterval   time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	TimeZone  string
	RulesFile string
	Tracing   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Env:      env,
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		GCSBucket:       getEnv("GCS_BUCKET", ""),

		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		SourceSheetID:         getEnv("SOURCE_SHEET_ID", ""),
		ResponseSheetName:     getEnv("RESPONSE_SHEET_NAME", "Form Responses 1"),
		GuidelinesSheetID:     getEnv("GUIDELINES_SHEET_ID", ""),
		SlidesTemplateID:      getEnv("SLIDES_TEMPLATE_ID", ""),
		OutputFolderID:        getEnv("OUTPUT_FOLDER_ID", ""),
		SheetsBackend:         normalizeChoice(getEnv("SHEETS_BACKEND", "csv"), "csv", "google"),
		SheetsRPS:             getEnvFloat("SHEETS_RPS", 1),
		ResponsesCSV:          getEnv("RESPONSES_CSV", "./data/responses.csv"),
		GuidelinesCSV:         getEnv("GUIDELINES_CSV", "./data/guidelines.csv"),

		Renderer:         normalizeChoice(getEnv("RENDERER", "docx"), "docx", "slides"),
		DocxTemplatePath: getEnv("DOCX_TEMPLATE_PATH", "./templates/intake.docx"),
		GotenbergURL:     getEnv("GOTENBERG_URL", "http://localhost:3000"),
		DocxBarcodeImage: getEnv("DOCX_BARCODE_IMAGE", "word/media/image1.png"),

		SequenceBackend: normalizeChoice(getEnv("SEQUENCE_BACKEND", "memory"), "memory", "postgres", "badger"),
		BadgerDir:       getEnv("BADGER_DIR", "./data/sequence"),

		IntakeQueueURL: getEnv("INTAKE_QUEUE_URL", ""),
		WebhookToken:   getEnv("WEBHOOK_TOKEN", ""),
		PollInterval:   getEnvDuration("POLL_INTERVAL", time.Minute),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		TimeZone:  getEnv("TZ_NAME", "America/New_York"),
		RulesFile: getEnv("INTAKE_RULES_FILE", ""),
		Tracing:   normalizeChoice(getEnv("TRACING", "off"), "off", "stdout"),
	}
}

// Location resolves the configured time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		telemetry.Warn("config.timezone_invalid", map[string]any{"tz": c.TimeZone, "error": err})
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "gcs":
		return "gcs"
	default:
		return "local"
	}
}

// normalizeChoice returns raw lowercased when it is one of allowed, else the first allowed value.
func normalizeChoice(raw string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return allowed[0]
}
