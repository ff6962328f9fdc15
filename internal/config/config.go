package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort         string
	AppBaseURL      string
	FrontendBaseURL string
	CORSOrigins     string
	LogLevel        string

	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret     string
	JWTExpiresMin int
	CookieSecure  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GoogleClientID string
	GoogleSecret   string
	GoogleRedirect string

	SMTPAddr     string
	SMTPHost     string
	SMTPFrom     string
	SMTPPassword string

	Storage StorageConfig
	Profile ProfileRules
}

type StorageConfig struct {
	Driver        string // local | s3
	UploadDir     string
	PublicBaseURL string
	S3Bucket      string
}

// ProfileRules mirrors models.CompletenessRules; kept here so config has no model import.
type ProfileRules struct {
	MinTitle          int
	MinBio            int
	MinEducations     int
	MinSkills         int
	MinLanguages      int
	MinPortfolioItems int
}

func Load() Config {
	return Config{
		AppPort:         get("APP_PORT", "8080"),
		AppBaseURL:      get("APP_BASE_URL", "http://localhost:8080"),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),
		CORSOrigins:     get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),
		LogLevel:        get("LOG_LEVEL", "info"),

		DBDSN:             must("DB_DSN"),
		DBMaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		JWTSecret:     must("JWT_SECRET"),
		JWTExpiresMin: getInt("JWT_EXPIRES_MIN", 10080),
		CookieSecure:  getBool("COOKIE_SECURE", false),

		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		GoogleClientID: get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:   get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect: get("GOOGLE_REDIRECT_URL", ""),

		SMTPAddr:     get("SMTP_ADDRESS", ""),
		SMTPHost:     get("SMTP_HOST", ""),
		SMTPFrom:     get("FROM_EMAIL", ""),
		SMTPPassword: get("FROM_EMAIL_PASSWORD", ""),

		Storage: StorageConfig{
			Driver:        strings.ToLower(get("STORAGE_DRIVER", "local")),
			UploadDir:     get("UPLOAD_DIR", "./uploads"),
			PublicBaseURL: get("STORAGE_PUBLIC_BASE_URL", "/uploads"),
			S3Bucket:      get("S3_BUCKET", ""),
		},
		Profile: ProfileRules{
			MinTitle:          getInt("PROFILE_MIN_TITLE", 5),
			MinBio:            getInt("PROFILE_MIN_BIO", 50),
			MinEducations:     getInt("PROFILE_MIN_EDUCATIONS", 1),
			MinSkills:         getInt("PROFILE_MIN_SKILLS", 2),
			MinLanguages:      getInt("PROFILE_MIN_LANGUAGES", 1),
			MinPortfolioItems: getInt("PROFILE_MIN_PORTFOLIO_ITEMS", 1),
		},
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.JWTExpiresMin <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_MIN must be positive"))
	}
	if c.DBMaxIdleConns > c.DBMaxOpenConns {
		errs = append(errs, errors.New("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS"))
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3"))
		}
	default:
		errs = append(errs, errors.New("STORAGE_DRIVER must be local or s3"))
	}
	p := c.Profile
	for _, v := range []int{p.MinTitle, p.MinBio, p.MinEducations, p.MinSkills, p.MinLanguages, p.MinPortfolioItems} {
		if v < 0 {
			errs = append(errs, errors.New("PROFILE_MIN_* values cannot be negative"))
			break
		}
	}
	return errors.Join(errs...)
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func getInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}
