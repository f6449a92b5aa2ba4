// Package config reads process configuration from the environment. An optional
// .env file in the working directory is loaded first; real environment
// variables win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	liststrings "licensing/pkg/platform/strings"
)

// Config is the full service configuration.
type Config struct {
	Server    Server
	Auth      Auth
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Mongo     MongoConfig
	Midtrans  MidtransConfig
	License   LicenseConfig
	Exam      ExamConfig
	Photo     PhotoConfig
	RateLimit RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	// TrustProxyHeaders takes the client IP from X-Forwarded-For/X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// Auth configures staff tokens.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	TokenTTL      time.Duration
	// RequireAuth rejects unauthenticated calls to every non-public route.
	RequireAuth bool
	// BootstrapAdminEmail, when set with a password, is created as an admin at
	// startup if no staff member holds that email yet.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// PostgresConfig selects the SQL store. Empty DSN means in-memory stores.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// RedisConfig configures the photo cache and distributed rate limiting.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the notification publisher.
type KafkaConfig struct {
	Brokers   []string
	Topic     string
	ClientID  string
	BatchSize int
	Interval  time.Duration
}

// MongoConfig configures the GridFS photo store.
type MongoConfig struct {
	URI      string
	Database string
	Bucket   string
}

// MidtransConfig configures the payment gateway. Empty ServerKey disables it.
type MidtransConfig struct {
	ServerKey  string
	Production bool
}

// LicenseConfig carries issuance and artifact parameters.
type LicenseConfig struct {
	Jurisdiction   string
	ValidityYears  int
	InitialPoints  int
	DefaultClass   string
	Authority      string
	QRSigningKey   string
	NumberAttempts int
}

// ExamConfig carries grading and exam-window parameters.
type ExamConfig struct {
	PassThreshold int
	OpensBefore   time.Duration
	ClosesAfter   time.Duration
}

// PhotoConfig bounds remote photo fetching.
type PhotoConfig struct {
	FetchTimeout time.Duration
	MaxBytes     int64
	CacheTTL     time.Duration
	// AllowedHosts, when non-empty, is the only set of hosts photos are
	// fetched from.
	AllowedHosts []string
	// AllowPrivateNetworks permits loopback, private and link-local targets.
	AllowPrivateNetworks bool
}

// RateLimitConfig bounds write requests per client IP.
type RateLimitConfig struct {
	Disabled bool
	Limit    int
	Window   time.Duration
}

// FromEnv builds the configuration so main stays lean.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Server: Server{
			Addr:            getEnv("LICENSING_ADDR", ":8080"),
			RequestTimeout:  getDuration("LICENSING_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("LICENSING_SHUTDOWN_TIMEOUT", 15*time.Second),
			LogLevel:        getEnv("LOG_LEVEL", "info"),

			TrustProxyHeaders: getBool("TRUST_PROXY_HEADERS", false),
		},
		Auth: Auth{
			// development default; override in every deployed environment
			JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        getEnv("JWT_ISSUER", "licensing"),
			TokenTTL:      getDuration("JWT_TOKEN_TTL", 8*time.Hour),
			RequireAuth:   getBool("REQUIRE_AUTH", false),

			BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			Migrate:         getBool("DATABASE_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:   getList("KAFKA_BROKERS"),
			Topic:     getEnv("KAFKA_NOTIFICATION_TOPIC", "licensing.notifications"),
			ClientID:  getEnv("KAFKA_CLIENT_ID", "licensing"),
			BatchSize: getInt("OUTBOX_BATCH_SIZE", 100),
			Interval:  getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		},
		Mongo: MongoConfig{
			URI:      os.Getenv("MONGO_URI"),
			Database: getEnv("MONGO_DATABASE", "licensing"),
			Bucket:   getEnv("MONGO_PHOTO_BUCKET", "photos"),
		},
		Midtrans: MidtransConfig{
			ServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
			Production: getBool("MIDTRANS_PRODUCTION", false),
		},
		License: LicenseConfig{
			Jurisdiction:   strings.ToUpper(getEnv("LICENSE_JURISDICTION", "ID")),
			ValidityYears:  getInt("LICENSE_VALIDITY_YEARS", 10),
			InitialPoints:  getInt("LICENSE_INITIAL_POINTS", 12),
			DefaultClass:   getEnv("LICENSE_DEFAULT_CLASS", "B"),
			Authority:      getEnv("LICENSE_AUTHORITY", "Driver Licensing Authority"),
			QRSigningKey:   os.Getenv("LICENSE_QR_SIGNING_KEY"),
			NumberAttempts: getInt("LICENSE_NUMBER_ATTEMPTS", 5),
		},
		Exam: ExamConfig{
			PassThreshold: getInt("EXAM_PASS_THRESHOLD", 50),
			OpensBefore:   getDuration("EXAM_WINDOW_OPENS_BEFORE", 2*time.Hour),
			ClosesAfter:   getDuration("EXAM_WINDOW_CLOSES_AFTER", 4*time.Hour),
		},
		Photo: PhotoConfig{
			FetchTimeout: getDuration("PHOTO_FETCH_TIMEOUT", 5*time.Second),
			MaxBytes:     int64(getInt("PHOTO_MAX_BYTES", 5<<20)),
			CacheTTL:     getDuration("PHOTO_CACHE_TTL", 15*time.Minute),

			AllowedHosts:         getList("PHOTO_ALLOWED_HOSTS"),
			AllowPrivateNetworks: getBool("PHOTO_ALLOW_PRIVATE_NETWORKS", false),
		},
		RateLimit: RateLimitConfig{
			Disabled: getBool("RATE_LIMIT_DISABLED", false),
			Limit:    getInt("RATE_LIMIT_WRITES", 60),
			Window:   getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

var jurisdictionPattern = regexp.MustCompile(`^[A-Z]{2,6}$`)

// Validate rejects settings that would make every license issuance fail.
func (c Config) Validate() error {
	var errs []error
	if !jurisdictionPattern.MatchString(c.License.Jurisdiction) {
		errs = append(errs, fmt.Errorf("LICENSE_JURISDICTION %q must be 2 to 6 letters", c.License.Jurisdiction))
	}
	if c.License.ValidityYears <= 0 {
		errs = append(errs, fmt.Errorf("LICENSE_VALIDITY_YEARS must be positive, got %d", c.License.ValidityYears))
	}
	if c.License.NumberAttempts <= 0 {
		errs = append(errs, fmt.Errorf("LICENSE_NUMBER_ATTEMPTS must be positive, got %d", c.License.NumberAttempts))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getList(key string) []string {
	return liststrings.SplitList(os.Getenv(key), ",")
}
