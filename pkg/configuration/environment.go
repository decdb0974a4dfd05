package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/iota-uz/hookrelay/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files, looking first in the working directory
// and then relative to the module root so tests and CLIs run from
// subdirectories still pick up the repo's env files.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
			continue
		}
		if root, ok := moduleRoot(); ok {
			rooted := filepath.Join(root, file)
			if fs.FileExists(rooted) {
				existingFiles = append(existingFiles, rooted)
			}
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func moduleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"hookrelay"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"hookrelay"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

// DeliveryOptions tunes the webhook delivery worker and cleaner.
type DeliveryOptions struct {
	Enabled         bool          `env:"WEBHOOKS_DELIVERY_ENABLED" envDefault:"true"`
	PollInterval    time.Duration `env:"WEBHOOKS_POLL_INTERVAL" envDefault:"1s"`
	BatchSize       int           `env:"WEBHOOKS_BATCH_SIZE" envDefault:"100"`
	LeaseTTL        time.Duration `env:"WEBHOOKS_LEASE_TTL" envDefault:"60s"`
	MaxAttempts     int           `env:"WEBHOOKS_MAX_ATTEMPTS" envDefault:"3"`
	DispatchTimeout time.Duration `env:"WEBHOOKS_DISPATCH_TIMEOUT" envDefault:"3s"`
	MaxBackoff      time.Duration `env:"WEBHOOKS_MAX_BACKOFF" envDefault:"60s"`
	JitterMax       time.Duration `env:"WEBHOOKS_JITTER_MAX" envDefault:"200ms"`
	SingleActive    bool          `env:"WEBHOOKS_SINGLE_ACTIVE" envDefault:"true"`

	ResponseMaxBytes int `env:"WEBHOOKS_RESPONSE_MAX_BYTES" envDefault:"2048"`

	CleanerEnabled  bool          `env:"WEBHOOKS_CLEANER_ENABLED" envDefault:"true"`
	CleanerInterval time.Duration `env:"WEBHOOKS_CLEANER_INTERVAL" envDefault:"1m"`
	Retention       time.Duration `env:"WEBHOOKS_RETENTION" envDefault:"168h"`
	// FailedRetention of zero keeps permanently failed events forever.
	FailedRetention time.Duration `env:"WEBHOOKS_FAILED_RETENTION" envDefault:"0"`
}

// RelayOptions tunes the filtering relay proxy.
type RelayOptions struct {
	Timeout          time.Duration `env:"RELAY_TIMEOUT" envDefault:"3s"`
	ResponseMaxBytes int64         `env:"RELAY_RESPONSE_MAX_BYTES" envDefault:"1048576"`
}

type Configuration struct {
	Database      DatabaseOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions
	Delivery      DeliveryOptions
	Relay         RelayOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	Domain           string `env:"DOMAIN" envDefault:"localhost"`
	Origin           string `env:"ORIGIN" envDefault:"http://localhost:3200"`
	PageSize         int    `env:"PAGE_SIZE" envDefault:"25"`
	MaxPageSize      int    `env:"MAX_PAGE_SIZE" envDefault:"100"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	// The server will look for this header in the request, if it's not present, it will generate a random uuidv4
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// The server will look for this header in the request, if it's not present, it will use request.RemoteAddr
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	// Tenant scope header for API requests.
	TenantIDHeader string `env:"TENANT_ID_HEADER" envDefault:"X-Tenant-ID"`

	// RLS enforcement mode (disabled/enforce).
	RLSEnforce string `env:"RLS_ENFORCE" envDefault:"disabled"`

	// Ops endpoints (/debug/...) are gated in production by token, basic auth or CIDR.
	OpsGuardEnabled       bool   `env:"OPS_GUARD_ENABLED" envDefault:"true"`
	OpsGuardToken         string `env:"OPS_GUARD_TOKEN"`
	OpsGuardBasicAuthUser string `env:"OPS_GUARD_BASIC_AUTH_USER"`
	OpsGuardBasicAuthPass string `env:"OPS_GUARD_BASIC_AUTH_PASS"`
	OpsGuardCIDRs         string `env:"OPS_GUARD_CIDRS"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func (c *Configuration) Scheme() string {
	if c.GoAppEnvironment == Production { // assume 'https' on production mode
		return "https"
	}
	return "http"
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}

	if err := c.validateRLS(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	// Update Domain and Origin dynamically if they weren't explicitly set via environment variables
	// This ensures logs show the correct port when PORT is set via environment
	if os.Getenv("DOMAIN") == "" {
		c.Domain = "localhost"
	}
	if os.Getenv("ORIGIN") == "" {
		// Only include port in Origin for development environment
		// Production and staging should use standard ports (80/443)
		if c.GoAppEnvironment == "development" {
			c.Origin = fmt.Sprintf("%s://%s:%d", c.Scheme(), c.Domain, c.ServerPort)
		} else {
			c.Origin = fmt.Sprintf("%s://%s", c.Scheme(), c.Domain)
		}
	}

	return nil
}

func (c *Configuration) validateRLS() error {
	mode := strings.ToLower(strings.TrimSpace(c.RLSEnforce))
	if mode == "" {
		mode = "disabled"
	}
	switch mode {
	case "disabled", "enforce":
	default:
		return fmt.Errorf("invalid RLS_ENFORCE=%q (expected disabled|enforce)", c.RLSEnforce)
	}

	if mode == "enforce" && strings.EqualFold(strings.TrimSpace(c.Database.User), "postgres") {
		return fmt.Errorf("RLS_ENFORCE=enforce requires a non-superuser DB_USER (postgres will bypass RLS)")
	}

	c.RLSEnforce = mode
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
