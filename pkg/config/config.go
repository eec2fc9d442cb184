package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Session      SessionConfig
	FeatureFlags FeatureFlagsConfig
	Slicer       SlicerConfig
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	Wallet       WalletConfig
	Orientation  OrientationConfig
	Uploads      UploadsConfig
	Draft        DraftConfig
	Pipeline     PipelineConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRINTFORGE_APP_ENV" required:"true"`
	Port         string `envconfig:"PRINTFORGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRINTFORGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRINTFORGE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"PRINTFORGE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PRINTFORGE_DB_DSN"`
	Driver string `envconfig:"PRINTFORGE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PRINTFORGE_DB_HOST"`
	Port     int    `envconfig:"PRINTFORGE_DB_PORT" default:"5432"`
	User     string `envconfig:"PRINTFORGE_DB_USER"`
	Password string `envconfig:"PRINTFORGE_DB_PASSWORD"`
	Name     string `envconfig:"PRINTFORGE_DB_NAME"`
	SSLMode  string `envconfig:"PRINTFORGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRINTFORGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRINTFORGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRINTFORGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRINTFORGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRINTFORGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PRINTFORGE_REDIS_ADDR"`
	Password     string        `envconfig:"PRINTFORGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRINTFORGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRINTFORGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRINTFORGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRINTFORGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRINTFORGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRINTFORGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	Secret     string `envconfig:"PRINTFORGE_SESSION_SECRET" required:"true"`
	Issuer     string `envconfig:"PRINTFORGE_SESSION_ISSUER" default:"printforge"`
	TTLMinutes int    `envconfig:"PRINTFORGE_SESSION_TTL_MINUTES" default:"10080"`
}

// TTL returns the guest session lifetime.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PRINTFORGE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PRINTFORGE_AUTO_MIGRATE" default:"false"`
}

type SlicerConfig struct {
	BaseURL string        `envconfig:"PRINTFORGE_SLICER_URL" required:"true"`
	Timeout time.Duration `envconfig:"PRINTFORGE_SLICER_TIMEOUT" default:"120s"`
}

type PricingConfig struct {
	BaseURL string        `envconfig:"PRINTFORGE_PRICING_URL" required:"true"`
	Timeout time.Duration `envconfig:"PRINTFORGE_PRICING_TIMEOUT" default:"15s"`
}

type CheckoutConfig struct {
	BaseURL string        `envconfig:"PRINTFORGE_CHECKOUT_URL" required:"true"`
	Timeout time.Duration `envconfig:"PRINTFORGE_CHECKOUT_TIMEOUT" default:"30s"`
}

type WalletConfig struct {
	BaseURL string        `envconfig:"PRINTFORGE_WALLET_URL"`
	Timeout time.Duration `envconfig:"PRINTFORGE_WALLET_TIMEOUT" default:"10s"`
}

type OrientationConfig struct {
	BaseURL string        `envconfig:"PRINTFORGE_ORIENTATION_URL" required:"true"`
	Timeout time.Duration `envconfig:"PRINTFORGE_ORIENTATION_TIMEOUT" default:"15s"`
}

type UploadsConfig struct {
	BaseURL     string        `envconfig:"PRINTFORGE_UPLOADS_URL" required:"true"`
	Timeout     time.Duration `envconfig:"PRINTFORGE_UPLOADS_TIMEOUT" default:"300s"`
	MaxUploadMB int           `envconfig:"PRINTFORGE_MAX_UPLOAD_MB" default:"200"`
}

type DraftConfig struct {
	TTL          time.Duration `envconfig:"PRINTFORGE_DRAFT_TTL" default:"168h"`
	SaveDebounce time.Duration `envconfig:"PRINTFORGE_DRAFT_SAVE_DEBOUNCE" default:"800ms"`
}

type PipelineConfig struct {
	RepriceDebounce time.Duration `envconfig:"PRINTFORGE_REPRICE_DEBOUNCE" default:"600ms"`
	SessionIdleTTL  time.Duration `envconfig:"PRINTFORGE_SESSION_IDLE_TTL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
