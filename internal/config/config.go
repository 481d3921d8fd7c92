package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	StorageConfig
	KeyConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsProduction() bool
	GetLogLevel() string
	GetSeedFile() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type StorageConfig interface {
	GetDatabaseURL() string
	GetRedisURL() string
	GetCachePrefix() string
}

type KeyConfig interface {
	GetKeyEncryptionSecret() []byte
	GetRefreshTokenSecret() []byte
	GetKeySize() int
}

// Settings holds every value read from the environment.
type Settings struct {
	Env      string `env:"ENV" env-default:"DEV"`
	Port     string `env:"PORT" env-default:"8080"`
	AppName  string `env:"APP_NAME" env-default:"OIDC Provider"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	SeedFile string `env:"SEED_FILE"`

	IssuerURL      string   `env:"ISSUER_URL" env-default:"http://localhost:8080"`
	LoginPageURL   string   `env:"LOGIN_PAGE_URL" env-default:"http://localhost:3000/login"`
	ConsentPageURL string   `env:"CONSENT_PAGE_URL" env-default:"http://localhost:3000/consent"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-separator:","`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	CachePrefix string `env:"CACHE_PREFIX" env-default:"oidc"`

	KeyEncryptionSecret string `env:"KEY_ENCRYPTION_SECRET"`
	RefreshTokenSecret  string `env:"REFRESH_TOKEN_SECRET"`
	KeySize             int    `env:"KEY_SIZE" env-default:"2048"`

	RotateKeysToken   string        `env:"ROTATE_KEYS_TOKEN"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" env-default:"oidc_session"`
	SessionExpiry     time.Duration `env:"SESSION_EXPIRY" env-default:"48h"`
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Storage
	Keys
}

// New builds a Config from already populated settings.
func New(s Settings) Config {
	return mainConfig{
		EnvVars:  EnvVars{s: s},
		Cors:     newCors(s.AllowedOrigins),
		OAuth:    OAuth{s: s},
		Security: Security{s: s},
		Storage:  Storage{s: s},
		Keys:     Keys{s: s},
	}
}

// Load reads an optional .env file, then the process environment, and validates the result.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// A missing .env is normal outside local development.
	_ = godotenv.Load(envFiles...)

	var s Settings
	if err := cleanenv.ReadEnv(&s); err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return New(s), nil
}
