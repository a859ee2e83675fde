// Package config carga la configuración del servicio: YAML opcional, luego
// overrides por variables de entorno, luego validación.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinTokenSecretLen es el largo mínimo del secreto de firma.
const MinTokenSecretLen = 32

type Config struct {
	App struct {
		// dev | staging | prod
		Env     string `yaml:"env"`
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		// TrustedProxies lista IPs o CIDRs de los proxies cuyo
		// X-Forwarded-For se acepta. Vacío: se usa la IP del peer.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int32         `yaml:"max_conns"`
			MinConns        int32         `yaml:"min_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
		// AutoMigrate aplica las migraciones embebidas al arrancar.
		AutoMigrate bool `yaml:"auto_migrate"`
	} `yaml:"storage"`

	Cache struct {
		Kind      string        `yaml:"kind"` // memory | redis
		PolicyTTL time.Duration `yaml:"policy_ttl"`
		Redis     struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Rate struct {
		Enabled     bool          `yaml:"enabled"`
		Window      time.Duration `yaml:"window"`
		MaxRequests int           `yaml:"max_requests"`
	} `yaml:"rate"`

	Token struct {
		Issuer string `yaml:"issuer"`
		Secret string `yaml:"secret"`
	} `yaml:"token"`

	Maintenance struct {
		Enabled bool   `yaml:"enabled"`
		Message string `yaml:"message"`
	} `yaml:"maintenance"`

	Telemetry struct {
		QueueSize    int           `yaml:"queue_size"`
		Workers      int           `yaml:"workers"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"telemetry"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load lee el YAML en path, aplica defaults y overrides de entorno, y valida.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c.finish()
}

// FromEnv arma la configuración solo desde variables de entorno.
func FromEnv() (*Config, error) {
	var c Config
	return c.finish()
}

// LoadOrEnv usa path si no está vacío y FromEnv si lo está.
func LoadOrEnv(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return FromEnv()
	}
	return Load(path)
}

func (c *Config) finish() (*Config, error) {
	c.applyEnvOverrides()
	c.defaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) defaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "licensegate"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Storage.Driver == "" {
		if c.Storage.DSN != "" {
			c.Storage.Driver = "postgres"
		} else {
			c.Storage.Driver = "memory"
		}
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.PolicyTTL == 0 {
		c.Cache.PolicyTTL = 30 * time.Second
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "licensegate"
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = c.App.Name
	}
	if c.Telemetry.QueueSize == 0 {
		c.Telemetry.QueueSize = 1024
	}
	if c.Telemetry.Workers == 0 {
		c.Telemetry.Workers = 2
	}
	if c.Telemetry.WriteTimeout == 0 {
		c.Telemetry.WriteTimeout = 2 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVICE_VERSION"); ok {
		c.App.Version = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvDur("SERVER_SHUTDOWN_TIMEOUT"); ok {
		c.Server.ShutdownTimeout = v
	}
	if v, ok := getEnvStr("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Server.TrustedProxies = append(c.Server.TrustedProxies, p)
			}
		}
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	} else if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = int32(v)
	}
	if v, ok := getEnvInt("POSTGRES_MIN_CONNS"); ok {
		c.Storage.Postgres.MinConns = int32(v)
	}
	if v, ok := getEnvDur("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvDur("CACHE_POLICY_TTL"); ok {
		c.Cache.PolicyTTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}

	// TOKEN
	if v, ok := getEnvStr("TOKEN_ISSUER"); ok {
		c.Token.Issuer = v
	}
	if v, ok := getEnvStr("TOKEN_SECRET"); ok {
		c.Token.Secret = v
	}

	// MAINTENANCE
	if v, ok := getEnvBool("MAINTENANCE_MODE"); ok {
		c.Maintenance.Enabled = v
	}
	if v, ok := getEnvStr("MAINTENANCE_MESSAGE"); ok {
		c.Maintenance.Message = v
	}

	// TELEMETRY
	if v, ok := getEnvInt("TELEMETRY_QUEUE_SIZE"); ok {
		c.Telemetry.QueueSize = v
	}
	if v, ok := getEnvInt("TELEMETRY_WORKERS"); ok {
		c.Telemetry.Workers = v
	}
	if v, ok := getEnvDur("TELEMETRY_WRITE_TIMEOUT"); ok {
		c.Telemetry.WriteTimeout = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate revisa los valores críticos y devuelve todos los problemas juntos.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}
	switch c.Cache.Kind {
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis cache"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q is not supported", c.Cache.Kind))
	}
	if len(c.Token.Secret) < MinTokenSecretLen {
		errs = append(errs, fmt.Errorf("token.secret must be at least %d bytes", MinTokenSecretLen))
	}
	if c.Rate.Enabled && (c.Rate.MaxRequests <= 0 || c.Rate.Window <= 0) {
		errs = append(errs, errors.New("rate.max_requests and rate.window must be positive"))
	}
	if c.Telemetry.QueueSize < 0 || c.Telemetry.Workers < 0 {
		errs = append(errs, errors.New("telemetry.queue_size and telemetry.workers must not be negative"))
	}
	for _, p := range c.Server.TrustedProxies {
		if !validProxy(strings.TrimSpace(p)) {
			errs = append(errs, fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", p))
		}
	}
	if c.Storage.Postgres.MinConns > c.Storage.Postgres.MaxConns {
		errs = append(errs, errors.New("storage.postgres.min_conns exceeds max_conns"))
	}
	return errors.Join(errs...)
}

func validProxy(s string) bool {
	if s == "" {
		return true
	}
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// IsProd reporta si App.Env es prod.
func (c *Config) IsProd() bool {
	return strings.EqualFold(c.App.Env, "prod") || strings.EqualFold(c.App.Env, "production")
}
