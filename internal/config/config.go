package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env        string `yaml:"env" env:"APP_ENV"`
	HTTPServer `yaml:"http_server"`
	ShortAPI   `yaml:"short_api"`
	Storage    `yaml:"storage"`
	Session    `yaml:"session"`
	Cache      `yaml:"cache"`
	Links      `yaml:"links"`
	QR         `yaml:"qr"`
}

type HTTPServer struct {
	Port           int           `yaml:"port" env:"HTTP_PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT"`
	MaxHeaderBytes int           `yaml:"max_header_bytes" env:"HTTP_MAX_HEADER_BYTES"`
	CertFile       string        `yaml:"cert_file" env:"HTTP_CERT_FILE"`
	KeyFile        string        `yaml:"key_file" env:"HTTP_KEY_FILE"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   20 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// ShortAPI points at the hosted link service. A zero timeout waits
// for responses indefinitely.
type ShortAPI struct {
	BaseURL string        `yaml:"base_url" env:"SHORT_API_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"SHORT_API_TIMEOUT"`
}

var defaultShortAPI = ShortAPI{
	BaseURL: "https://short-api.bren.app",
}

// Storage selects the settings database.
// SQLite takes a file path as DSN, Postgres a connection URL.
type Storage struct {
	Driver          string        `yaml:"driver" env:"STORAGE_DRIVER"`
	DSN             string        `yaml:"dsn" env:"STORAGE_DSN"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"STORAGE_CONN_MAX_IDLE_TIME"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"STORAGE_CONN_MAX_LIFETIME"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"STORAGE_MAX_IDLE_CONNS"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"STORAGE_MAX_OPEN_CONNS"`
}

var defaultStorage = Storage{
	Driver:          DriverSQLite,
	DSN:             "shorty.db",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

type Session struct {
	CookieName   string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
	CookieMaxAge time.Duration `yaml:"cookie_max_age" env:"SESSION_COOKIE_MAX_AGE"`
	IdleTTL      time.Duration `yaml:"idle_ttl" env:"SESSION_IDLE_TTL"`
	ReapInterval time.Duration `yaml:"reap_interval" env:"SESSION_REAP_INTERVAL"`
}

var defaultSession = Session{
	CookieName:   "shorty_device",
	CookieMaxAge: 365 * 24 * time.Hour,
	IdleTTL:      30 * time.Minute,
	ReapInterval: time.Minute,
}

type Cache struct {
	DedupingInterval time.Duration `yaml:"deduping_interval" env:"CACHE_DEDUPING_INTERVAL"`
	FocusThrottle    time.Duration `yaml:"focus_throttle" env:"CACHE_FOCUS_THROTTLE"`
}

var defaultCache = Cache{
	DedupingInterval: 2 * time.Second,
	FocusThrottle:    5 * time.Second,
}

type Links struct {
	PageSize int `yaml:"page_size" env:"LINKS_PAGE_SIZE"`
}

var defaultLinks = Links{
	PageSize: 30,
}

// QR holds the rendering options sent with QR code requests.
type QR struct {
	Type            string `yaml:"type" env:"QR_TYPE"`
	BackgroundColor string `yaml:"background_color" env:"QR_BACKGROUND_COLOR"`
	Color           string `yaml:"color" env:"QR_COLOR"`
}

var defaultQR = QR{
	Type:            "svg",
	BackgroundColor: "1a1a1a",
	Color:           "ffffff",
}

// Load reads the config file at path over the defaults, then applies the
// environment variables that are set.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to read environment: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.HTTPServer = defaultHTTPServer
	cfg.ShortAPI = defaultShortAPI
	cfg.Storage = defaultStorage
	cfg.Session = defaultSession
	cfg.Cache = defaultCache
	cfg.Links = defaultLinks
	cfg.QR = defaultQR
}

func (cfg *Config) validate() error {
	switch cfg.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Storage.DSN == "" {
		return fmt.Errorf("storage dsn is required")
	}

	if cfg.Links.PageSize <= 0 {
		return fmt.Errorf("links page size must be positive")
	}

	if cfg.Env == EnvProd && (cfg.HTTPServer.CertFile == "" || cfg.HTTPServer.KeyFile == "") {
		return fmt.Errorf("cert and key files are required in %s", EnvProd)
	}

	return nil
}
