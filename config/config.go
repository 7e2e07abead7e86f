package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port string `envconfig:"PORT" default:"4000"`

	StoreDriver        string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI           string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase      string `envconfig:"MONGODB_DATABASE" default:"smartdine"`
	MongoTransactions  bool   `envconfig:"MONGODB_TRANSACTIONS" default:"true"`
	RedisAddr          string `envconfig:"REDIS_ADDR"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD"`
	RedisEventsChannel string `envconfig:"REDIS_EVENTS_CHANNEL" default:"smartdine:events"`

	MenuCacheTTL time.Duration `envconfig:"MENU_CACHE_TTL" default:"5m"`

	JWTSecret          string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL           time.Duration `envconfig:"TOKEN_TTL" default:"12h"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	OrderRatePerMinute int           `envconfig:"ORDER_RATE_PER_MINUTE" default:"30"`

	PublicMenuURL  string `envconfig:"PUBLIC_MENU_URL" default:"http://localhost:5173/menu"`
	RestaurantName string `envconfig:"RESTAURANT_NAME" default:"Smart Dine"`
	CurrencySymbol string `envconfig:"CURRENCY_SYMBOL" default:"Rs."`
	Timezone       string `envconfig:"TIMEZONE" default:"UTC"`
	StaticDir      string `envconfig:"STATIC_DIR" default:"./static"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads .env when present and decodes the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not read .env")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "read configuration")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "mongo", "memory":
	default:
		return errors.Errorf("STORE_DRIVER must be mongo or memory, got %q", c.StoreDriver)
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.OrderRatePerMinute < 1 {
		return errors.New("ORDER_RATE_PER_MINUTE must be positive")
	}
	return nil
}

// Location is the timezone used for calendar windows in analytics.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "TIMEZONE %q", c.Timezone)
	}
	return loc, nil
}

// SetupLogging applies LOG_LEVEL and LOG_FORMAT to the standard logger.
func (c *Config) SetupLogging() {
	if strings.EqualFold(c.LogFormat, "text") {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
