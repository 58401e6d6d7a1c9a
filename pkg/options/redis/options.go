// Package redis provides redis configuration options.
package redis

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/papergen/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the redis client used for the embedding cache.
type Options struct {
	// Enabled toggles redis usage; when false no client is constructed.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Addr is the host:port of the redis server.
	Addr string `json:"addr" mapstructure:"addr"`

	// Password is the redis password; prefer the REDIS_PASSWORD env var.
	Password string `json:"-" mapstructure:"password"`

	// DB is the redis database index.
	DB int `json:"db" mapstructure:"db"`

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`

	// CacheTTL is the embedding cache entry lifetime.
	CacheTTL time.Duration `json:"cache-ttl" mapstructure:"cache-ttl"`
}

// NewOptions creates default redis options (disabled).
func NewOptions() *Options {
	return &Options{
		Enabled:     false,
		Addr:        "localhost:6379",
		DB:          0,
		DialTimeout: 5 * time.Second,
		CacheTTL:    24 * time.Hour,
	}
}

// AddFlags adds flags for redis options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, options.Join(prefixes...)+"enabled", o.Enabled, "Enable the redis embedding cache.")
	fs.StringVar(&o.Addr, options.Join(prefixes...)+"addr", o.Addr, "Redis server address (host:port).")
	fs.StringVar(&o.Password, options.Join(prefixes...)+"password", o.Password, "Redis password (DEPRECATED: use REDIS_PASSWORD env var instead).")
	fs.IntVar(&o.DB, options.Join(prefixes...)+"db", o.DB, "Redis database index.")
	fs.DurationVar(&o.DialTimeout, options.Join(prefixes...)+"dial-timeout", o.DialTimeout, "Redis dial timeout.")
	fs.DurationVar(&o.CacheTTL, options.Join(prefixes...)+"cache-ttl", o.CacheTTL, "Embedding cache TTL.")
}

// Validate validates the redis options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("addr is required when redis is enabled"))
	}
	if o.DB < 0 {
		errs = append(errs, fmt.Errorf("db must be non-negative"))
	}
	return errs
}

// Complete fills in unset fields from the environment.
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv("REDIS_PASSWORD")
	}
	return nil
}
