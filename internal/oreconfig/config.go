// Package oreconfig loads the run's top-level XML configuration and
// layers ambient environment-variable overrides on top via viper.
package oreconfig

import (
	"encoding/xml"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/wyfcoding/ore/internal/oreerr"
)

// Parameter is one name/value pair within a Group.
type Parameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// Group is one top-level configuration block: a flat list of name/value
// pairs, optionally gated by an "active" parameter.
type Group struct {
	Parameters []Parameter `xml:"Parameter"`
}

// Get returns the named parameter's value and whether it was present.
func (g Group) Get(name string) (string, bool) {
	for _, p := range g.Parameters {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// GetDefault returns the named parameter's value, or def if absent.
func (g Group) GetDefault(name, def string) string {
	if v, ok := g.Get(name); ok {
		return v
	}
	return def
}

// Active reports whether the group's "active" key is "Y" (absent counts as
// inactive, matching "the active key gates the stage").
func (g Group) Active() bool {
	v, _ := g.Get("active")
	return strings.EqualFold(v, "Y")
}

// Config is the top-level XML document: eight optional groups, all but
// Setup gated by their own "active" flag.
type Config struct {
	XMLName xml.Name `xml:"ORE"`

	Setup       Group `xml:"Setup"`
	Markets     Group `xml:"Markets"`
	Curves      Group `xml:"Curves"`
	NPV         Group `xml:"NPV"`
	Cashflow    Group `xml:"Cashflow"`
	Simulation  Group `xml:"Simulation"`
	XVA         Group `xml:"XVA"`
	Sensitivity Group `xml:"Sensitivity"`
}

// Load parses the XML configuration at path and validates that required
// Setup keys are present.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oreerr.NewIO(err, "oreconfig: reading %q", path)
	}
	var cfg Config
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return nil, oreerr.NewConfig(err, "oreconfig: parsing %q", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	required := []string{"inputPath", "outputPath", "asofDate", "portfolioFile"}
	for _, key := range required {
		if _, ok := c.Setup.Get(key); !ok {
			return oreerr.NewConfig(nil, "oreconfig: setup is missing required key %q", key)
		}
	}
	return nil
}

// LogMask parses setup.logMask (a 0-15 bitmask), defaulting to 0.
func (c *Config) LogMask() (int, error) {
	v, ok := c.Setup.Get("logMask")
	if !ok {
		return 0, nil
	}
	mask, err := parseIntBounded(v, 0, 15)
	if err != nil {
		return 0, oreerr.NewConfig(err, "oreconfig: setup.logMask %q is not a valid 0-15 bitmask", v)
	}
	return mask, nil
}

func parseIntBounded(s string, lo, hi int) (int, error) {
	var n int
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, oreerr.NewConfig(nil, "oreconfig: %q is not a non-negative integer", s)
		}
		n = n*10 + int(r-'0')
	}
	if n < lo || n > hi {
		return 0, oreerr.NewConfig(nil, "oreconfig: %d out of range [%d,%d]", n, lo, hi)
	}
	return n, nil
}

// EnvOverrides holds the ambient, non-XML settings sourced from the
// environment: connection strings for the platform's storage/messaging
// layers, which have no place in the trade/market-facing run config.
type EnvOverrides struct {
	LogLevel     string
	RedisAddr    string
	MySQLDSN     string
	KafkaBrokers []string
	S3Bucket     string
	HTTPAddr     string
}

// LoadEnvOverrides reads ORE_LOG_LEVEL, ORE_REDIS_ADDR, ORE_MYSQL_DSN,
// ORE_KAFKA_BROKERS, ORE_S3_BUCKET, ORE_HTTP_ADDR via viper's automatic
// env binding.
func LoadEnvOverrides() EnvOverrides {
	v := viper.New()
	v.SetEnvPrefix("ORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")

	var brokers []string
	if raw := v.GetString("kafka_brokers"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return EnvOverrides{
		LogLevel:     v.GetString("log_level"),
		RedisAddr:    v.GetString("redis_addr"),
		MySQLDSN:     v.GetString("mysql_dsn"),
		KafkaBrokers: brokers,
		S3Bucket:     v.GetString("s3_bucket"),
		HTTPAddr:     v.GetString("http_addr"),
	}
}
