package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultChunkSize  = 1000
	DefaultInterval   = 12 * time.Second
	DefaultSpecsDir   = "ir/specs"
	DefaultSchemaPath = "migrations/schema.json"
)

// Config holds the YAML configuration.
type Config struct {
	Version   int        `yaml:"version"`
	Database  Database   `yaml:"database"`
	Chains    []Chain    `yaml:"chains"`
	Sync      Sync       `yaml:"sync"`
	Paths     Paths      `yaml:"paths"`
	Tracing   Tracing    `yaml:"tracing"`
	Contracts []Contract `yaml:"contracts"`
}

type Database struct {
	Driver          string `yaml:"driver"`
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type Chain struct {
	Name   string  `yaml:"name"`
	RPCURL string  `yaml:"rpc_url"`
	RPS    float64 `yaml:"rps"`
	Burst  int     `yaml:"burst"`
}

type Sync struct {
	ChunkSize uint64 `yaml:"chunk_size"`
	Interval  string `yaml:"interval"`
}

type Paths struct {
	SpecsDir string `yaml:"specs_dir"`
	Schema   string `yaml:"schema"`
}

type Tracing struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

type Contract struct {
	Name    string     `yaml:"name"`
	Chain   string     `yaml:"chain"`
	Address string     `yaml:"address"`
	ABIPath string     `yaml:"abi_path"`
	Specs   []SpecFile `yaml:"specs"`
}

// SpecFile names one generated specification of a contract.
type SpecFile struct {
	Name       string `yaml:"name"`
	StartBlock uint64 `yaml:"start_block"`
}

var envPattern = regexp.MustCompile(`\${([A-Za-z_][A-Za-z0-9_]*)}`)

// Load reads, interpolates env vars, parses YAML, applies defaults, and validates.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	interpolated, err := interpolateEnv(string(raw))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(configPath string) error {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

func interpolateEnv(input string) (string, error) {
	missing := []string{}
	out := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variables: %s", strings.Join(dedup(missing), ", "))
	}
	return out, nil
}

func (c *Config) applyDefaults() {
	if c.Sync.ChunkSize == 0 {
		c.Sync.ChunkSize = DefaultChunkSize
	}
	if c.Sync.Interval == "" {
		c.Sync.Interval = DefaultInterval.String()
	}
	if c.Paths.SpecsDir == "" {
		c.Paths.SpecsDir = DefaultSpecsDir
	}
	if c.Paths.Schema == "" {
		c.Paths.Schema = DefaultSchemaPath
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
}

// Validate performs small, direct schema checks.
func (c *Config) Validate() error {
	if c.Version == 0 {
		return errors.New("version is required")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if len(c.Chains) == 0 {
		return errors.New("at least one chain is required")
	}
	if _, err := c.Sync.IntervalDuration(); err != nil {
		return fmt.Errorf("sync.interval: %w", err)
	}

	chainNames := map[string]struct{}{}
	for _, ch := range c.Chains {
		if _, exists := chainNames[ch.Name]; exists {
			return fmt.Errorf("duplicate chain name: %s", ch.Name)
		}
		chainNames[ch.Name] = struct{}{}
		if err := ch.Validate(); err != nil {
			return fmt.Errorf("chain %s: %w", ch.Name, err)
		}
	}

	if len(c.Contracts) == 0 {
		return errors.New("at least one contract is required")
	}
	contractNames := map[string]struct{}{}
	for _, ct := range c.Contracts {
		if _, exists := contractNames[ct.Name]; exists {
			return fmt.Errorf("duplicate contract name: %s", ct.Name)
		}
		contractNames[ct.Name] = struct{}{}
		if err := ct.Validate(chainNames); err != nil {
			return fmt.Errorf("contract %s: %w", ct.Name, err)
		}
	}

	return nil
}

func (d *Database) Validate() error {
	switch d.Driver {
	case "postgres", "sqlite":
	case "":
		return errors.New("driver is required")
	default:
		return fmt.Errorf("unsupported driver: %s", d.Driver)
	}
	if d.DSN == "" {
		return errors.New("dsn is required")
	}
	if d.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(d.ConnMaxLifetime); err != nil {
			return fmt.Errorf("conn_max_lifetime: %w", err)
		}
	}
	return nil
}

func (ch *Chain) Validate() error {
	if ch.Name == "" {
		return errors.New("name is required")
	}
	if ch.RPCURL == "" {
		return errors.New("rpc_url is required")
	}
	if ch.RPS < 0 {
		return errors.New("rps must not be negative")
	}
	return nil
}

func (ct *Contract) Validate(chains map[string]struct{}) error {
	if ct.Name == "" {
		return errors.New("name is required")
	}
	if _, ok := chains[ct.Chain]; !ok {
		return fmt.Errorf("references chain %q which is not defined in chains", ct.Chain)
	}
	if !common.IsHexAddress(ct.Address) {
		return fmt.Errorf("invalid address %q", ct.Address)
	}
	if len(ct.Specs) == 0 {
		return errors.New("at least one spec is required")
	}
	names := map[string]struct{}{}
	for _, s := range ct.Specs {
		if s.Name == "" {
			return errors.New("spec name is required")
		}
		if _, exists := names[s.Name]; exists {
			return fmt.Errorf("duplicate spec name: %s", s.Name)
		}
		names[s.Name] = struct{}{}
	}
	return nil
}

// IntervalDuration parses the daemon tick interval.
func (s Sync) IntervalDuration() (time.Duration, error) {
	if s.Interval == "" {
		return DefaultInterval, nil
	}
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}

// ConnLifetime returns the parsed connection lifetime, zero when unset.
func (d Database) ConnLifetime() time.Duration {
	lt, _ := time.ParseDuration(d.ConnMaxLifetime)
	return lt
}

// Endpoints maps chain name to RPC URL.
func (c *Config) Endpoints() map[string]string {
	out := make(map[string]string, len(c.Chains))
	for _, ch := range c.Chains {
		out[ch.Name] = ch.RPCURL
	}
	return out
}

// ChainByName looks up a chain entry.
func (c *Config) ChainByName(name string) (Chain, bool) {
	for _, ch := range c.Chains {
		if ch.Name == name {
			return ch, true
		}
	}
	return Chain{}, false
}

func dedup(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
