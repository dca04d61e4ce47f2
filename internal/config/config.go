package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

import (
	"gopkg.in/yaml.v3"
)

// ServerCfg — HTTP listen configuration.
type ServerCfg struct {
	HTTPAddr string `yaml:"httpAddr"` // listen address, e.g. ":8000"
	LogLevel string `yaml:"logLevel"` // debug | info | warn | error, default "info"
}

// RedisCfg — counter store connection configuration.
type RedisCfg struct {
	Addr           string `yaml:"addr"`           // Redis address, e.g. "127.0.0.1:6379"
	Password       string `yaml:"password"`       // Redis password
	DB             int    `yaml:"db"`             // Redis DB index
	Prefix         string `yaml:"prefix"`         // key prefix, default "gateway"
	PoolSize       int    `yaml:"poolSize"`       // connection pool size
	DialTimeoutMs  int    `yaml:"dialTimeoutMs"`  // dial timeout (ms)
	ReadTimeoutMs  int    `yaml:"readTimeoutMs"`  // read timeout (ms)
	WriteTimeoutMs int    `yaml:"writeTimeoutMs"` // write timeout (ms)
}

// JWTCfg — bearer credential verification configuration.
type JWTCfg struct {
	Secret    string `yaml:"secret"`    // shared signing secret, required
	Algorithm string `yaml:"algorithm"` // signing algorithm, default "HS256"
}

// RateLimitCfg — fixed-window rate limit configuration.
type RateLimitCfg struct {
	PerMinute int64 `yaml:"perMinute"` // window ceiling, default 60
	WindowSec int   `yaml:"windowSec"` // window length in seconds, default 60
	Headers   bool  `yaml:"headers"`   // emit X-RateLimit-* response headers
	Bypass    bool  `yaml:"bypass"`    // testing flag: admit everything, skip the store
}

// ServicesCfg — collaborator base addresses.
type ServicesCfg struct {
	Auth  string `yaml:"auth"`  // auth service base URL
	User  string `yaml:"user"`  // user service base URL
	Price string `yaml:"price"` // price service base URL
}

// HealthCfg — health probe configuration.
type HealthCfg struct {
	ProbeTimeoutMs int `yaml:"probeTimeoutMs"` // per-probe timeout (ms), default 5000
}

// CORSCfg — cross-origin policy, off unless enabled.
type CORSCfg struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	AllowedMethods []string `yaml:"allowedMethods"`
	AllowedHeaders []string `yaml:"allowedHeaders"`
}

// ForwardCfg — upstream call configuration.
type ForwardCfg struct {
	TimeoutMs int `yaml:"timeoutMs"` // per-call timeout (ms), default 10000
}

// Config — full gateway configuration, built once at startup.
type Config struct {
	Server    ServerCfg    `yaml:"server"`
	Redis     RedisCfg     `yaml:"redis"`
	JWT       JWTCfg       `yaml:"jwt"`
	RateLimit RateLimitCfg `yaml:"rateLimit"`
	Services  ServicesCfg  `yaml:"services"`
	Forward   ForwardCfg   `yaml:"forward"`
	Health    HealthCfg    `yaml:"health"`
	CORS      CORSCfg      `yaml:"cors"`
}

const minSecretLen = 32

// Load reads and validates a YAML config file.
// Environment placeholders like ${JWT_SECRET_KEY} are expanded before unmarshal.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(b))
	var c Config
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8000"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "gateway"
	}
	if c.JWT.Algorithm == "" {
		c.JWT.Algorithm = "HS256"
	}
	if c.RateLimit.PerMinute <= 0 {
		c.RateLimit.PerMinute = 60
	}
	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = 60
	}
	if c.Forward.TimeoutMs <= 0 {
		c.Forward.TimeoutMs = 10000
	}
	if c.Health.ProbeTimeoutMs <= 0 {
		c.Health.ProbeTimeoutMs = 5000
	}
}

// Validate rejects configs the gateway cannot safely start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt.secret is required")
	}
	if len(c.JWT.Secret) < minSecretLen {
		return fmt.Errorf("jwt.secret must be at least %d characters", minSecretLen)
	}
	if c.JWT.Algorithm != "HS256" && c.JWT.Algorithm != "HS384" && c.JWT.Algorithm != "HS512" {
		return fmt.Errorf("unsupported jwt.algorithm: %s", c.JWT.Algorithm)
	}
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	for name, addr := range map[string]string{
		"services.auth":  c.Services.Auth,
		"services.user":  c.Services.User,
		"services.price": c.Services.Price,
	} {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}
