// Package config loads the roomchat configuration from YAML or TOML files
// and the environment.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/tokenstore"
)

// Environment overrides.
const (
	EnvURL        = "MESSAGEROOMS_URL"
	EnvTokenStore = "MESSAGEROOMS_TOKEN_STORE"
	EnvTransport  = "MESSAGEROOMS_TRANSPORT"
)

// DefaultAPIPath prefixes every REST route.
const DefaultAPIPath = "/api"

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:              "http://localhost:9050",
			EventsPath:       messagerooms.DefaultEventsPath,
			APIPath:          DefaultAPIPath,
			Transport:        string(messagerooms.TransportSSE),
			HandshakeTimeout: Duration(10 * time.Second),
			RequestTimeout:   Duration(30 * time.Second),
		},
		TokenStore: TokenStoreConfig{Backend: tokenstore.KindFile},
	}
}

// DefaultPath returns the config file looked up when none is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "roomchat", "config.yml"), nil
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path tries DefaultPath and silently falls
// back to the defaults when that file doesn't exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromBytes decodes data in the given format ("yaml", "toml" or
// "json") over the defaults and validates the result.
func LoadFromBytes(format string, data []byte) (*Config, error) {
	cfg := Default()
	if err := decode("config."+format, data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode rejects keys the Config doesn't know so typos are reported
// instead of silently ignored.
func decode(path string, data []byte, cfg *Config) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(cfg); errors.Is(err, io.EOF) {
			err = nil
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return messagerooms.WrapError(messagerooms.ErrorInvalidConfig,
			"parse config file "+filepath.Base(path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvURL); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvTransport); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv(EnvTokenStore); v != "" {
		// "sqlite" or "sqlite:/path/tokens.db"
		kind, path, _ := strings.Cut(v, ":")
		c.TokenStore.Backend = kind
		if path != "" {
			c.TokenStore.Path = path
		}
	}
}

// ClientConfig converts the server section into an SDK client config.
func (c *Config) ClientConfig() messagerooms.Config {
	cfg := messagerooms.DefaultConfig()
	cfg.URL = c.Server.URL
	if c.Server.EventsPath != "" {
		cfg.EventsPath = c.Server.EventsPath
	}
	if c.Server.Transport != "" {
		cfg.Transport = messagerooms.Transport(c.Server.Transport)
	}
	if c.Server.HandshakeTimeout > 0 {
		cfg.HandshakeTimeout = c.Server.HandshakeTimeout.Std()
	}
	cfg.ReadTimeout = c.Server.ReadTimeout.Std()
	return cfg
}

// APIBaseURL is the URL REST routes are appended to.
func (c *Config) APIBaseURL() string {
	p := c.Server.APIPath
	if p == "" {
		p = DefaultAPIPath
	}
	return strings.TrimRight(c.Server.URL, "/") + "/" + strings.Trim(p, "/")
}

// OpenTokenStore opens the configured credential backend.
func (c *Config) OpenTokenStore() (*tokenstore.TokenStore, error) {
	return tokenstore.Open(c.TokenStore.Backend, c.TokenStore.Path)
}
