package config

import (
	"fmt"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/logging"
)

// Config is the roomchat configuration file.
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server" json:"server" jsonschema:"required,description=Message Rooms server to talk to"`
	TokenStore TokenStoreConfig `yaml:"token_store" toml:"token_store" json:"token_store" jsonschema:"description=Where credentials are kept between runs"`
	Logging    logging.Config   `yaml:"logging" toml:"logging" json:"logging" jsonschema:"description=Log level and sinks"`
}

// ServerConfig selects the server and how the event stream is opened.
type ServerConfig struct {
	URL        string `yaml:"url" toml:"url" json:"url" jsonschema:"required,minLength=1,description=Server base URL (e.g. http://localhost:9050)"`
	EventsPath string `yaml:"events_path,omitempty" toml:"events_path,omitempty" json:"events_path,omitempty" jsonschema:"description=Route of the event stream (default /api/sse/connect)"`
	APIPath    string `yaml:"api_path,omitempty" toml:"api_path,omitempty" json:"api_path,omitempty" jsonschema:"description=Prefix of the REST routes (default /api)"`
	Transport  string `yaml:"transport,omitempty" toml:"transport,omitempty" json:"transport,omitempty" jsonschema:"enum=sse,enum=websocket,description=Event stream transport"`

	HandshakeTimeout Duration `yaml:"handshake_timeout,omitempty" toml:"handshake_timeout,omitempty" json:"handshake_timeout,omitempty" jsonschema:"description=Maximum time to establish the event stream"`
	ReadTimeout      Duration `yaml:"read_timeout,omitempty" toml:"read_timeout,omitempty" json:"read_timeout,omitempty" jsonschema:"description=Close the stream when nothing arrives for this long (0 disables)"`
	RequestTimeout   Duration `yaml:"request_timeout,omitempty" toml:"request_timeout,omitempty" json:"request_timeout,omitempty" jsonschema:"description=Timeout of REST requests"`
}

// TokenStoreConfig selects the credential backend.
type TokenStoreConfig struct {
	Backend string `yaml:"backend,omitempty" toml:"backend,omitempty" json:"backend,omitempty" jsonschema:"enum=memory,enum=file,enum=sqlite,description=Storage backend"`
	Path    string `yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty" jsonschema:"description=File or database path (default under the user config directory)"`
}

// Duration is a time.Duration written as a Go duration string ("10s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:    "string",
		Pattern: `^(0|([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+)$`,
	}
}
