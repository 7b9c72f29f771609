package main

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/config"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/logging"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/rest"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/session"
)

// options holds the flags shared by every command.
type options struct {
	ConfigFile string
	URL        string
	Transport  string
	TokenStore string
	Verbose    bool
	JSONOutput bool
}

func (o *options) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFile, "config", "c", "", "Path to config file (.yml, .yaml, .toml)")
	fs.StringVar(&o.URL, "url", "", "Server base URL (overrides config)")
	fs.StringVar(&o.Transport, "transport", "", "Event transport: sse or websocket")
	fs.StringVar(&o.TokenStore, "token-store", "", "Token store backend: memory, file or sqlite")
	fs.BoolVarP(&o.Verbose, "verbose", "v", false, "Enable verbose logging")
	fs.BoolVar(&o.JSONOutput, "json", false, "Output in JSON format")
}

// loadConfig reads the config file and applies flag overrides.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if o.URL != "" {
		cfg.Server.URL = o.URL
	}
	if o.Transport != "" {
		cfg.Server.Transport = o.Transport
	}
	if o.TokenStore != "" {
		cfg.TokenStore.Backend = o.TokenStore
	}
	if o.Verbose {
		cfg.Logging.Level = logrus.DebugLevel.String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Configure(cfg.Logging)
	return cfg, nil
}

// openSession builds a session from the config. The caller closes it.
func (o *options) openSession(cmd *cobra.Command) (*session.Session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	tokens, err := cfg.OpenTokenStore()
	if err != nil {
		return nil, err
	}

	api := rest.NewClient(cfg.APIBaseURL())
	api.SetHTTPClient(&http.Client{Timeout: cfg.Server.RequestTimeout.Std()})

	logger := logging.NewLogger("roomchat")
	return session.New(session.Options{
		Stream: cfg.ClientConfig(),
		API:    api,
		Tokens: tokens,
		Logger: logger,
		OnError: func(err error) {
			logger.WithError(err).Warn("Stream error")
			if o.Verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
		},
	}), nil
}

// restore opens a session and requires a stored login.
func (o *options) restore(cmd *cobra.Command) (*session.Session, error) {
	s, err := o.openSession(cmd)
	if err != nil {
		return nil, err
	}
	ok, err := s.Bootstrap()
	if err != nil {
		s.Close()
		return nil, err
	}
	if !ok {
		s.Close()
		return nil, fmt.Errorf("not logged in; run 'roomchat login' first")
	}
	return s, nil
}
