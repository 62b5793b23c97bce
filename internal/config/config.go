// Package config loads the engine configuration.
//
// Precedence, lowest to highest: built-in defaults, YAML file, environment
// (CALLQ_*). A .env file is loaded into the environment first when present.
// The merged result is validated against a CUE schema.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Call modes.
const (
	ModeAsynchronous = "asynchronous"
	ModeSynchronous  = "synchronous"
)

// Defaults.
const (
	DefaultCommandQueueSize = 1000
	DefaultRequestQueueSize = 1000
	DefaultResponseDelay    = time.Second
	DefaultExpiration       = 10 * time.Second
	DefaultRetry            = 5
	DefaultMethod           = "POST"
	DefaultMode             = ModeAsynchronous
	DefaultContentType      = "application/x-www-form-urlencoded; charset=utf-8"
)

// Environment variable names.
const (
	EnvCommandQueueSize = "CALLQ_COMMAND_QUEUE_SIZE"
	EnvRequestQueueSize = "CALLQ_REQUEST_QUEUE_SIZE"
	EnvResponseDelay    = "CALLQ_RESPONSE_DELAY"
	EnvExpiration       = "CALLQ_EXPIRATION"
	EnvRetry            = "CALLQ_RETRY"
	EnvMethod           = "CALLQ_METHOD"
	EnvMode             = "CALLQ_MODE"
	EnvURI              = "CALLQ_URI"
)

// Config holds the recognized engine options.
type Config struct {
	// CommandQueueSize is the capacity of each response's command queue.
	CommandQueueSize int `yaml:"command_queue_size" json:"command_queue_size"`

	// RequestQueueSize is the capacity of the scheduler send/receive queues.
	RequestQueueSize int `yaml:"request_queue_size" json:"request_queue_size"`

	// ResponseDelay arms the onResponseDelay hook after a call is submitted.
	ResponseDelay time.Duration `yaml:"response_delay" json:"response_delay"`

	// Expiration arms the onExpiration hook after a call is submitted.
	Expiration time.Duration `yaml:"expiration" json:"expiration"`

	// Retry is how many times a call is resubmitted after a transport error.
	Retry int `yaml:"retry" json:"retry"`

	Method      string            `yaml:"method" json:"method"`
	Mode        string            `yaml:"mode" json:"mode"`
	URI         string            `yaml:"uri" json:"uri"`
	ContentType string            `yaml:"content_type" json:"content_type"`
	Headers     map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CommandQueueSize: DefaultCommandQueueSize,
		RequestQueueSize: DefaultRequestQueueSize,
		ResponseDelay:    DefaultResponseDelay,
		Expiration:       DefaultExpiration,
		Retry:            DefaultRetry,
		Method:           DefaultMethod,
		Mode:             DefaultMode,
		ContentType:      DefaultContentType,
	}
}

// Options controls where Load looks.
type Options struct {
	// Path is the YAML config file. Empty means none.
	Path string

	// DotenvPath is loaded into the environment before env overrides are
	// read. A missing file is ignored.
	DotenvPath string
}

// Load builds a validated Config from defaults, file and environment.
func Load(opts Options) (Config, error) {
	cfg := Default()

	if opts.Path != "" {
		if err := mergeFile(&cfg, opts.Path); err != nil {
			return Config{}, err
		}
	}

	loadDotenv(opts.DotenvPath)

	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg.Method = strings.ToUpper(cfg.Method)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML bytes over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadDotenv(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("load dotenv failed", "path", path, "error", err)
		}
	}
}

func mergeEnv(cfg *Config) error {
	ints := []struct {
		key string
		dst *int
	}{
		{EnvCommandQueueSize, &cfg.CommandQueueSize},
		{EnvRequestQueueSize, &cfg.RequestQueueSize},
		{EnvRetry, &cfg.Retry},
	}
	for _, e := range ints {
		v, ok, err := getenvIntStrict(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{EnvResponseDelay, &cfg.ResponseDelay},
		{EnvExpiration, &cfg.Expiration},
	}
	for _, e := range durations {
		v, ok, err := getenvDurationStrict(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	strs := []struct {
		key string
		dst *string
	}{
		{EnvMethod, &cfg.Method},
		{EnvMode, &cfg.Mode},
		{EnvURI, &cfg.URI},
	}
	for _, e := range strs {
		v, ok, err := getenvStringStrict(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}
	return nil
}

func getenvStringStrict(key string) (string, bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false, nil
	}
	if v == "" {
		return "", true, fmt.Errorf("env %s is empty", key)
	}
	return v, true, nil
}

func getenvIntStrict(key string) (int, bool, error) {
	s, ok, err := getenvStringStrict(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("env %s invalid integer: %w", key, err)
	}
	return n, true, nil
}

func getenvDurationStrict(key string) (time.Duration, bool, error) {
	s, ok, err := getenvStringStrict(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, true, fmt.Errorf("env %s invalid duration: %w", key, err)
	}
	return d, true, nil
}
