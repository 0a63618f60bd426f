// Package config holds the settings shared by the detkit commands and the
// MCP server.
//
// Settings are layered: the embedded defaults.yaml, then an optional YAML
// file, then DETKIT_* environment variables (a .env file is loaded into the
// environment by the command before this package reads it), then command
// line flags applied by the caller.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DETKIT_"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the full set of tunables.
type Config struct {
	TrainRatio      float64  `yaml:"train_ratio" json:"train_ratio"`
	AllowEmpty      bool     `yaml:"allow_empty" json:"allow_empty"`
	EmptyRatio      float64  `yaml:"empty_ratio" json:"empty_ratio"`
	SampleLimit     int      `yaml:"sample_limit" json:"sample_limit"`
	Seed            int64    `yaml:"seed" json:"seed"`
	BBoxFormat      string   `yaml:"bbox_format" json:"bbox_format"`
	ImageExtensions []string `yaml:"image_extensions" json:"image_extensions"`
	ScoreThreshold  float64  `yaml:"score_threshold" json:"score_threshold"`
	LogLevel        string   `yaml:"log_level" json:"log_level"`
	LogFile         string   `yaml:"log_file" json:"log_file"`
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults are malformed: %v", err))
	}
	return cfg
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// not empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DETKIT_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	float := func(key string, dst *float64) {
		if v, ok := get(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q is not a number", ErrInvalid, EnvPrefix, key, v))
				return
			}
			*dst = f
		}
	}

	float("TRAIN_RATIO", &c.TrainRatio)
	float("EMPTY_RATIO", &c.EmptyRatio)
	float("SCORE_THRESHOLD", &c.ScoreThreshold)

	if v, ok := get("ALLOW_EMPTY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %sALLOW_EMPTY=%q is not a boolean", ErrInvalid, EnvPrefix, v))
		} else {
			c.AllowEmpty = b
		}
	}
	if v, ok := get("SAMPLE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %sSAMPLE_LIMIT=%q is not an integer", ErrInvalid, EnvPrefix, v))
		} else {
			c.SampleLimit = n
		}
	}
	if v, ok := get("SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %sSEED=%q is not an integer", ErrInvalid, EnvPrefix, v))
		} else {
			c.Seed = n
		}
	}
	if v, ok := get("BBOX_FORMAT"); ok {
		c.BBoxFormat = v
	}
	if v, ok := get("IMAGE_EXTENSIONS"); ok {
		c.ImageExtensions = SplitList(v)
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("LOG_FILE"); ok {
		c.LogFile = v
	}
	return errors.Join(errs...)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, args...)...))
	}

	if math.IsNaN(c.TrainRatio) || c.TrainRatio < 0 || c.TrainRatio > 1 {
		bad("train_ratio %g must be within [0,1]", c.TrainRatio)
	}
	if math.IsNaN(c.EmptyRatio) {
		bad("empty_ratio must be a number")
	}
	if math.IsNaN(c.ScoreThreshold) || c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		bad("score_threshold %g must be within [0,1]", c.ScoreThreshold)
	}
	switch strings.ToLower(c.BBoxFormat) {
	case "xyxy", "xywh":
	default:
		bad("bbox_format %q must be xyxy or xywh", c.BBoxFormat)
	}
	if len(c.ImageExtensions) == 0 {
		bad("image_extensions must not be empty")
	}
	for _, ext := range c.ImageExtensions {
		if strings.TrimSpace(strings.TrimPrefix(ext, ".")) == "" {
			bad("image_extensions contains an empty entry")
			break
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		bad("log_level %q must be debug, info, warn or error", c.LogLevel)
	}
	return errors.Join(errs...)
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
