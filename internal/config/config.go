// Package config loads cxxfilt settings from the environment and an
// optional dotenv file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/skdltmxn/cxxfilt-go/demangle"
)

// Environment variable names.
const (
	EnvShowElided      = "CXXFILT_SHOW_ELIDED"
	EnvExpandStd       = "CXXFILT_EXPAND_STD"
	EnvNoParams        = "CXXFILT_NO_PARAMS"
	EnvStripUnderscore = "CXXFILT_STRIP_UNDERSCORE"
	EnvJobs            = "CXXFILT_JOBS"
	EnvColor           = "CXXFILT_COLOR"
	EnvVerbose         = "CXXFILT_VERBOSE"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var ErrInvalidValue = errors.New("config: invalid value")

type Config struct {
	ShowElided      bool
	ExpandStd       bool
	NoParams        bool
	StripUnderscore bool
	Jobs            int
	Color           string
	Verbose         bool
}

func Default() Config {
	return Config{Jobs: 1, Color: ColorAuto}
}

// FromLookup builds a Config from the variables visible through lookup,
// starting from the defaults.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	bools := []struct {
		key string
		dst *bool
	}{
		{EnvShowElided, &cfg.ShowElided},
		{EnvExpandStd, &cfg.ExpandStd},
		{EnvNoParams, &cfg.NoParams},
		{EnvStripUnderscore, &cfg.StripUnderscore},
		{EnvVerbose, &cfg.Verbose},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q", ErrInvalidValue, b.key, v)
		}
		*b.dst = parsed
	}

	if v, ok := lookup(EnvJobs); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvJobs, v)
		}
		cfg.Jobs = n
	}

	if v, ok := lookup(EnvColor); ok && v != "" {
		if err := ValidateColor(v); err != nil {
			return cfg, err
		}
		cfg.Color = v
	}
	return cfg, nil
}

// ValidateColor checks a --color / CXXFILT_COLOR value.
func ValidateColor(mode string) error {
	switch mode {
	case ColorAuto, ColorAlways, ColorNever:
		return nil
	}
	return fmt.Errorf("%w: color mode %q (want auto, always or never)", ErrInvalidValue, mode)
}

// Load reads the process environment. When envFile is set its variables
// are used for keys the environment does not define.
func Load(envFile string) (Config, error) {
	var fileVars map[string]string
	if envFile != "" {
		var err error
		fileVars, err = godotenv.Read(envFile)
		if err != nil {
			return Default(), fmt.Errorf("config: reading %s: %w", envFile, err)
		}
	}
	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	})
}

// DemangleOptions returns the rendering options selected by c.
func (c Config) DemangleOptions() []demangle.Option {
	var opts []demangle.Option
	if c.ShowElided {
		opts = append(opts, demangle.WithShowElided())
	}
	if c.ExpandStd {
		opts = append(opts, demangle.WithExpandStd())
	}
	if c.NoParams {
		opts = append(opts, demangle.WithNoParams())
	}
	return opts
}

// RenderOptions is DemangleOptions in struct form.
func (c Config) RenderOptions() demangle.Options {
	return demangle.Options{
		ShowElided: c.ShowElided,
		ExpandStd:  c.ExpandStd,
		NoParams:   c.NoParams,
	}
}
