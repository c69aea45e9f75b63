package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// FileEnv names the optional YAML config file.
	FileEnv = "DASHBOARD_CONFIG"

	envPrefix = "DASHBOARD_"
)

// bareEnv are read without the DASHBOARD_ prefix.
var bareEnv = map[string]string{
	"BUILD_NUMBER": "build_number",
	"API_USER":     "api_user",
	"API_PASS":     "api_pass",
	"PORT":         "port",
	"DEBUG":        "debug",
}

// Load builds a Config. Precedence (low -> high):
//  1. defaults (New)
//  2. YAML file named by DASHBOARD_CONFIG
//  3. environment: BUILD_NUMBER, API_USER, API_PASS, PORT, DEBUG and DASHBOARD_<KEY>
//
// A .env file in the working directory is loaded first; it never overrides
// variables that are already set. Empty variables count as unset.
func Load(_ context.Context) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrLoadConfig, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps an environment variable to a config key; "" skips it.
func envKey(name, value string) (string, any) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	if key, ok := bareEnv[name]; ok {
		return key, value
	}
	if name == FileEnv || !strings.HasPrefix(name, envPrefix) {
		return "", nil
	}
	return strings.ToLower(strings.TrimPrefix(name, envPrefix)), value
}
