package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix is the prefix for environment overrides.
	EnvPrefix = "DARTRAG_"
)

// Options control where configuration is read from.
type Options struct {
	// ConfigPath is an optional YAML file. Missing files are ignored.
	ConfigPath string

	// DotEnvPath is an optional .env file. Existing environment variables win.
	DotEnvPath string
}

// Load resolves configuration.
//
// Precedence (highest to lowest):
//  1. DARTRAG_* environment variables (DARTRAG_SECTION_FIELD -> section.field)
//  2. Unprefixed variables from the original deployment (OPENAI_API_KEY,
//     NAVER_CLIENT_ID, NAVER_CLIENT_SECRET) for fields still unset
//  3. YAML config file
//  4. Defaults
//
// Variables from the .env file are merged into the process environment first.
func Load(opts Options) (*Config, error) {
	if opts.DotEnvPath != "" {
		if err := godotenv.Load(opts.DotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", opts.DotEnvPath, err)
		}
	}

	k := koanf.New(".")

	if opts.ConfigPath != "" {
		content, err := readConfigFile(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", opts.ConfigPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyLegacyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envKey maps DARTRAG_VECTORSTORE_CHROMEM_PATH to vectorstore.chromem_path.
// Only the first underscore after the prefix separates section from field.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func applyLegacyEnv(cfg *Config) {
	if !cfg.OpenAI.APIKey.IsSet() {
		cfg.OpenAI.APIKey = Secret(os.Getenv("OPENAI_API_KEY"))
	}
	if cfg.News.ClientID == "" {
		cfg.News.ClientID = os.Getenv("NAVER_CLIENT_ID")
	}
	if !cfg.News.ClientSecret.IsSet() {
		cfg.News.ClientSecret = Secret(os.Getenv("NAVER_CLIENT_SECRET"))
	}
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// Validate through the open descriptor to avoid a TOCTOU race.
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", info.Name())
	}
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o002 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (world-writable)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
