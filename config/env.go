package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

var envVarPatterns = struct {
	withDefault *regexp.Regexp
	braced      *regexp.Regexp
	simple      *regexp.Regexp
}{
	withDefault: regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*):-(.*?)\}`),
	braced:      regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`),
	simple:      regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`),
}

// ExpandEnv replaces ${VAR:-default}, ${VAR} and $VAR references in s.
// Unset variables expand to the default or to "".
func ExpandEnv(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = envVarPatterns.withDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.withDefault.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})

	s = envVarPatterns.braced.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPatterns.braced.FindStringSubmatch(match)[1])
	})

	return envVarPatterns.simple.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPatterns.simple.FindStringSubmatch(match)[1])
	})
}

// ExpandEnvInData walks decoded YAML and expands every string value.
func ExpandEnvInData(data any) any {
	switch v := data.(type) {
	case string:
		return ExpandEnv(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = ExpandEnvInData(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ExpandEnvInData(item)
		}
		return out
	default:
		return v
	}
}

// LoadDotEnv loads environment files without overwriting variables that are
// already set. Explicit paths are loaded first, then ./.env. When APP_ENV is
// set, .env.<APP_ENV> is loaded last and overrides earlier values. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	candidates := append([]string{}, paths...)
	candidates = append(candidates, ".env")

	for _, path := range candidates {
		if path == "" || !fileExists(path) {
			continue
		}

		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		path := ".env." + env
		if fileExists(path) {
			if err := godotenv.Overload(path); err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	return nil
}

// APIKeyEnv returns the environment variable holding a provider's API key.
func APIKeyEnv(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// apiKeyFromEnv looks up a provider key; claude also accepts
// ANTHROPIC_API_KEY.
func apiKeyFromEnv(provider string) string {
	if v := os.Getenv(APIKeyEnv(provider)); v != "" {
		return v
	}

	if provider == "claude" {
		return os.Getenv("ANTHROPIC_API_KEY")
	}

	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
