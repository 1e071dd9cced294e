package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the first non-blank value among key and its aliases.
func lookup(key string, aliases ...string) (string, bool) {
	for _, k := range append([]string{key}, aliases...) {
		if value, ok := os.LookupEnv(k); ok {
			if v := strings.TrimSpace(value); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func getEnv(key, defaultVal string, aliases ...string) string {
	if value, ok := lookup(key, aliases...); ok {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int, aliases ...string) int {
	if value, ok := lookup(key, aliases...); ok {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	value, ok := lookup(key)
	if !ok {
		return defaultVal
	}
	switch strings.ToLower(value) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if v, err := strconv.ParseBool(value); err == nil {
		return v
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value, ok := lookup(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvAsStringSlice(key string, defaults []string) []string {
	value, ok := lookup(key)
	if !ok {
		return defaults
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaults
	}
	return out
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value, ok := lookup(key); ok {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultVal
}
