package config

import "strings"

// Sanitize returns a copy of the config with the password masked, for
// printing and logging.
func Sanitize(cfg *CLIConfig) *CLIConfig {
	sanitized := *cfg
	if sanitized.Redis.Password != "" {
		sanitized.Redis.Password = maskSecret(sanitized.Redis.Password)
	}
	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
