package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from a TOML file, applies defaults and expands
// environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate checks the configuration for consistency. It returns all problems
// found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errors []error

	if c.Server.Listen == "" {
		errors = append(errors, fmt.Errorf("server.listen is required"))
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			errors = append(errors, fmt.Errorf("llm.openai.api_key is required when provider is 'openai'"))
		} else if len(c.LLM.OpenAI.APIKey) < 10 {
			errors = append(errors, fmt.Errorf("llm.openai.api_key is too short (minimum 10 characters, got %d)", len(c.LLM.OpenAI.APIKey)))
		}
	case "mock":
		// Mock provider needs no credentials.
	case "":
		errors = append(errors, fmt.Errorf("llm.provider is required"))
	default:
		errors = append(errors, fmt.Errorf("invalid llm.provider: %s (expected: openai, mock)", c.LLM.Provider))
	}

	if c.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}

	if c.Logging.Format != "" {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Tools.Search.Enabled && c.Tools.Search.APIKey == "" {
		errors = append(errors, fmt.Errorf("tools.search.api_key is required when the search tool is enabled"))
	}

	if c.Report.MaxTurns < 1 {
		errors = append(errors, fmt.Errorf("report.max_turns must be at least 1"))
	}

	if c.Schedule.MissedWindowHours < 0 {
		errors = append(errors, fmt.Errorf("schedule.missed_window_hours cannot be negative"))
	}

	if c.Email.SMTP.Enabled {
		if c.Email.SMTP.Host == "" {
			errors = append(errors, fmt.Errorf("email.smtp.host is required when SMTP dispatch is enabled"))
		}
		if c.Email.SMTP.From == "" || c.Email.SMTP.To == "" {
			errors = append(errors, fmt.Errorf("email.smtp.from and email.smtp.to are required when SMTP dispatch is enabled"))
		}
	}

	if c.Email.Telegram.Enabled {
		if c.Email.Telegram.Token == "" {
			errors = append(errors, fmt.Errorf("email.telegram.token is required when telegram dispatch is enabled"))
		}
		if c.Email.Telegram.ChatID == 0 {
			errors = append(errors, fmt.Errorf("email.telegram.chat_id is required when telegram dispatch is enabled"))
		}
	}

	return errors
}

// expandEnvVars expands ${VAR} references for secrets and ~ in file paths.
func expandEnvVars(c *Config) {
	c.LLM.OpenAI.APIKey = expandEnv(c.LLM.OpenAI.APIKey)
	c.Tools.Search.APIKey = expandEnv(c.Tools.Search.APIKey)
	c.Email.SMTP.Password = expandEnv(c.Email.SMTP.Password)
	c.Email.SMTP.Username = expandEnv(c.Email.SMTP.Username)
	c.Email.Telegram.Token = expandEnv(c.Email.Telegram.Token)

	c.Schedule.Path = expandHome(c.Schedule.Path)
	c.Stocks.Path = expandHome(c.Stocks.Path)
	c.Email.Path = expandHome(c.Email.Path)
}

// expandEnv resolves a ${VAR} or ${VAR:default} reference.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		key := parts[0]
		defaultVal := parts[1]
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	return os.Getenv(content)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
