// Package config provides configuration loading and validation for stockpilot.
// It supports TOML configuration files with environment variable expansion,
// default values, and comprehensive validation.
//
// Configuration structure:
//   - [server]: HTTP listen address
//   - [logging]: Logging level, format, and output
//   - [llm]: LLM provider configuration (OpenAI, mock)
//   - [report]: Agentic synthesis loop settings
//   - [tools]: Tool configurations (search, page)
//   - [chain]: Chain execution settings
//   - [schedule]: Trigger record path and recovery settings
//   - [hub]: Event broadcast hub settings
//   - [stocks]: Portfolio record and price feed settings
//   - [email]: Report record, SMTP and Telegram dispatch settings
//
// Environment variables can be referenced using ${VAR} or ${VAR:default} syntax,
// for example: api_key = "${OPENAI_API_KEY}".
package config

// Config represents the main application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
	LLM      LLMConfig      `toml:"llm"`
	Report   ReportConfig   `toml:"report"`
	Tools    ToolsConfig    `toml:"tools"`
	Chain    ChainConfig    `toml:"chain"`
	Schedule ScheduleConfig `toml:"schedule"`
	Hub      HubConfig      `toml:"hub"`
	Stocks   StocksConfig   `toml:"stocks"`
	Email    EmailConfig    `toml:"email"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	Provider string       `toml:"provider"` // openai, mock
	OpenAI   OpenAIConfig `toml:"openai"`
}

// OpenAIConfig holds the OpenAI provider settings.
type OpenAIConfig struct {
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// ReportConfig holds settings for the agentic synthesis loop.
type ReportConfig struct {
	MaxTurns int `toml:"max_turns"`

	// StripPatterns are regular expressions removed from the leading and
	// trailing lines of the final answer (model meta-commentary such as
	// "I will now search for...").
	StripPatterns []string `toml:"strip_patterns"`
}

// ToolsConfig holds tool configurations.
type ToolsConfig struct {
	Search SearchToolConfig `toml:"search"`
	Page   PageToolConfig   `toml:"page"`
}

// SearchToolConfig holds the web search tool settings.
type SearchToolConfig struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	Endpoint       string `toml:"endpoint"`
	MaxResults     int    `toml:"max_results"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// PageToolConfig holds the fetch-and-summarize tool settings.
type PageToolConfig struct {
	Enabled        bool   `toml:"enabled"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxChars       int    `toml:"max_chars"`
	UserAgent      string `toml:"user_agent"`
}

// ChainConfig holds chain execution settings.
type ChainConfig struct {
	StepDelaySeconds int `toml:"step_delay_seconds"`
}

// ScheduleConfig holds trigger record and recovery settings.
type ScheduleConfig struct {
	Path                  string `toml:"path"`
	MissedWindowHours     int    `toml:"missed_window_hours"`
	MissedRunDelaySeconds int    `toml:"missed_run_delay_seconds"`

	// Cron is an optional recurring schedule (standard 5-field cron spec).
	// It runs the chain in addition to the one-shot trigger record.
	Cron string `toml:"cron"`
}

// HubConfig holds event broadcast hub settings.
type HubConfig struct {
	Buffer           int `toml:"buffer"`
	KeepaliveSeconds int `toml:"keepalive_seconds"`
}

// StocksConfig holds portfolio record and price feed settings.
type StocksConfig struct {
	Path           string `toml:"path"`
	FeedEndpoint   string `toml:"feed_endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// EmailConfig holds report record and dispatch settings.
type EmailConfig struct {
	Path     string         `toml:"path"`
	SMTP     SMTPConfig     `toml:"smtp"`
	Telegram TelegramConfig `toml:"telegram"`
}

// SMTPConfig holds SMTP dispatch settings.
type SMTPConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
	To       string `toml:"to"`
}

// TelegramConfig holds the optional Telegram notification settings.
type TelegramConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
	ChatID  int64  `toml:"chat_id"`
}
