package config

// Default values for optional settings. Anything the config file leaves
// unset gets these.
const (
	DefaultListen                = ":8080"
	DefaultLogLevel              = "info"
	DefaultLogFormat             = "text"
	DefaultLogOutput             = "stdout"
	DefaultModel                 = "gpt-4o-mini"
	DefaultTemperature           = 0.4
	DefaultMaxTokens             = 2048
	DefaultLLMTimeoutSeconds     = 120
	DefaultMaxTurns              = 4
	DefaultSearchEndpoint        = "https://api.search.brave.com/res/v1/web/search"
	DefaultSearchMaxResults      = 5
	DefaultSearchTimeoutSeconds  = 15
	DefaultPageTimeoutSeconds    = 20
	DefaultPageMaxChars          = 8000
	DefaultPageUserAgent         = "stockpilot/1.0 (+https://github.com/stockpilot)"
	DefaultStepDelaySeconds      = 5
	DefaultSchedulePath          = "schedule.json"
	DefaultMissedWindowHours     = 24
	DefaultMissedRunDelaySeconds = 10
	DefaultHubBuffer             = 16
	DefaultKeepaliveSeconds      = 30
	DefaultStocksPath            = "stockapp.json"
	DefaultFeedEndpoint          = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultFeedTimeoutSeconds    = 15
	DefaultEmailPath             = "email.json"
	DefaultSMTPPort              = 587
)

// DefaultStripPatterns are the meta-commentary patterns removed from the
// loop's final answer when the config file does not override them. The model
// is instructed to narrate its reasoning inline, so leading lines like
// "I will now search for recent news" are expected and must not leak into
// the report.
var DefaultStripPatterns = []string{
	`(?i)^(okay|sure|alright|certainly)[,.!]?\s*`,
	`(?i)^(i('| a)ll|i will|let me|i am going to|i'm going to)\s+(now\s+)?(search|look|fetch|check|start|begin)[^\n]*\n+`,
	`(?i)^(first|next|now),?\s+i('| wi)ll[^\n]*\n+`,
	`(?i)^(based on (my|the) (search(es)?|results|findings),?\s*)`,
	`(?i)\n+(let me know if[^\n]*|i hope (this|that) helps[^\n]*|feel free to[^\n]*)$`,
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = DefaultLogOutput
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.OpenAI.Model == "" {
		cfg.LLM.OpenAI.Model = DefaultModel
	}
	if cfg.LLM.OpenAI.Temperature == 0 {
		cfg.LLM.OpenAI.Temperature = DefaultTemperature
	}
	if cfg.LLM.OpenAI.MaxTokens == 0 {
		cfg.LLM.OpenAI.MaxTokens = DefaultMaxTokens
	}
	if cfg.LLM.OpenAI.TimeoutSeconds == 0 {
		cfg.LLM.OpenAI.TimeoutSeconds = DefaultLLMTimeoutSeconds
	}
	if cfg.Report.MaxTurns == 0 {
		cfg.Report.MaxTurns = DefaultMaxTurns
	}
	if len(cfg.Report.StripPatterns) == 0 {
		cfg.Report.StripPatterns = DefaultStripPatterns
	}
	if cfg.Tools.Search.Endpoint == "" {
		cfg.Tools.Search.Endpoint = DefaultSearchEndpoint
	}
	if cfg.Tools.Search.MaxResults == 0 {
		cfg.Tools.Search.MaxResults = DefaultSearchMaxResults
	}
	if cfg.Tools.Search.TimeoutSeconds == 0 {
		cfg.Tools.Search.TimeoutSeconds = DefaultSearchTimeoutSeconds
	}
	if cfg.Tools.Page.TimeoutSeconds == 0 {
		cfg.Tools.Page.TimeoutSeconds = DefaultPageTimeoutSeconds
	}
	if cfg.Tools.Page.MaxChars == 0 {
		cfg.Tools.Page.MaxChars = DefaultPageMaxChars
	}
	if cfg.Tools.Page.UserAgent == "" {
		cfg.Tools.Page.UserAgent = DefaultPageUserAgent
	}
	if cfg.Chain.StepDelaySeconds == 0 {
		cfg.Chain.StepDelaySeconds = DefaultStepDelaySeconds
	}
	if cfg.Schedule.Path == "" {
		cfg.Schedule.Path = DefaultSchedulePath
	}
	if cfg.Schedule.MissedWindowHours == 0 {
		cfg.Schedule.MissedWindowHours = DefaultMissedWindowHours
	}
	if cfg.Schedule.MissedRunDelaySeconds == 0 {
		cfg.Schedule.MissedRunDelaySeconds = DefaultMissedRunDelaySeconds
	}
	if cfg.Hub.Buffer == 0 {
		cfg.Hub.Buffer = DefaultHubBuffer
	}
	if cfg.Hub.KeepaliveSeconds == 0 {
		cfg.Hub.KeepaliveSeconds = DefaultKeepaliveSeconds
	}
	if cfg.Stocks.Path == "" {
		cfg.Stocks.Path = DefaultStocksPath
	}
	if cfg.Stocks.FeedEndpoint == "" {
		cfg.Stocks.FeedEndpoint = DefaultFeedEndpoint
	}
	if cfg.Stocks.TimeoutSeconds == 0 {
		cfg.Stocks.TimeoutSeconds = DefaultFeedTimeoutSeconds
	}
	if cfg.Email.Path == "" {
		cfg.Email.Path = DefaultEmailPath
	}
	if cfg.Email.SMTP.Port == 0 {
		cfg.Email.SMTP.Port = DefaultSMTPPort
	}
}
