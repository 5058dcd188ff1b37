package config

// Config represents the distill configuration
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	Generation GenerationConfig `mapstructure:"generation"`
	Export     ExportConfig     `mapstructure:"export"`
	Usage      UsageConfig      `mapstructure:"usage"`
	Log        LogConfig        `mapstructure:"log"`
}

// LLMConfig configures model providers and request pacing
type LLMConfig struct {
	Default           string                    `mapstructure:"default"`             // Provider key used when --model is omitted
	Providers         map[string]ProviderConfig `mapstructure:"providers"`           // Keyed by model name passed to --model
	MaxRetries        int                       `mapstructure:"max_retries"`         // Attempts per request including the first (default: 3)
	RequestsPerMinute int                       `mapstructure:"requests_per_minute"` // 0 = unlimited
	TimeoutSeconds    int                       `mapstructure:"timeout_seconds"`     // Per-request HTTP timeout
}

// ProviderConfig configures one chat-completion endpoint
type ProviderConfig struct {
	Kind        string   `mapstructure:"kind"`        // "openai" (any OpenAI-compatible API), "openrouter" or "anthropic"
	APIKey      string   `mapstructure:"api_key"`     // Supports ${VAR} and ${VAR:default}
	BaseURL     string   `mapstructure:"base_url"`    // e.g., "https://api.deepseek.com/v1"
	Model       string   `mapstructure:"model"`       // e.g., "deepseek-chat"
	Temperature *float64 `mapstructure:"temperature"` // nil = default 0.7
	MaxTokens   *int     `mapstructure:"max_tokens"`  // nil = default 2048
	TopP        *float64 `mapstructure:"top_p"`       // nil = default 0.9
}

// Provider kinds
const (
	KindOpenAI     = "openai"
	KindOpenRouter = "openrouter"
	KindAnthropic  = "anthropic"
)

// Sampling defaults applied when a provider leaves them unset
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
	DefaultTopP        = 0.9
)

// GenerationConfig holds pipeline defaults; CLI flags override them
type GenerationConfig struct {
	Language             string  `mapstructure:"language"`               // "en" or "zh"
	Workers              int     `mapstructure:"workers"`                // Concurrent requests per stage (default: 1)
	Seed                 uint64  `mapstructure:"seed"`                   // 0 = random seed per run
	Levels               int     `mapstructure:"levels"`                 // Taxonomy depth
	TagsPerLevel         int     `mapstructure:"tags_per_level"`         // Children requested per parent
	QuestionsPerTag      int     `mapstructure:"questions_per_tag"`      // Questions per intent
	ConversationsPerTag  int     `mapstructure:"conversations_per_tag"`  // Conversations per intent
	TurnsPerConversation int     `mapstructure:"turns_per_conversation"` // User+assistant pairs
	TransitionRate       float64 `mapstructure:"transition_rate"`        // Probability in [0,1]
	LeafOnly             bool    `mapstructure:"leaf_only"`              // Generate only for leaf intents
}

// ExportConfig configures dataset export
type ExportConfig struct {
	OutputDir    string `mapstructure:"output_dir"`    // Directory for generated files
	Format       string `mapstructure:"format"`        // Default export format
	SystemPrompt string `mapstructure:"system_prompt"` // Alpaca instruction / ShareGPT system message
}

// UsageConfig configures LLM usage tracking
type UsageConfig struct {
	DBPath string `mapstructure:"db_path"` // SQLite path; empty disables tracking
}

// LogConfig configures logging sinks
type LogConfig struct {
	File       string `mapstructure:"file"`        // Rotating JSON log file; empty disables
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // Rotation threshold
	MaxBackups int    `mapstructure:"max_backups"` // Rotated files kept
	JSON       bool   `mapstructure:"json"`        // JSON console output
	Theme      string `mapstructure:"theme"`       // Console palette: everforest, gruvbox
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
