package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ragchat/logx"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var ErrMissingSetting = errors.New("missing required setting")

type Config struct {
	Port string `envconfig:"PORT" default:"8000"`

	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`
	TokenCountModel string `envconfig:"TOKEN_COUNT_MODEL" default:"claude-3-7-sonnet-20250219"`
	MaxTokens       int64  `envconfig:"MAX_TOKENS" default:"3500"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-pro"`

	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	FormatterModel   string `envconfig:"FORMATTER_MODEL" default:"gpt-4o-mini"`
	FormatterEnabled bool   `envconfig:"FORMATTER_ENABLED" default:"true"`

	VectorStore        string `envconfig:"VECTOR_STORE" default:"pinecone"`
	PineconeAPIKey     string `envconfig:"PINECONE_API_KEY"`
	PineconeIndexName  string `envconfig:"PINECONE_INDEX_NAME" default:"ragchat-index"`
	PineconeCloud      string `envconfig:"PINECONE_CLOUD" default:"aws"`
	PineconeRegion     string `envconfig:"PINECONE_REGION" default:"us-east-1"`
	EmbeddingDimension int32  `envconfig:"EMBEDDING_DIMENSION" default:"1536"`

	DatabaseURL string `envconfig:"DB_URL"`

	DefaultModel        string        `envconfig:"DEFAULT_MODEL" default:"claude"`
	MaxTurns            int           `envconfig:"MAX_TURNS" default:"10"`
	QueryTimeout        time.Duration `envconfig:"QUERY_TIMEOUT" default:"5m"`
	ToolServer          string        `envconfig:"TOOL_SERVER"`
	ConversationsDir    string        `envconfig:"CONVERSATIONS_DIR" default:"conversations"`
	HistoryAuthor       string        `envconfig:"HISTORY_AUTHOR" default:"ragchat"`
	ClearHistoryOnStart bool          `envconfig:"CLEAR_HISTORY_ON_START" default:"true"`

	DatasetBaseURL string `envconfig:"DATASET_BASE_URL" default:"https://datasets-server.huggingface.co"`

	Log logx.Config `envconfig:"LOG"`
}

// Load reads .env (if present), then the optional CONFIG_FILE, then decodes
// the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := exportConfigFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// exportConfigFile copies every key of the file into the environment.
// Variables already set in the environment win.
func exportConfigFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if _, exists := os.LookupEnv(envKey); exists {
			continue
		}
		if err := os.Setenv(envKey, fmt.Sprint(v.Get(key))); err != nil {
			return err
		}
	}

	return nil
}

// UseMemoryStore reports whether collections live in process memory instead
// of Pinecone.
func (c *Config) UseMemoryStore() bool {
	return strings.EqualFold(strings.TrimSpace(c.VectorStore), "memory")
}

// Validate reports the settings the HTTP server and chat client cannot run
// without. Optional integrations (Gemini, formatter, Postgres) are checked
// where they are wired.
func (c *Config) Validate() error {
	var missing []string
	if c.AnthropicAPIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if !c.UseMemoryStore() {
		if c.PineconeAPIKey == "" {
			missing = append(missing, "PINECONE_API_KEY")
		}
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	}
	if c.MaxTurns <= 0 {
		return fmt.Errorf("MAX_TURNS must be positive, got %d", c.MaxTurns)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	return nil
}
