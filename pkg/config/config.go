package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the reporting engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"5000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"`

	// Database holds chats, feedback and schema embeddings.
	Database DatabaseConfig `yaml:"database"`

	Metabase   MetabaseConfig   `yaml:"metabase"`
	AI         AIConfig         `yaml:"ai"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`

	// TenantsFile maps tenant ids to BI databases and collections.
	TenantsFile string `yaml:"tenants_file" env:"TENANTS_FILE" env-default:"tenant_config.json"`

	// Tenants is populated from TenantsFile at load time.
	Tenants *Tenants `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User           string `yaml:"user" env:"DB_USER" env-default:"unity_user"`
	Password       string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"DB_NAME" env-default:"unity_ai"`
	MaxConnections int32  `yaml:"max_connections" env:"DB_MAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"DB_MIGRATIONS_PATH" env-default:"migrations"`
}

// MetabaseConfig holds BI backend settings.
type MetabaseConfig struct {
	URL               string        `yaml:"url" env:"MB_URL" env-default:""`
	APIKey            string        `yaml:"-" env:"METABASE_KEY"`    // Secret - not in YAML
	EmbedSecret       string        `yaml:"-" env:"MB_EMBED_SECRET"` // Secret - not in YAML
	DefaultDBID       int           `yaml:"default_db_id" env:"MB_EMBED_ID" env-default:"3"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"MB_REQUEST_TIMEOUT" env-default:"60s"`
	ValidationTimeout time.Duration `yaml:"validation_timeout" env:"MB_VALIDATION_TIMEOUT" env-default:"10s"`
	PollInterval      time.Duration `yaml:"poll_interval" env:"MB_POLL_INTERVAL" env-default:"500ms"`
}

// AIConfig holds completion and embedding model settings.
type AIConfig struct {
	// Provider is openai, azure or anthropic. Empty means azure when the Azure
	// settings are complete, openai otherwise.
	Provider    string  `yaml:"provider" env:"AI_PROVIDER" env-default:""`
	Model       string  `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.2"`
	KSamples    int     `yaml:"k_samples" env:"AI_K_SAMPLES" env-default:"7"`
	// MaxConcurrent bounds in-flight completions. Zero means KSamples.
	MaxConcurrent int `yaml:"max_concurrent" env:"AI_MAX_CONCURRENT" env-default:"0"`

	CompletionEndpoint string `yaml:"completion_endpoint" env:"COMPLETION_ENDPOINT" env-default:""`
	CompletionKey      string `yaml:"-" env:"COMPLETION_KEY"` // Secret - not in YAML
	EmbeddingModel     string `yaml:"embedding_model" env:"EMBEDDING_MODEL" env-default:"text-embedding-3-large"`

	AzureEndpoint            string `yaml:"azure_endpoint" env:"AZURE_OPENAI_ENDPOINT" env-default:""`
	AzureAPIKey              string `yaml:"-" env:"AZURE_OPENAI_API_KEY"` // Secret - not in YAML
	AzureDeployment          string `yaml:"azure_deployment" env:"AZURE_OPENAI_DEPLOYMENT" env-default:""`
	AzureAPIVersion          string `yaml:"azure_api_version" env:"AZURE_OPENAI_API_VERSION" env-default:"2024-02-01"`
	AzureEmbeddingDeployment string `yaml:"azure_embedding_deployment" env:"AZURE_OPENAI_EMBEDDING_DEPLOYMENT" env-default:""`

	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
}

// RetrievalConfig controls schema similarity search.
type RetrievalConfig struct {
	TopKPerCategory int    `yaml:"top_k_per_category" env:"RETRIEVAL_TOP_K" env-default:"4"`
	CollectionName  string `yaml:"collection_name" env:"COLLECTION_NAME" env-default:"embedded_schema"`
	EmbedWorksheets bool   `yaml:"embed_worksheets" env:"EMBED_WORKSHEETS" env-default:"true"`
}

// GenerationConfig controls prompt assets and the pruning pre-pass.
type GenerationConfig struct {
	ExamplesFile  string `yaml:"examples_file" env:"EXAMPLES_FILE" env-default:"examples.json"`
	ShortcutsFile string `yaml:"shortcuts_file" env:"SHORTCUTS_FILE" env-default:""`
	EnablePruning bool   `yaml:"enable_pruning" env:"ENABLE_SCHEMA_PRUNING" env-default:"false"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error; defaults and the environment apply.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		if !isNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tenants, err := LoadTenants(cfg.TenantsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenants: %w", err)
	}
	cfg.Tenants = tenants

	return cfg, nil
}

func (c *Config) validate() error {
	if c.AI.KSamples < 1 {
		return fmt.Errorf("ai.k_samples must be at least 1, got %d", c.AI.KSamples)
	}
	if c.Retrieval.TopKPerCategory < 1 {
		return fmt.Errorf("retrieval.top_k_per_category must be at least 1, got %d", c.Retrieval.TopKPerCategory)
	}
	if c.Metabase.URL != "" {
		if _, err := url.ParseRequestURI(c.Metabase.URL); err != nil {
			return fmt.Errorf("metabase.url: %w", err)
		}
	}
	switch c.AI.Provider {
	case "", "openai", "azure", "anthropic":
	default:
		return fmt.Errorf("ai.provider %q is not supported", c.AI.Provider)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// UseAzure reports whether the Azure chat deployment is fully configured.
func (c *AIConfig) UseAzure() bool {
	return c.AzureEndpoint != "" && c.AzureAPIKey != "" && c.AzureDeployment != ""
}

// UseAzureEmbeddings reports whether the Azure embedding deployment is fully configured.
func (c *AIConfig) UseAzureEmbeddings() bool {
	return c.AzureEndpoint != "" && c.AzureAPIKey != "" && c.AzureEmbeddingDeployment != ""
}

// EffectiveProvider resolves an empty Provider.
func (c *AIConfig) EffectiveProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	if c.UseAzure() {
		return "azure"
	}
	return "openai"
}

// EffectiveMaxConcurrent returns the completion concurrency limit.
func (c *AIConfig) EffectiveMaxConcurrent() int {
	if c.MaxConcurrent > 0 {
		return c.MaxConcurrent
	}
	return c.KSamples
}
