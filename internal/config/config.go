// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/util"

	"github.com/go-playground/validator"
)

const DefaultBucket = "karaka-rag-jobs"

type AWSConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string `validate:"required"`
}

// Enabled reports whether an S3 side-store is configured.
func (a AWSConfig) Enabled() bool {
	return a.Endpoint != "" || a.AccessKey != ""
}

type AIConfig struct {
	Adapter       string `validate:"oneof=openai ollama"`
	ChatURL       string
	ChatKey       string
	ChatModel     string `validate:"required"`
	EmbedURL      string
	EmbedKey      string
	EmbedModel    string
	EmbedDim      int `validate:"gte=0"`
	EmbedLocal    string
	EmbedLocalDir string
	MaxConcurrent int `validate:"gte=0"`
	TimeoutMin    int `validate:"gte=0"`
	MaxRetries    int `validate:"gte=1,lte=10"`
	UseSRL        bool
}

type GraphConfig struct {
	ConfidenceThreshold       float64 `validate:"gte=0,lte=1"`
	EntitySimilarityThreshold float64 `validate:"gt=0,lte=1"`
	DefaultEdgeConfidence     float64 `validate:"gt=0,lte=1"`
	KeepEmptyActions          bool
}

type RabbitConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

// URL returns the AMQP url, or "" when no host is configured.
func (r RabbitConfig) URL() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Password, r.Host, r.Port)
}

type Config struct {
	DatabaseURL string
	AWS         AWSConfig
	AI          AIConfig
	Graph       GraphConfig
	Rabbit      RabbitConfig
	Debug       bool
	LogFormat   string `validate:"oneof=text json"`
}

// Load reads the configuration from the environment after loading .env.
func Load() (*Config, error) {
	util.LoadEnv()

	cfg := &Config{
		DatabaseURL: util.GetEnv("DATABASE_URL"),
		AWS: AWSConfig{
			Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
			Bucket:    util.GetEnvString("AWS_BUCKET", DefaultBucket),
		},
		AI: AIConfig{
			Adapter:       strings.ToLower(util.GetEnvString("AI_ADAPTER", "openai")),
			ChatURL:       util.GetEnv("AI_CHAT_URL"),
			ChatKey:       util.GetEnv("AI_CHAT_KEY"),
			ChatModel:     util.GetEnv("AI_CHAT_MODEL"),
			EmbedURL:      util.GetEnv("AI_EMBED_URL"),
			EmbedKey:      util.GetEnv("AI_EMBED_KEY"),
			EmbedModel:    util.GetEnv("AI_EMBED_MODEL"),
			EmbedDim:      int(util.GetEnvNumeric("AI_EMBED_DIM", 0)),
			EmbedLocal:    util.GetEnv("AI_EMBED_LOCAL_MODEL"),
			EmbedLocalDir: util.GetEnvString("AI_EMBED_LOCAL_DIR", "./models"),
			MaxConcurrent: int(util.GetEnvNumeric("AI_PARALLEL_REQ", 0)),
			TimeoutMin:    int(util.GetEnvNumeric("AI_TIMEOUT", 0)),
			MaxRetries:    int(util.GetEnvNumeric("ORACLE_MAX_RETRIES", 3)),
			UseSRL:        util.GetEnvBool("AI_USE_SRL", false),
		},
		Graph: GraphConfig{
			ConfidenceThreshold:       util.GetEnvFloat("CONFIDENCE_THRESHOLD", 0.8),
			EntitySimilarityThreshold: util.GetEnvFloat("ENTITY_SIMILARITY_THRESHOLD", 0.85),
			DefaultEdgeConfidence:     util.GetEnvFloat("DEFAULT_EDGE_CONFIDENCE", 0.9),
			KeepEmptyActions:          util.GetEnvBool("KEEP_EMPTY_ACTIONS", true),
		},
		Rabbit: RabbitConfig{
			Host:     util.GetEnv("RABBITMQ_HOST"),
			Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
			User:     util.GetEnvString("RABBITMQ_USER", "guest"),
			Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
		},
		Debug:     util.GetEnvBool("DEBUG", false),
		LogFormat: strings.ToLower(util.GetEnvString("LOG_FORMAT", "text")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.AI.Adapter == "openai" && c.AI.ChatKey == "" {
		return errors.New("invalid config: AI_CHAT_KEY is required for the openai adapter")
	}
	return nil
}
