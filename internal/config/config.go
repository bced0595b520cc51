package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	AI         AIConfig
	Bot        BotConfig
	Attachment AttachmentConfig
	RateLimit  RateLimitConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig(server.Env)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	attachment, err := loadAttachmentConfig(server.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		Store:      store,
		AI:         ai,
		Bot:        BotConfig{DisplayName: getEnvOrDefault("BOT_DISPLAY_NAME", "persona-bot")},
		Attachment: attachment,
		RateLimit:  rateLimit,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr          string
	Env           string
	LogLevel      string
	PublicBaseURL string
}

// IsProduction 表示是否运行在生产环境。
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	env := getEnvOrDefault("ENV", "development")
	if env != "development" && env != "production" {
		return ServerConfig{}, fmt.Errorf("invalid ENV value: %q", env)
	}

	host := addr
	if strings.HasPrefix(addr, ":") {
		host = "localhost" + addr
	}
	baseURL := getEnvOrDefault("PUBLIC_BASE_URL", "http://"+host)

	return ServerConfig{
		Addr:          addr,
		Env:           env,
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		PublicBaseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// StoreConfig 描述持久化配置。
type StoreConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
	// RedisURL 可选，设置后用于跨实例的 persona 生成锁。
	RedisURL string
}

func loadStoreConfig(env string) (StoreConfig, error) {
	cfg := StoreConfig{
		Driver:      strings.ToLower(getEnvOrDefault("STORE_DRIVER", "memory")),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "./data/chat.db"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
	}

	switch cfg.Driver {
	case "memory", "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return StoreConfig{}, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value: %q", cfg.Driver)
	}

	if env == "production" && cfg.Driver == "memory" {
		return StoreConfig{}, fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
	}
	return cfg, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool

	// 每次生成调用的超时与 token 预算
	GenerationTimeout time.Duration
	PersonaMaxTokens  int
	ReplyMaxTokens    int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	// 逐条回复较短，默认不走流式
	stream, err := parseBoolEnv("ARK_STREAM", false)
	if err != nil {
		return AIConfig{}, err
	}

	timeoutSeconds, err := parseIntEnvOrDefault("GENERATION_TIMEOUT_SECONDS", 30, 1)
	if err != nil {
		return AIConfig{}, err
	}
	personaTokens, err := parseIntEnvOrDefault("PERSONA_MAX_TOKENS", 100, 1)
	if err != nil {
		return AIConfig{}, err
	}
	replyTokens, err := parseIntEnvOrDefault("REPLY_MAX_TOKENS", 150, 1)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:            strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:         strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:         strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:             strings.TrimSpace(os.Getenv("Model")),
		BaseURL:           getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:            getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:       temperature,
		TopP:              topP,
		MaxTokens:         maxTokens,
		StreamResponse:    stream,
		GenerationTimeout: time.Duration(timeoutSeconds) * time.Second,
		PersonaMaxTokens:  personaTokens,
		ReplyMaxTokens:    replyTokens,
	}, nil
}

// BotConfig 描述机器人身份。
type BotConfig struct {
	DisplayName string
}

// AttachmentConfig 描述附件存储。
type AttachmentConfig struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

func loadAttachmentConfig(baseURL string) (AttachmentConfig, error) {
	maxMB, err := parseIntEnvOrDefault("ATTACHMENT_MAX_MB", 10, 1)
	if err != nil {
		return AttachmentConfig{}, err
	}
	return AttachmentConfig{
		Dir:      getEnvOrDefault("ATTACHMENT_DIR", "./data/attachments"),
		BaseURL:  baseURL,
		MaxBytes: int64(maxMB) << 20,
	}, nil
}

// RateLimitConfig 描述按用户的限流。PerMinute 为 0 时关闭。
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	perMinute, err := parseIntEnvOrDefault("RATE_LIMIT_PER_MINUTE", 120, 0)
	if err != nil {
		return RateLimitConfig{}, err
	}
	burst, err := parseIntEnvOrDefault("RATE_LIMIT_BURST", 20, 1)
	if err != nil {
		return RateLimitConfig{}, err
	}
	return RateLimitConfig{PerMinute: perMinute, Burst: burst}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseIntEnvOrDefault 解析整数，低于 minValue 时报错。
func parseIntEnvOrDefault(key string, defaultValue, minValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	if *val < minValue {
		return 0, fmt.Errorf("invalid %s value %d: must be at least %d", key, *val, minValue)
	}
	return *val, nil
}
