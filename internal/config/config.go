package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
)

// APIKeyName is the logical name of the OpenRouter credential in both the
// secrets file and the environment.
const APIKeyName = "OPENROUTER_API_KEY"

// DefaultEndpoint is the OpenRouter chat completions URL.
const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// DefaultTimeout bounds one completion call.
const DefaultTimeout = 60 * time.Second

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	OpenRouter OpenRouterConfig
	Chat       ChatConfig
}

// Load 从 secrets 文件与环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	secrets, err := LoadSecretsFile(getEnvOrDefault("SECRETS_FILE", DefaultSecretsFile))
	if err != nil {
		return nil, err
	}

	openRouter, err := loadOpenRouterConfig(secrets, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	chatCfg, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, OpenRouter: openRouter, Chat: chatCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// OpenRouterConfig 描述补全接口相关配置。
type OpenRouterConfig struct {
	APIKey   string
	Endpoint string
	Referer  string
	Title    string
	Timeout  time.Duration
}

// Enabled 表示是否提供了 API 密钥。
func (c OpenRouterConfig) Enabled() bool {
	return c.APIKey != ""
}

// ChatConfig 描述会话与界面默认值。
type ChatConfig struct {
	SystemPrompt       string
	DefaultTemperature float64
	SessionTTL         time.Duration
	AppTitle           string
	Banner             string
}

func loadOpenRouterConfig(secrets SecretStore, lookupEnv func(string) (string, bool)) (OpenRouterConfig, error) {
	timeout, err := parseDurationSecondsEnv("OPENROUTER_TIMEOUT", DefaultTimeout)
	if err != nil {
		return OpenRouterConfig{}, err
	}

	return OpenRouterConfig{
		APIKey:   ResolveAPIKey(secrets, lookupEnv),
		Endpoint: getEnvOrDefault("OPENROUTER_BASE_URL", DefaultEndpoint),
		Referer:  getEnvOrDefault("OPENROUTER_REFERER", "https://your-portfolio-site.example"),
		Title:    getEnvOrDefault("OPENROUTER_TITLE", "StreamlitChatDemo"),
		Timeout:  timeout,
	}, nil
}

func loadChatConfig() (ChatConfig, error) {
	temperature := 0.7
	if override, err := parseOptionalFloatEnv("CHAT_DEFAULT_TEMPERATURE"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 0 || *override > 1 {
			return ChatConfig{}, fmt.Errorf("invalid CHAT_DEFAULT_TEMPERATURE value %v: must be within [0, 1]", *override)
		}
		temperature = *override
	}

	ttl, err := parseDurationEnv("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{
		SystemPrompt:       getEnvOrDefault("CHAT_SYSTEM_PROMPT", chat.DefaultSystemPrompt),
		DefaultTemperature: temperature,
		SessionTTL:         ttl,
		AppTitle:           getEnvOrDefault("CHAT_APP_TITLE", "Free-Model Chatbot (OpenRouter)"),
		Banner: getEnvOrDefault("CHAT_BANNER",
			"Demo Notice: this application is a streamlined proof-of-concept, not an enterprise-grade product."),
	}, nil
}

// ResolveAPIKey picks the credential from the platform secret store first
// and falls back to the environment. An empty result means neither is set.
func ResolveAPIKey(secrets SecretStore, lookupEnv func(string) (string, bool)) string {
	if secrets != nil {
		if value, ok := secrets.Get(APIKeyName); ok {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	if lookupEnv != nil {
		if value, ok := lookupEnv(APIKeyName); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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

func parseDurationSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
