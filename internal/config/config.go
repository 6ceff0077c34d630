package config

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by --backend.
const (
	BackendGateway = "gateway"
	BackendGemini  = "gemini"
)

type Config struct {
	ListenAddr     string
	AllowedOrigin  string
	ClientKey      string
	RequestTimeout time.Duration
	// Upstream
	Backend         string
	GatewayBaseURL  string
	GatewayAPIKey   string
	GatewayProxyURL string
	GatewayModel    string
	GeminiAPIKey    string
	GeminiModel     string
	GeminiBaseURL   string
	MaxHistory      int
	MaxTokens       int
	// A2A
	A2AEnabled bool
	A2APort    int
	AgentName  string
	AgentDesc  string
}

// Load reads an optional .env file, then flags with environment fallbacks.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.ListenAddr, "listen-addr", getEnv("LISTEN_ADDR", ":8080"), "Chat proxy listen address")
	flag.StringVar(&cfg.AllowedOrigin, "allowed-origin", getEnv("ALLOWED_ORIGIN", "*"), "Access-Control-Allow-Origin value")
	flag.StringVar(&cfg.ClientKey, "client-key", getEnv("CLIENT_KEY", ""), "Bearer key the widget must present (empty disables the check)")

	flag.StringVar(&cfg.Backend, "backend", getEnv("BACKEND", BackendGateway), "Completion backend: gateway | gemini")
	flag.StringVar(&cfg.GatewayBaseURL, "gateway-base-url", getEnv("GATEWAY_BASE_URL", "https://ai.gateway.lovable.dev"), "AI gateway base URL or full chat completions URL")
	flag.StringVar(&cfg.GatewayAPIKey, "gateway-api-key", getEnv("GATEWAY_API_KEY", ""), "AI gateway API key")
	flag.StringVar(&cfg.GatewayProxyURL, "gateway-proxy-url", getEnv("GATEWAY_PROXY_URL", ""), "HTTP/HTTPS proxy URL for gateway requests (e.g. http://proxy:8080)")
	flag.StringVar(&cfg.GatewayModel, "gateway-model", getEnv("GATEWAY_MODEL", "google/gemini-3-flash-preview"), "Model requested from the AI gateway")
	flag.StringVar(&cfg.GeminiAPIKey, "gemini-api-key", getEnv("GEMINI_API_KEY", ""), "Gemini API key (backend=gemini)")
	flag.StringVar(&cfg.GeminiModel, "gemini-model", getEnv("GEMINI_MODEL", "gemini-3-flash-preview"), "Gemini model (backend=gemini)")
	flag.StringVar(&cfg.GeminiBaseURL, "gemini-base-url", getEnv("GEMINI_BASE_URL", ""), "Gemini API base URL override")
	flag.IntVar(&cfg.MaxHistory, "max-history", getEnvInt("MAX_HISTORY", 10), "Number of recent turns forwarded upstream")
	flag.IntVar(&cfg.MaxTokens, "max-tokens", getEnvInt("MAX_TOKENS", 1000), "max_tokens for each completion")

	timeoutStr := getEnv("REQUEST_TIMEOUT", "120s")
	defaultTimeout, _ := time.ParseDuration(timeoutStr)
	if defaultTimeout == 0 {
		defaultTimeout = 120 * time.Second
	}
	flag.DurationVar(&cfg.RequestTimeout, "request-timeout", defaultTimeout, "Upper bound on one streamed reply")

	flag.BoolVar(&cfg.A2AEnabled, "a2a", getEnvBool("A2A_ENABLED", false), "Enable A2A server alongside the proxy")
	flag.IntVar(&cfg.A2APort, "a2a-port", getEnvInt("A2A_PORT", 8000), "A2A server listen port")
	flag.StringVar(&cfg.AgentName, "agent-name", getEnv("AGENT_NAME", "portfolio-assistant"), "A2A AgentCard name")
	flag.StringVar(&cfg.AgentDesc, "agent-desc", getEnv("AGENT_DESC", "Answers questions about Efstathios Georgopoulos's background and services"), "A2A AgentCard description")

	flag.Parse()
	return cfg
}

// UpstreamKey returns the credential of the selected backend.
func (c *Config) UpstreamKey() string {
	if c.Backend == BackendGemini {
		return c.GeminiAPIKey
	}
	return c.GatewayAPIKey
}

// Model returns the model name of the selected backend.
func (c *Config) Model() string {
	if c.Backend == BackendGemini {
		return c.GeminiModel
	}
	return c.GatewayModel
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
