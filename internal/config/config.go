package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Log     LogConfig     `json:"log"`
	Browser BrowserConfig `json:"browser"`
	Captcha CaptchaConfig `json:"captcha"`
	Proxy   ProxyConfig   `json:"proxy"`
	Dian    DianConfig    `json:"dian"`
	Rues    RuesConfig    `json:"rues"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int    `json:"port"`
	Environment  string `json:"environment"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	IdleTimeout  int    `json:"idle_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// BrowserConfig holds browser automation configuration.
type BrowserConfig struct {
	Headless       bool          `json:"headless"`
	UserAgent      string        `json:"user_agent"`
	ViewportWidth  int           `json:"viewport_width"`
	ViewportHeight int           `json:"viewport_height"`
	LaunchTimeout  time.Duration `json:"launch_timeout"`
	PageTimeout    time.Duration `json:"page_timeout"`
}

// CaptchaConfig holds challenge-provider configuration. An empty API key
// disables the corresponding provider; the solver chain skips it.
type CaptchaConfig struct {
	PrimaryAPIKey   string        `json:"-"`
	PrimaryBaseURL  string        `json:"primary_base_url"`
	FallbackAPIKey  string        `json:"-"`
	FallbackBaseURL string        `json:"fallback_base_url"`
	SolveTimeout    time.Duration `json:"solve_timeout"`
}

// ProxyConfig holds the outbound proxy pool. Entries use the
// ip:port:username:password format.
type ProxyConfig struct {
	Entries []string `json:"-"`
}

// DianConfig holds the certificate-login flow configuration.
type DianConfig struct {
	LoginURL            string        `json:"login_url"`
	CertificatePath     string        `json:"certificate_path"`
	CertificatePassword string        `json:"-"`
	OutcomeDeadline     time.Duration `json:"outcome_deadline"`
	PollInterval        time.Duration `json:"poll_interval"`
}

// RuesConfig holds the registry-search flow configuration.
type RuesConfig struct {
	SearchURL          string        `json:"search_url"`
	SpinnerAppearWait  time.Duration `json:"spinner_appear_wait"`
	SpinnerGoneWait    time.Duration `json:"spinner_gone_wait"`
	DetailWait         time.Duration `json:"detail_wait"`
	TabSettleDelay     time.Duration `json:"tab_settle_delay"`
	TabRetryAttempts   int           `json:"tab_retry_attempts"`
	TabRetryDelay      time.Duration `json:"tab_retry_delay"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 300),
			IdleTimeout:  getEnvAsInt("IDLE_TIMEOUT", 60),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Browser: BrowserConfig{
			Headless:       getEnvAsBool("BROWSER_HEADLESS", true),
			UserAgent:      getEnv("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"),
			ViewportWidth:  getEnvAsInt("BROWSER_VIEWPORT_WIDTH", 1366),
			ViewportHeight: getEnvAsInt("BROWSER_VIEWPORT_HEIGHT", 768),
			LaunchTimeout:  getEnvAsDuration("BROWSER_LAUNCH_TIMEOUT", 45*time.Second),
			PageTimeout:    getEnvAsDuration("BROWSER_PAGE_TIMEOUT", 60*time.Second),
		},
		Captcha: CaptchaConfig{
			PrimaryAPIKey:   getEnv("CAPTCHA_PRIMARY_API_KEY", ""),
			PrimaryBaseURL:  getEnv("CAPTCHA_PRIMARY_BASE_URL", "https://api.capsolver.com"),
			FallbackAPIKey:  getEnv("CAPTCHA_FALLBACK_API_KEY", ""),
			FallbackBaseURL: getEnv("CAPTCHA_FALLBACK_BASE_URL", "https://2captcha.com"),
			SolveTimeout:    getEnvAsDuration("CAPTCHA_SOLVE_TIMEOUT", 150*time.Second),
		},
		Proxy: ProxyConfig{
			Entries: getEnvAsList("PROXY_LIST"),
		},
		Dian: DianConfig{
			LoginURL:            getEnv("DIAN_LOGIN_URL", "https://muisca.dian.gov.co/WebIdentidadClavesPortal/DefInicioSesionMUISCA.faces"),
			CertificatePath:     getEnv("DIAN_CERTIFICATE_PATH", ""),
			CertificatePassword: getEnv("DIAN_CERTIFICATE_PASSWORD", ""),
			OutcomeDeadline:     getEnvAsDuration("DIAN_OUTCOME_DEADLINE", 90*time.Second),
			PollInterval:        getEnvAsDuration("DIAN_POLL_INTERVAL", 100*time.Millisecond),
		},
		Rues: RuesConfig{
			SearchURL:         getEnv("RUES_SEARCH_URL", "https://ruesfront.rues.org.co/buscar"),
			SpinnerAppearWait: getEnvAsDuration("RUES_SPINNER_APPEAR_WAIT", 2*time.Second),
			SpinnerGoneWait:   getEnvAsDuration("RUES_SPINNER_GONE_WAIT", 60*time.Second),
			DetailWait:        getEnvAsDuration("RUES_DETAIL_WAIT", 15*time.Second),
			TabSettleDelay:    getEnvAsDuration("RUES_TAB_SETTLE_DELAY", 2*time.Second),
			TabRetryAttempts:  getEnvAsInt("RUES_TAB_RETRY_ATTEMPTS", 3),
			TabRetryDelay:     getEnvAsDuration("RUES_TAB_RETRY_DELAY", 3*time.Second),
		},
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
