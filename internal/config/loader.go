// Package config 提供配置加载功能
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 从 configs 目录加载配置
func Load() (*Config, error) {
	return LoadFrom("configs")
}

// LoadFrom 从指定目录加载配置
// 按优先级加载：默认值 -> config.yaml -> config.<APP_ENV>.yaml -> 环境变量
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 默认配置文件，缺失时完全依赖默认值与环境变量
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)，如 GENERATION_ENDPOINT
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// Validate 校验配置
func (c *Config) Validate() error {
	u, err := url.Parse(c.Generation.Endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid generation.endpoint %q", c.Generation.Endpoint)
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation.timeout must be positive")
	}
	// 写超时需覆盖一次完整的生成调用，0 表示不限制
	if wt := c.Server.HTTP.WriteTimeout; wt > 0 && wt <= c.Generation.Timeout {
		return fmt.Errorf("server.http.write_timeout %s must exceed generation.timeout %s", wt, c.Generation.Timeout)
	}

	g := c.Generation
	if g.MinLength <= 0 || g.MinLength > g.MaxLength {
		return fmt.Errorf("invalid generation length range [%d, %d]", g.MinLength, g.MaxLength)
	}
	if g.DefaultLength < g.MinLength || g.DefaultLength > g.MaxLength {
		return fmt.Errorf("generation.default_length %d outside [%d, %d]", g.DefaultLength, g.MinLength, g.MaxLength)
	}

	switch strings.ToLower(c.UI.DefaultTheme) {
	case "dark", "light":
	default:
		return fmt.Errorf("invalid ui.default_theme %q", c.UI.DefaultTheme)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "lets-write")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	// 需覆盖一次完整的生成调用
	v.SetDefault("server.http.write_timeout", "90s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "10s")

	// 生成后端默认值
	v.SetDefault("generation.endpoint", "http://localhost:5000/api/generate")
	v.SetDefault("generation.timeout", "60s")
	v.SetDefault("generation.default_length", 300)
	v.SetDefault("generation.min_length", 50)
	v.SetDefault("generation.max_length", 1000)

	// 会话默认值
	v.SetDefault("session.cookie_name", "letswrite_session")
	v.SetDefault("session.secret", "change-me-in-production")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.secure", false)

	// Redis 默认值
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.redis.key_prefix", "letswrite")

	// 页面默认值
	v.SetDefault("ui.title", "Let's Write")
	v.SetDefault("ui.subtitle", "Give it a prompt. Get a story.")
	v.SetDefault("ui.default_theme", "dark")

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.output", "stdout")
	v.SetDefault("observability.logging.max_size_mb", 10)
	v.SetDefault("observability.logging.max_backups", 5)
	v.SetDefault("observability.logging.max_age_days", 7)
	v.SetDefault("observability.logging.compress", true)
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.exporter", "otlp")
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_second", 5)
	v.SetDefault("security.rate_limit.burst", 10)
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})
}
