// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig 包含服务端运行时配置，持久化到 DATA_DIR/config.json
type AppConfig struct {
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	TokenTTL           time.Duration `json:"token_ttl"`
	RateLimitPerMinute int           `json:"rate_limit_per_minute"`
	AllowedOrigins     []string      `json:"allowed_origins,omitempty"`
}

// Config 存储从环境变量读取的基础配置
type Config struct {
	Port               string
	DataDir            string
	LogDir             string
	DebugMode          bool
	AuthSecret         string
	TokenTTL           time.Duration
	RateLimitPerMinute int
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:               getEnv("PORT", "8080"),
		DataDir:            getEnvPath("DATA_DIR", "data"),
		LogDir:             getEnvPath("LOG_DIR", "logs"),
		DebugMode:          getEnvBool("DEBUG_MODE", true),
		AuthSecret:         getEnv("AUTH_SECRET_KEY", ""),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 24*time.Hour),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	if config.RateLimitPerMinute <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE 必须为正数: %d", config.RateLimitPerMinute)
	}

	if config.AuthSecret == "" && !config.DebugMode {
		// 只记录警告，不返回错误
		log.Println("警告: 未设置 AUTH_SECRET_KEY，将使用随机密钥，重启后已签发的令牌失效")
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数类型环境变量，解析失败时使用默认值
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("警告: %s=%q 不是整数，使用默认值 %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvDuration 获取时长类型环境变量（如 30s、24h）
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("警告: %s=%q 不是有效时长，使用默认值 %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	configFile = filepath.Join(dataDir, "config.json")
	currentConfig = &AppConfig{
		Port:               baseConfig.Port,
		DataDir:            baseConfig.DataDir,
		LogDir:             baseConfig.LogDir,
		DebugMode:          baseConfig.DebugMode,
		TokenTTL:           baseConfig.TokenTTL,
		RateLimitPerMinute: baseConfig.RateLimitPerMinute,
	}

	// 尝试从文件加载已保存的配置，环境变量中的基础配置优先
	if data, err := os.ReadFile(configFile); err == nil {
		var savedConfig AppConfig
		if json.Unmarshal(data, &savedConfig) == nil {
			currentConfig.AllowedOrigins = savedConfig.AllowedOrigins
		}
	}

	return saveConfigLocked()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 未初始化时返回基础配置
		baseConfig, err := Load()
		if err != nil {
			baseConfig = &Config{Port: "8080", DataDir: "data", LogDir: "logs", DebugMode: true,
				TokenTTL: 24 * time.Hour, RateLimitPerMinute: 120}
		}
		return &AppConfig{
			Port:               baseConfig.Port,
			DataDir:            baseConfig.DataDir,
			LogDir:             baseConfig.LogDir,
			DebugMode:          baseConfig.DebugMode,
			TokenTTL:           baseConfig.TokenTTL,
			RateLimitPerMinute: baseConfig.RateLimitPerMinute,
		}
	}

	configCopy := *currentConfig
	configCopy.AllowedOrigins = append([]string(nil), currentConfig.AllowedOrigins...)
	return &configCopy
}

// UpdateAllowedOrigins 更新 CORS 允许的来源并保存
func UpdateAllowedOrigins(origins []string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}
	currentConfig.AllowedOrigins = append([]string(nil), origins...)
	return saveConfigLocked()
}

// saveConfigLocked 保存当前配置到文件，调用方需持有写锁
func saveConfigLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	dir := filepath.Dir(configFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
