package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config 应用配置结构
type Config struct {
	// Dewatermark 服务配置
	DewatermarkAPIKey  string
	DewatermarkBaseURL string
	// Dewatermark 请求超时时间（秒）
	DewatermarkTimeoutSeconds int
	// 图片输出格式: base64 或 url
	DewatermarkImageFormat string

	// OSS 配置（图片输出格式为 url 时使用）
	OSSEndpoint  string
	OSSRegion    string
	OSSAccessKey string
	OSSSecretKey string
	OSSBucket    string

	// 日志配置
	LogLevel  string // 日志级别: debug, info, warn, error
	LogFormat string // 日志格式: json, text
	LogOutput string // 输出位置: stdout, stderr, file
	LogFile   string // 日志文件路径（当 LogOutput 为 file 时）
}

// LoadConfig 从 .env 文件加载配置
func LoadConfig() (*Config, error) {
	// 加载 .env 文件（如果存在）
	if err := godotenv.Load(); err != nil {
		// .env 文件不存在时，尝试从环境变量读取
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	config := &Config{
		DewatermarkAPIKey:         getEnv("DEWATERMARK_API_KEY", ""),
		DewatermarkBaseURL:        getEnv("DEWATERMARK_BASE_URL", ""),
		DewatermarkTimeoutSeconds: getEnvInt("DEWATERMARK_TIMEOUT_SECONDS", 60),
		DewatermarkImageFormat:    getEnv("DEWATERMARK_IMAGE_FORMAT", "base64"),
		// OSS 配置
		OSSEndpoint:  getEnv("OSS_ENDPOINT", ""),
		OSSRegion:    getEnv("OSS_REGION", "us-east-1"),
		OSSAccessKey: getEnv("OSS_ACCESS_KEY", ""),
		OSSSecretKey: getEnv("OSS_SECRET_KEY", ""),
		OSSBucket:    getEnv("OSS_BUCKET", ""),
		// 日志配置
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),
		LogFile:   getEnv("LOG_FILE", ""),
	}

	// API Key 是唯一的必填项，其余字段全部有默认值
	if config.DewatermarkAPIKey == "" {
		return nil, fmt.Errorf("DEWATERMARK_API_KEY is required")
	}

	// 图片输出格式仅支持 base64 和 url 两种
	switch config.DewatermarkImageFormat {
	case "base64", "url":
	default:
		return nil, fmt.Errorf("unsupported DEWATERMARK_IMAGE_FORMAT: %s", config.DewatermarkImageFormat)
	}

	// 初始化日志系统
	logConfig := &LogConfig{
		Level:    config.LogLevel,
		Format:   config.LogFormat,
		Output:   config.LogOutput,
		FilePath: config.LogFile,
	}
	if err := InitLogger(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return defaultValue
}
