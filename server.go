package main

import (
	"fmt"
	"log"
	"os"

	"dewatermark-mcp/common"
	"dewatermark-mcp/internal/dewatermark"
	"dewatermark-mcp/internal/tools"

	"github.com/mark3labs/mcp-go/server"
)

func main() {
	// 加载配置
	config, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 打印配置信息（隐藏敏感信息）
	fmt.Fprintf(os.Stderr, "Server starting...\n")
	fmt.Fprintf(os.Stderr, "Dewatermark Base URL: %s\n", config.DewatermarkBaseURL)
	fmt.Fprintf(os.Stderr, "Image Format: %s\n", config.DewatermarkImageFormat)
	fmt.Fprintf(os.Stderr, "API Key: %s\n", maskAPIKey(config.DewatermarkAPIKey))

	// 创建 Dewatermark 客户端
	dewatermarkClient, err := dewatermark.NewDewatermarkClientFromConfig(config)
	if err != nil {
		log.Fatalf("Failed to create Dewatermark client: %v", err)
	}
	defer dewatermarkClient.Close()

	// 创建输出格式化器（格式为 url 时内部创建 OSS 客户端）
	formatter, err := tools.NewOutputFormatterFromConfig(config)
	if err != nil {
		log.Fatalf("Failed to create output formatter: %v", err)
	}

	// 创建 MCP 服务器
	s := server.NewMCPServer(
		"Dewatermark MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	// 注册 Dewatermark tools
	if err := tools.RegisterDewatermarkTools(s, dewatermarkClient, formatter); err != nil {
		log.Fatalf("Failed to register Dewatermark tools: %v", err)
	}

	// 启动 stdio 服务器
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// maskAPIKey 隐藏 API Key 的敏感部分
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
