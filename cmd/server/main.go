// cmd/server/main.go
package main

import (
	"log"

	"github.com/Corphon/InfraAdvisor/internal/app"
	"github.com/Corphon/InfraAdvisor/internal/config"
)

func main() {
	log.Println("🚀 启动 InfraAdvisor 评估服务...")

	// 1. 加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 基础配置加载完成，端口: %s", baseConfig.Port)

	// 2. 初始化应用（配置、日志、服务、路由）
	application, err := app.New(baseConfig)
	if err != nil {
		log.Fatalf("❌ 初始化应用失败: %v", err)
	}
	log.Printf("🔗 访问地址: http://localhost:%s/api/health", baseConfig.Port)

	// 3. 运行直到收到中断信号
	if err := application.Run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Println("✅ 服务器优雅关闭完成")
}
