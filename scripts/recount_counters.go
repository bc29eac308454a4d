// 手动修正冗余计数脚本
//
// 主应用在 app.reconcile_interval_hours > 0 时会定期执行同样的修正。
// 此脚本用于手动触发，例如批量导入数据或直接改库之后。
//
// 用法: go run scripts/recount_counters.go

package main

import (
	"context"
	"log"
	"newsreel_backend/internal/config"
	"newsreel_backend/internal/service"
	"newsreel_backend/pkg/database"
	"newsreel_backend/pkg/logger"
	"os"

	"gopkg.in/yaml.v3"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("手动触发计数修正...")
	report, err := service.NewReconcileService(db).Run(context.Background())
	if err != nil {
		log.Fatalf("修正失败: %v", err)
	}

	if err := yaml.NewEncoder(os.Stdout).Encode(report); err != nil {
		log.Fatalf("输出结果失败: %v", err)
	}
	log.Println("完成！")
}
