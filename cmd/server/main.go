package main

import (
	"context"
	"flag"
	"fmt"

	"monopolyx-service/internal/api"
	"monopolyx-service/internal/catalog"
	"monopolyx-service/internal/config"
	"monopolyx-service/internal/repo"
	"monopolyx-service/internal/service"
	"monopolyx-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load Config
	config.LoadConfig(configPath)

	// 2. Init Logger
	logger.InitLogger(config.GlobalConfig.Server.Mode)
	defer logger.Log.Sync()

	logger.Log.Info("Starting server...", zap.String("mode", config.GlobalConfig.Server.Mode))

	// 3. Init DB & Redis
	repo.InitDB()
	repo.InitRedis()

	// 4. Load the map/ability catalog
	cat, err := catalog.Load(config.GlobalConfig.Game.CatalogDir)
	if err != nil {
		logger.Log.Fatal("failed to load catalog", zap.Error(err))
	}
	logger.Log.Info("Catalog loaded",
		zap.Int("maps", len(cat.MapIDs())),
		zap.Int("characters", len(cat.Characters())),
	)

	// 5. Init Services
	services := service.NewContainer(repo.DB, repo.RDB, cat)
	if err := services.Start(ctx); err != nil {
		logger.Log.Fatal("failed to start services", zap.Error(err))
	}

	// 6. Init Router
	if config.GlobalConfig.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// Register Routes
	api.RegisterRoutes(r, services)

	// 7. Start Server
	addr := fmt.Sprintf(":%s", config.GlobalConfig.Server.Port)
	logger.Log.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}
