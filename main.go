package main

import (
	"context"
	"time"

	"github.com/Morgoth-Ryuk/hw05-final/config"
	"github.com/Morgoth-Ryuk/hw05-final/events"
	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/routes"
	"github.com/Morgoth-Ryuk/hw05-final/storage"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	images, err := storage.New(ctx, cfg)
	cancel()
	if err != nil {
		utils.Sugar.Fatalf("image storage: %v", err)
	}

	publisher := events.New(cfg)

	r, err := routes.SetupRouter(routes.Deps{
		DB:     db,
		Cache:  utils.NewPageCache(cfg.CacheBackend),
		Images: images,
		Events: publisher,
	})
	if err != nil {
		utils.Sugar.Fatalf("router: %v", err)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	err = utils.GraceServer(":"+cfg.AppPort, r, func() {
		if err := publisher.Close(); err != nil {
			utils.Sugar.Warnf("close event publisher: %v", err)
		}
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
