package main

import (
	"time"

	"github.com/cppla/paperroom/config"
	"github.com/cppla/paperroom/jobs"
	"github.com/cppla/paperroom/routes"
	"github.com/cppla/paperroom/store/gormstore"
	"github.com/cppla/paperroom/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(gormstore.Migrate)

	r := routes.SetupRouter(db)

	retention := jobs.NewRetention(db, time.Duration(cfg.TaskRetentionDays)*24*time.Hour, utils.Logger.Named("retention"))
	if err := retention.Start(cfg.RetentionSchedule); err != nil {
		utils.Sugar.Fatalf("retention job: %v", err)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, retention.Stop); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
