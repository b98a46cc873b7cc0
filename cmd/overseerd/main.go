package main

import (
	"log"
	"os"
	"time"

	"overseer/internal/api"
	"overseer/internal/config"
	"overseer/internal/journal"
	"overseer/internal/runtime"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("overseer: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
	)

	j, err := journal.NewSQLiteJournal(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}
	defer j.Close()

	rt := runtime.New[string](logger,
		runtime.WithRecorder[string](journal.NewRecorder(j, logger)),
	)
	defer rt.Close()

	defaultTimeout := time.Duration(cfg.DefaultTimeoutS) * time.Second
	srv := api.NewServer(cfg.ListenAddr, j, rt, defaultTimeout, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
