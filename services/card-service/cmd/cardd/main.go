package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bibbank/approval/pkg/profile/card"
	"github.com/bibbank/approval/pkg/serve"
	"github.com/bibbank/approval/services/card-service/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	workDir, _ := os.Getwd()
	svc := serve.Service{
		Profile:    card.Profile(),
		PageFile:   card.PageFile,
		Candidates: card.Candidates(serve.ExecutableDir(), workDir),
	}

	if err := serve.Run(ctx, cfg, svc); err != nil {
		slog.Error("card-service failed", "error", err)
		os.Exit(1)
	}
}
