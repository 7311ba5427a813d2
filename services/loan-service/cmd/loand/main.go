package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/profile/loan"
	"github.com/bibbank/approval/pkg/serve"
	"github.com/bibbank/approval/services/loan-service/internal/config"
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
		Profile:    loan.Profile(),
		PageFile:   loan.PageFile,
		Candidates: loan.Candidates(serve.ExecutableDir(), workDir),
	}

	if err := serve.Run(ctx, cfg, svc); err != nil {
		if errors.Is(err, approval.ErrModelNotFound) {
			slog.Error("no trained loan model found; set ON_MISSING_MODEL=degrade_to_rules to serve rule-based predictions", "error", err)
		} else {
			slog.Error("loan-service failed", "error", err)
		}
		os.Exit(1)
	}
}
