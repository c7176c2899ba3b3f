package main

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/roster-scan/internal/repository"
)

const (
	storeCheckInterval = 15 * time.Second
	storeCheckTimeout  = 3 * time.Second
)

func watchStore(ctx context.Context, store repository.Store, hs *health.Server, logger *slog.Logger) {
	ticker := time.NewTicker(storeCheckInterval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_SERVING
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, storeCheckTimeout)
		err := store.Ping(pingCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if status != last {
			logger.Warn("store health changed", "status", status.String(), "error", err)
			last = status
		}
		hs.SetServingStatus("", status)
	}
}
