package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/roster-scan/internal/auth"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/pipeline"
	"github.com/joseph-ayodele/roster-scan/internal/repository"
	"github.com/joseph-ayodele/roster-scan/internal/server"
	"github.com/joseph-ayodele/roster-scan/internal/usage"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rosterd exited", "error", err)
		os.Exit(1)
	}
	logger.Info("rosterd stopped")
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	store, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	verifier, err := auth.NewVerifier(cfg.Auth, logger)
	if err != nil {
		return err
	}
	processor, err := pipeline.Build(ctx, cfg.LLM, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Config:   cfg.Server,
		Scanner:  processor,
		Governor: usage.NewGovernor(store, cfg.Usage.DefaultScanLimit, logger),
		Audit:    store,
		Verifier: verifier,
		Logger:   logger,
	})

	stopHealth, err := serveHealth(cfg.Server.GRPCHealthAddr, store, logger)
	if err != nil {
		return err
	}
	defer stopHealth()

	return srv.ListenAndServe(ctx)
}

// serveHealth exposes the standard gRPC health service, reporting NOT_SERVING while the store
// is unreachable. An empty addr disables it.
func serveHealth(addr string, store repository.Store, logger *slog.Logger) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	go watchStore(watchCtx, store, hs, logger)

	go func() {
		logger.Info("grpc health serving", "addr", addr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("grpc health serve", "error", err)
		}
	}()

	return func() {
		cancelWatch()
		hs.Shutdown()
		grpcServer.GracefulStop()
	}, nil
}
