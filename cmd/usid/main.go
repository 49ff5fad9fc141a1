package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	usi "github.com/nanoncore/nano-usi"
	"github.com/nanoncore/nano-usi/buildinfo"
	"github.com/nanoncore/nano-usi/config"
	"github.com/nanoncore/nano-usi/logger"
	"github.com/nanoncore/nano-usi/registry"
	"github.com/nanoncore/nano-usi/server"
	"github.com/nanoncore/nano-usi/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"gopkg.in/alecthomas/kingpin.v2"
)

const app = "usid"

const shutdownTimeout = 10 * time.Second

var (
	a          = kingpin.New(app, "switch interrogation service for Telnet managed switches")
	configFile = a.Flag("config", "path to the YAML configuration file").Default("").Envar("USI_CONFIG").String()
	grpcAddr   = a.Flag("grpc.addr", "gRPC listen address, overrides the config file").Default("").Envar("USI_GRPC_ADDR").String()
	httpAddr   = a.Flag("http.addr", "metrics and admin listen address, overrides the config file").Default("").Envar("USI_HTTP_ADDR").String()
	logLevel   = a.Flag("log.level", "log level verbosity").PlaceHolder("[debug|info|warn|error]").Default("").Envar("LOG_LEVEL").String()
	logDir     = a.Flag("log.dir", "directory receiving rotated log files in addition to stdout").Default("").Envar("LOG_DIR").String()
)

func main() {
	a.HelpFlag.Short('h')
	a.Version(buildinfo.Info.String())

	if _, err := a.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing argument flags - %s\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyFlags(cfg)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = ""
	}

	log, err := logger.Initialize(logger.Config{
		Service:  app,
		Hostname: hostname,
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logger - log_level=%s log_dir=%s - err=%s\n", cfg.Log.Level, cfg.Log.Dir, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error(app+" stopped with an error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config) {
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logDir != "" {
		cfg.Log.Dir = *logDir
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	opts := cfg.Options()
	opts.Logger = log

	reg := registry.New(registry.Config{
		Factory: func(desc types.SwitchDescriptor) (types.Controller, error) {
			return usi.NewController(desc, opts)
		},
		IdleTTL: cfg.Registry.IdleTTL,
		Logger:  log,
	})

	var serverOpts []grpc.ServerOption
	if cfg.StreamWorkers > 0 {
		serverOpts = append(serverOpts, grpc.NumStreamWorkers(cfg.StreamWorkers))
	}
	grpcServer := server.NewGRPCServer(server.NewService(server.Config{
		Registry: reg,
		Options:  opts,
		Logger:   log,
	}), log, serverOpts...)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /info", buildinfo.Handler)
	mux.HandleFunc("/verbosity", logger.VerbosityHandler)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = reg.Close()
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("started gRPC server", zap.String("addr", cfg.GRPCAddr), zap.String("version", buildinfo.Info.Version))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	if cfg.HTTPAddr != "" {
		g.Go(func() error {
			log.Info("started HTTP server", zap.String("addr", cfg.HTTPAddr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("stopping " + app)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("http server shutdown failed", zap.Error(err))
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}

		if err := reg.Close(); err != nil {
			log.Warn("failed to close sessions", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
