// Package server exposes switch controllers as the usi.USIService gRPC
// service.
package server

import (
	"context"

	usi "github.com/nanoncore/nano-usi"
	"github.com/nanoncore/nano-usi/registry"
	"github.com/nanoncore/nano-usi/types"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Config holds configuration for a Service
type Config struct {
	Registry *registry.Registry

	// Options are used for the per-request local controllers
	Options usi.Options

	Logger *zap.Logger
}

// Service implements USIServiceServer on top of a session registry
type Service struct {
	registry *registry.Registry
	opts     usi.Options
	log      *zap.Logger
}

// NewService creates a Service
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Options.Logger == nil {
		cfg.Options.Logger = cfg.Logger
	}
	return &Service{
		registry: cfg.Registry,
		opts:     cfg.Options,
		log:      cfg.Logger,
	}
}

// NewGRPCServer creates a gRPC server serving svc and the health service
func NewGRPCServer(svc USIServiceServer, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(UnaryInterceptor(logger)))
	s := grpc.NewServer(opts...)
	RegisterUSIServiceServer(s, svc)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)
	return s
}

// GetPower reports the PoE status of the requested port
func (s *Service) GetPower(ctx context.Context, in *SwitchInput) (*Power, error) {
	var out *Power
	err := s.withController(in, func(c types.Controller) (err error) {
		out, err = c.GetPower(ctx, int(in.DevicePort))
		return err
	})
	return out, err
}

// GetInterface reports the link status of the requested port
func (s *Service) GetInterface(ctx context.Context, in *SwitchInput) (*Interface, error) {
	var out *Interface
	err := s.withController(in, func(c types.Controller) (err error) {
		out, err = c.GetInterface(ctx, int(in.DevicePort))
		return err
	})
	return out, err
}

// Connect enables the requested port
func (s *Service) Connect(ctx context.Context, in *SwitchInput) (*SwitchActionResponse, error) {
	var out *SwitchActionResponse
	err := s.withController(in, func(c types.Controller) (err error) {
		out, err = c.Connect(ctx, int(in.DevicePort))
		return err
	})
	return out, err
}

// Disconnect disables the requested port
func (s *Service) Disconnect(ctx context.Context, in *SwitchInput) (*SwitchActionResponse, error) {
	var out *SwitchActionResponse
	err := s.withController(in, func(c types.Controller) (err error) {
		out, err = c.Disconnect(ctx, int(in.DevicePort))
		return err
	})
	return out, err
}

// withController resolves the controller for in and runs fn with it. Local
// controllers are created per request; everything else comes from the
// registry.
func (s *Service) withController(in *SwitchInput, fn func(types.Controller) error) error {
	desc := in.Descriptor()

	if desc.Model == types.ModelOVS {
		opts := s.opts
		opts.FauxInterface = in.FauxInterface
		c, err := usi.NewController(desc, opts)
		if err != nil {
			return toStatus(err)
		}
		defer c.Close()
		return toStatus(fn(c))
	}

	c, err := s.registry.Get(desc)
	if err != nil {
		return toStatus(err)
	}
	return toStatus(fn(c))
}

// Ensure Service implements required interfaces
var _ USIServiceServer = (*Service)(nil)
