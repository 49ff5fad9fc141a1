package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nanoncore/nano-usi/metrics"
	"github.com/nanoncore/nano-usi/types"
	"go.uber.org/zap"
)

// GetPower reports the PoE status of a port. Fields the switch output did
// not resolve are logged and keep their defaults.
func (s *Session) GetPower(ctx context.Context, port int) (*types.PowerStatus, error) {
	if err := validatePort("get power", port); err != nil {
		return nil, err
	}

	var status *types.PowerStatus
	start := time.Now()
	_, err := s.submit(ctx, "get power", []string{s.profile.ShowPowerCommand(port)}, "", func(responses []string) {
		var perr error
		if status, perr = s.profile.ParsePower(responses[0]); perr != nil {
			s.parseFailed("power", port, perr)
		}
	})
	s.observe("get_power", start, err)
	if err != nil {
		return nil, err
	}
	return status, nil
}

// GetInterface reports the link status of a port
func (s *Session) GetInterface(ctx context.Context, port int) (*types.InterfaceStatus, error) {
	if err := validatePort("get interface", port); err != nil {
		return nil, err
	}

	var status *types.InterfaceStatus
	start := time.Now()
	_, err := s.submit(ctx, "get interface", []string{s.profile.ShowInterfaceCommand(port)}, "", func(responses []string) {
		var perr error
		if status, perr = s.profile.ParseInterface(responses[0]); perr != nil {
			s.parseFailed("interface", port, perr)
		}
	})
	s.observe("get_interface", start, err)
	if err != nil {
		return nil, err
	}
	return status, nil
}

// Connect administratively enables a port
func (s *Session) Connect(ctx context.Context, port int) (*types.ActionResult, error) {
	return s.setPort(ctx, "connect", port, true)
}

// Disconnect administratively disables a port
func (s *Session) Disconnect(ctx context.Context, port int) (*types.ActionResult, error) {
	return s.setPort(ctx, "disconnect", port, false)
}

func (s *Session) setPort(ctx context.Context, op string, port int, enable bool) (*types.ActionResult, error) {
	if err := validatePort(op, port); err != nil {
		return nil, err
	}

	start := time.Now()
	_, err := s.submit(ctx, op, s.profile.PortCommands(port, enable), recoverCommand, nil)
	s.observe(op, start, err)
	if err != nil {
		return nil, err
	}
	return &types.ActionResult{Success: true}, nil
}

func (s *Session) observe(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(types.CodeOf(err)))
	}
	metrics.CommandDuration.WithLabelValues(string(s.cfg.Descriptor.Model), operation, outcome).
		Observe(time.Since(start).Seconds())
}

func (s *Session) parseFailed(kind string, port int, err error) {
	metrics.ParseErrors.WithLabelValues(string(s.cfg.Descriptor.Model), kind).Inc()
	s.log.Warn("incomplete switch response", zap.String("kind", kind), zap.Int("port", port), zap.Error(err))
}

func validatePort(op string, port int) error {
	if port < 1 {
		return types.NewError(types.CodeInvalidInput, op, fmt.Sprintf("port %d out of range", port), nil)
	}
	return nil
}
