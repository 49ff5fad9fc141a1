// Package local implements the OVS backend: a faux interface on the local
// host stands in for a switch port.
package local

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/nanoncore/nano-usi/types"
	"go.uber.org/zap"
)

// Placeholders substituted into the link command
const (
	InterfacePlaceholder = "{iface}"
	StatePlaceholder     = "{state}"
)

// DefaultLinkCommand brings the faux interface up or down
var DefaultLinkCommand = []string{"ip", "link", "set", "dev", InterfacePlaceholder, StatePlaceholder}

// Executor runs a local command
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NativeExecutor runs commands directly on the host
type NativeExecutor struct{}

// Execute runs name with args and returns its combined output
func (NativeExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Config holds configuration for a Switch
type Config struct {
	// Interface is the faux interface; faux-<port> when empty
	Interface string

	// LinkCommand is the argv run by Connect and Disconnect
	LinkCommand []string

	Executor Executor
	Logger   *zap.Logger
}

// Switch is the stateless OVS controller. It never talks to a remote device.
type Switch struct {
	cfg Config
	log *zap.Logger
}

// NewSwitch creates an OVS controller
func NewSwitch(cfg Config) *Switch {
	if len(cfg.LinkCommand) == 0 {
		cfg.LinkCommand = DefaultLinkCommand
	}
	if cfg.Executor == nil {
		cfg.Executor = NativeExecutor{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Switch{cfg: cfg, log: cfg.Logger.With(zap.String("model", string(types.ModelOVS)))}
}

// InterfaceName returns the faux interface serving port
func (s *Switch) InterfaceName(port int) string {
	if s.cfg.Interface != "" {
		return s.cfg.Interface
	}
	return "faux-" + strconv.Itoa(port)
}

// GetPower reports no PoE on the faux interface
func (s *Switch) GetPower(ctx context.Context, port int) (*types.PowerStatus, error) {
	return &types.PowerStatus{
		PoEState:       types.PoEOff,
		PoESupport:     types.PoESupportDisabled,
		PoENegotiation: types.PoENegotiationUnknown,
	}, nil
}

// GetInterface reports the faux interface as always up
func (s *Switch) GetInterface(ctx context.Context, port int) (*types.InterfaceStatus, error) {
	return &types.InterfaceStatus{LinkState: types.LinkUp}, nil
}

// Connect brings the faux interface up
func (s *Switch) Connect(ctx context.Context, port int) (*types.ActionResult, error) {
	return s.setLink(ctx, port, true)
}

// Disconnect brings the faux interface down
func (s *Switch) Disconnect(ctx context.Context, port int) (*types.ActionResult, error) {
	return s.setLink(ctx, port, false)
}

// Close is a no-op
func (s *Switch) Close() error {
	return nil
}

// linkArgs expands the link command for one interface and state
func (s *Switch) linkArgs(iface string, up bool) []string {
	state := "down"
	if up {
		state = "up"
	}
	replacer := strings.NewReplacer(InterfacePlaceholder, iface, StatePlaceholder, state)
	args := make([]string, len(s.cfg.LinkCommand))
	for i, arg := range s.cfg.LinkCommand {
		args[i] = replacer.Replace(arg)
	}
	return args
}

func (s *Switch) setLink(ctx context.Context, port int, up bool) (*types.ActionResult, error) {
	iface := s.InterfaceName(port)
	args := s.linkArgs(iface, up)

	output, err := s.cfg.Executor.Execute(ctx, args[0], args[1:]...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.log.Warn("link command failed",
				zap.String("interface", iface),
				zap.Int("exit_code", exitErr.ExitCode()),
				zap.String("output", strings.TrimSpace(string(output))))
			return &types.ActionResult{Success: false}, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", args[0], err)
	}

	s.log.Info("link state changed", zap.String("interface", iface), zap.Bool("up", up))
	return &types.ActionResult{Success: true}, nil
}

// Ensure Switch implements required interfaces
var _ types.Controller = (*Switch)(nil)
