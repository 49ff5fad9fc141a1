package usi

import (
	"fmt"
	"time"

	"github.com/nanoncore/nano-usi/drivers/local"
	"github.com/nanoncore/nano-usi/drivers/snmp"
	"github.com/nanoncore/nano-usi/session"
	"github.com/nanoncore/nano-usi/vendors/allied"
	"github.com/nanoncore/nano-usi/vendors/cisco"
	"go.uber.org/zap"
)

// CapabilityMatrix defines how each model is reached and what it supports
var CapabilityMatrix = map[Model]ModelCapabilities{
	ModelAlliedTelesisX230: {
		PrimaryProtocol: ProtocolTelnet,
		SupportedProtocols: []Protocol{
			ProtocolTelnet,
			ProtocolSSH,
		},
		SupportsPoE:       true,
		SupportsPortAdmin: true,
		Stateful:          true,
	},
	ModelCisco9300: {
		PrimaryProtocol: ProtocolTelnet,
		SupportedProtocols: []Protocol{
			ProtocolTelnet,
			ProtocolSSH,
		},
		SupportsPoE:       true,
		SupportsPortAdmin: true,
		Stateful:          true,
	},
	ModelGenericSNMP: {
		PrimaryProtocol: ProtocolSNMP,
		SupportedProtocols: []Protocol{
			ProtocolSNMP,
		},
		SupportsPoE:       true,
		SupportsPortAdmin: true,
		Stateful:          true,
	},
	ModelOVS: {
		PrimaryProtocol: ProtocolLocal,
		SupportedProtocols: []Protocol{
			ProtocolLocal,
		},
		SupportsPoE:       false,
		SupportsPortAdmin: true,
		Stateful:          false, // a new controller per request
	},
}

// ModelCapabilities defines what protocols and features a model supports
type ModelCapabilities struct {
	PrimaryProtocol    Protocol
	SupportedProtocols []Protocol
	SupportsPoE        bool
	SupportsPortAdmin  bool

	// Stateful controllers hold a connection and are reused by the registry
	Stateful bool
}

// Options tune the controllers created by NewController
type Options struct {
	// Session settings; zero values take the session package defaults
	CommandTimeout  time.Duration
	LoginTimeout    time.Duration
	IdleTimeout     time.Duration
	DialTimeout     time.Duration
	ConnectAttempts int
	ConnectBackoff  time.Duration
	MaxQueueDepth   int
	DisablePager    bool

	// Patterns override vendor prompt markers per model
	Patterns map[Model]PromptPatterns

	// FauxInterface names the OVS interface; faux-<port> when empty
	FauxInterface string

	// LinkCommand replaces the OVS link up/down argv
	LinkCommand []string

	SNMPVersion  string
	SNMPTimeout  time.Duration
	SNMPPoEGroup int

	Logger *zap.Logger
}

// NewProfile returns the vendor profile of a CLI model with pattern
// overrides applied
func NewProfile(model Model, overrides PromptPatterns) (VendorProfile, error) {
	switch model {
	case ModelAlliedTelesisX230:
		return allied.NewProfile().WithPatterns(overrides), nil
	case ModelCisco9300:
		return cisco.NewProfile().WithPatterns(overrides), nil
	default:
		return nil, NewError(CodeUnsupported, "profile", fmt.Sprintf("model %s has no CLI profile", model), nil)
	}
}

// NewController creates the backend for a switch based on its model and
// protocol. CLI models return a session that starts connecting immediately.
func NewController(desc SwitchDescriptor, opts Options) (Controller, error) {
	desc = desc.WithDefaults()

	caps, ok := CapabilityMatrix[desc.Model]
	if !ok {
		return nil, NewError(CodeUnsupported, "create controller", fmt.Sprintf("unsupported model: %q", desc.Model), nil)
	}

	supported := false
	for _, p := range caps.SupportedProtocols {
		if p == desc.Protocol {
			supported = true
			break
		}
	}
	if !supported {
		return nil, NewError(CodeUnsupported, "create controller",
			fmt.Sprintf("model %s does not support protocol %s", desc.Model, desc.Protocol), nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch desc.Protocol {
	case ProtocolLocal:
		return local.NewSwitch(local.Config{
			Interface:   opts.FauxInterface,
			LinkCommand: opts.LinkCommand,
			Logger:      logger,
		}), nil

	case ProtocolSNMP:
		s, err := snmp.NewSwitch(snmp.Config{
			Descriptor: desc,
			Version:    opts.SNMPVersion,
			Timeout:    opts.SNMPTimeout,
			PoEGroup:   opts.SNMPPoEGroup,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create snmp controller: %w", err)
		}
		return s, nil

	default:
		profile, err := NewProfile(desc.Model, opts.Patterns[desc.Model])
		if err != nil {
			return nil, err
		}
		s, err := session.New(session.Config{
			Descriptor:      desc,
			Profile:         profile,
			CommandTimeout:  opts.CommandTimeout,
			LoginTimeout:    opts.LoginTimeout,
			IdleTimeout:     opts.IdleTimeout,
			DialTimeout:     opts.DialTimeout,
			ConnectAttempts: opts.ConnectAttempts,
			ConnectBackoff:  opts.ConnectBackoff,
			MaxQueueDepth:   opts.MaxQueueDepth,
			DisablePager:    opts.DisablePager,
			Logger:          logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s session: %w", desc.Protocol, err)
		}
		return s, nil
	}
}

// GetSupportedModels returns a list of all supported models
func GetSupportedModels() []Model {
	models := make([]Model, 0, len(CapabilityMatrix))
	for m := range CapabilityMatrix {
		models = append(models, m)
	}
	return models
}

// GetModelCapabilities returns the capabilities for a model
func GetModelCapabilities(model Model) (ModelCapabilities, bool) {
	caps, ok := CapabilityMatrix[model]
	return caps, ok
}
