package usi

import (
	"errors"
	"testing"

	"github.com/nanoncore/nano-usi/drivers/local"
	"github.com/nanoncore/nano-usi/drivers/snmp"
	"github.com/nanoncore/nano-usi/types"
)

func TestNewControllerBackends(t *testing.T) {
	t.Run("ovs", func(t *testing.T) {
		c, err := NewController(SwitchDescriptor{Model: ModelOVS}, Options{FauxInterface: "faux"})
		if err != nil {
			t.Fatalf("NewController() error = %v", err)
		}
		s, ok := c.(*local.Switch)
		if !ok {
			t.Fatalf("NewController() = %T, want *local.Switch", c)
		}
		if got := s.InterfaceName(3); got != "faux" {
			t.Errorf("InterfaceName() = %q, want %q", got, "faux")
		}
	})

	t.Run("snmp", func(t *testing.T) {
		c, err := NewController(SwitchDescriptor{Model: ModelGenericSNMP, IPAddr: "192.0.2.1"}, Options{})
		if err != nil {
			t.Fatalf("NewController() error = %v", err)
		}
		if _, ok := c.(*snmp.Switch); !ok {
			t.Errorf("NewController() = %T, want *snmp.Switch", c)
		}
		_ = c.Close()
	})
}

func TestNewControllerRejects(t *testing.T) {
	tests := []struct {
		name string
		desc SwitchDescriptor
		code types.ErrorCode
	}{
		{"unknown model", SwitchDescriptor{Model: "JUNIPER_EX", IPAddr: "192.0.2.1"}, types.CodeUnsupported},
		{"ssh to snmp model", SwitchDescriptor{Model: ModelGenericSNMP, IPAddr: "192.0.2.1", Protocol: ProtocolSSH}, types.CodeUnsupported},
		{"snmp to cli model", SwitchDescriptor{Model: ModelCisco9300, IPAddr: "192.0.2.1", Protocol: ProtocolSNMP}, types.CodeUnsupported},
		{"missing address", SwitchDescriptor{Model: ModelCisco9300}, types.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewController(tt.desc, Options{})
			if err == nil {
				t.Fatal("NewController() error = nil")
			}
			if got := types.CodeOf(err); got != tt.code {
				t.Errorf("CodeOf() = %v, want %v", got, tt.code)
			}
		})
	}
}

func TestNewProfileOverrides(t *testing.T) {
	p, err := NewProfile(ModelCisco9300, PromptPatterns{Pagination: "<--- More --->"})
	if err != nil {
		t.Fatalf("NewProfile() error = %v", err)
	}
	patterns := p.Patterns()
	if patterns.Pagination != "<--- More --->" {
		t.Errorf("Pagination = %q, want override", patterns.Pagination)
	}
	if patterns.Username != "Username:" {
		t.Errorf("Username = %q, want stock marker", patterns.Username)
	}

	if _, err := NewProfile(ModelOVS, PromptPatterns{}); !errors.Is(err, types.ErrUnsupported) {
		t.Errorf("NewProfile(OVS) error = %v, want Unsupported", err)
	}
}

func TestCapabilityMatrix(t *testing.T) {
	for _, model := range GetSupportedModels() {
		caps, ok := GetModelCapabilities(model)
		if !ok {
			t.Fatalf("GetModelCapabilities(%s) not found", model)
		}
		desc := SwitchDescriptor{Model: model}.WithDefaults()
		if desc.Protocol != caps.PrimaryProtocol {
			t.Errorf("%s default protocol = %s, want %s", model, desc.Protocol, caps.PrimaryProtocol)
		}
	}
}
