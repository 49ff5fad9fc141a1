package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestSwitchDescriptorWithDefaults(t *testing.T) {
	tests := []struct {
		name         string
		desc         SwitchDescriptor
		wantProtocol Protocol
		wantPort     int
	}{
		{
			name:         "cli model defaults to telnet",
			desc:         SwitchDescriptor{Model: ModelCisco9300, IPAddr: "10.0.0.1"},
			wantProtocol: ProtocolTelnet,
			wantPort:     23,
		},
		{
			name:         "ssh gets port 22",
			desc:         SwitchDescriptor{Model: ModelCisco9300, IPAddr: "10.0.0.1", Protocol: ProtocolSSH},
			wantProtocol: ProtocolSSH,
			wantPort:     22,
		},
		{
			name:         "snmp model",
			desc:         SwitchDescriptor{Model: ModelGenericSNMP, IPAddr: "10.0.0.1"},
			wantProtocol: ProtocolSNMP,
			wantPort:     161,
		},
		{
			name:         "explicit port kept",
			desc:         SwitchDescriptor{Model: ModelAlliedTelesisX230, IPAddr: "10.0.0.1", Port: 2323},
			wantProtocol: ProtocolTelnet,
			wantPort:     2323,
		},
		{
			name:         "ovs is local without port",
			desc:         SwitchDescriptor{Model: ModelOVS},
			wantProtocol: ProtocolLocal,
			wantPort:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.desc.WithDefaults()
			if got.Protocol != tt.wantProtocol {
				t.Errorf("WithDefaults() protocol = %v, want %v", got.Protocol, tt.wantProtocol)
			}
			if got.Port != tt.wantPort {
				t.Errorf("WithDefaults() port = %v, want %v", got.Port, tt.wantPort)
			}
		})
	}
}

func TestSwitchDescriptorKey(t *testing.T) {
	base := SwitchDescriptor{Model: ModelCisco9300, IPAddr: "10.0.0.1", Username: "admin", Password: "pw"}

	withPort := base
	withPort.Port = 23
	if base.Key() != withPort.Key() {
		t.Errorf("Key() differs between default and explicit port 23")
	}

	otherPassword := base
	otherPassword.Password = "other"
	if base.Key() == otherPassword.Key() {
		t.Errorf("Key() should differ when the password differs")
	}

	otherModel := base
	otherModel.Model = ModelAlliedTelesisX230
	if base.Key() == otherModel.Key() {
		t.Errorf("Key() should differ when the model differs")
	}
}

func TestSwitchDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    SwitchDescriptor
		wantErr bool
	}{
		{"valid", SwitchDescriptor{Model: ModelCisco9300, IPAddr: "10.0.0.1"}, false},
		{"missing model", SwitchDescriptor{IPAddr: "10.0.0.1"}, true},
		{"missing address", SwitchDescriptor{Model: ModelCisco9300}, true},
		{"ovs needs no address", SwitchDescriptor{Model: ModelOVS}, false},
		{"port out of range", SwitchDescriptor{Model: ModelCisco9300, IPAddr: "h", Port: 70000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSwitchDescriptorStringHidesCredentials(t *testing.T) {
	d := SwitchDescriptor{Model: ModelCisco9300, IPAddr: "10.0.0.1", Port: 23, Username: "admin", Password: "secret"}
	if got, want := d.String(), "CISCO_9300@10.0.0.1:23"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestErrorIs(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("dial switch: %w", NewError(CodeConnection, "dial", "connect failed", cause))

	if !errors.Is(err, ErrConnection) {
		t.Errorf("errors.Is(err, ErrConnection) = false, want true")
	}
	if errors.Is(err, ErrAuthentication) {
		t.Errorf("errors.Is(err, ErrAuthentication) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	if got := CodeOf(err); got != CodeConnection {
		t.Errorf("CodeOf() = %v, want %v", got, CodeConnection)
	}
	if !IsFatal(err) {
		t.Errorf("IsFatal() = false, want true")
	}
	if IsFatal(NewError(CodeCommandTimeout, "exec", "", nil)) {
		t.Errorf("IsFatal(timeout) = true, want false")
	}
	if got := CodeOf(errors.New("plain")); got != CodeUnknown {
		t.Errorf("CodeOf(plain) = %v, want %v", got, CodeUnknown)
	}
}

func TestPromptPatternsMerge(t *testing.T) {
	base := PromptPatterns{Username: "login:", Password: "Password:", LoginTerminator: ">", Pagination: "--More--"}
	got := base.Merge(PromptPatterns{Username: "User Name:", CommandErrors: []string{"% Error"}})

	if got.Username != "User Name:" {
		t.Errorf("Merge() username = %q, want %q", got.Username, "User Name:")
	}
	if got.Password != "Password:" {
		t.Errorf("Merge() password = %q, want unchanged", got.Password)
	}
	if len(got.CommandErrors) != 1 || got.CommandErrors[0] != "% Error" {
		t.Errorf("Merge() command errors = %v", got.CommandErrors)
	}
}
