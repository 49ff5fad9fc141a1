package types

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Model represents the switch model behind a descriptor
type Model string

const (
	ModelAlliedTelesisX230 Model = "ALLIED_TELESIS_X230"
	ModelCisco9300         Model = "CISCO_9300"
	ModelOVS               Model = "OVS"          // Local faux interface, no remote switch
	ModelGenericSNMP       Model = "GENERIC_SNMP" // Any switch exposing IF-MIB and POWER-ETHERNET-MIB
)

// Protocol represents the management protocol used to reach a switch
type Protocol string

const (
	ProtocolTelnet Protocol = "telnet"
	ProtocolSSH    Protocol = "ssh"
	ProtocolSNMP   Protocol = "snmp"
	ProtocolLocal  Protocol = "local"
)

// Default management ports
const (
	DefaultTelnetPort = 23
	DefaultSSHPort    = 22
	DefaultSNMPPort   = 161
)

// SwitchDescriptor identifies a managed switch. Two descriptors with equal
// fields (after defaults) share one session.
type SwitchDescriptor struct {
	// Model selects the vendor profile
	Model Model `json:"model" yaml:"model"`

	// IPAddr is the management IP/hostname
	IPAddr string `json:"ip_addr" yaml:"ip_addr"`

	// Port is the management port (telnet by default)
	Port int `json:"telnet_port,omitempty" yaml:"port"`

	// Username for authentication
	Username string `json:"username,omitempty" yaml:"username"`

	// Password for authentication. For GENERIC_SNMP it carries the community.
	Password string `json:"password,omitempty" yaml:"password"`

	// Protocol overrides the model's primary protocol
	Protocol Protocol `json:"protocol,omitempty" yaml:"protocol"`
}

// WithDefaults returns a copy with the protocol and port filled in
func (d SwitchDescriptor) WithDefaults() SwitchDescriptor {
	d.IPAddr = strings.TrimSpace(d.IPAddr)
	if d.Protocol == "" {
		switch d.Model {
		case ModelGenericSNMP:
			d.Protocol = ProtocolSNMP
		case ModelOVS:
			d.Protocol = ProtocolLocal
		default:
			d.Protocol = ProtocolTelnet
		}
	}
	if d.Port == 0 {
		switch d.Protocol {
		case ProtocolSSH:
			d.Port = DefaultSSHPort
		case ProtocolSNMP:
			d.Port = DefaultSNMPPort
		case ProtocolTelnet:
			d.Port = DefaultTelnetPort
		}
	}
	return d
}

// Validate checks the descriptor can be dialed
func (d SwitchDescriptor) Validate() error {
	if d.Model == "" {
		return NewError(CodeInvalidInput, "validate", "model is required", nil)
	}
	if d.Model != ModelOVS && d.IPAddr == "" {
		return NewError(CodeInvalidInput, "validate", "ip address is required", nil)
	}
	if d.Port < 0 || d.Port > 65535 {
		return NewError(CodeInvalidInput, "validate", fmt.Sprintf("port %d out of range", d.Port), nil)
	}
	return nil
}

// Key returns the stable identity used for session reuse
func (d SwitchDescriptor) Key() string {
	data, _ := json.Marshal(d.WithDefaults())
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Address returns host:port for dialing
func (d SwitchDescriptor) Address() string {
	return net.JoinHostPort(d.IPAddr, strconv.Itoa(d.Port))
}

// String identifies the switch in logs without the credentials
func (d SwitchDescriptor) String() string {
	return fmt.Sprintf("%s@%s", d.Model, d.Address())
}

// LinkState is the operational link state of a port
type LinkState string

const (
	LinkUp   LinkState = "UP"
	LinkDown LinkState = "DOWN"
)

// PoEState is the operational PoE state of a port
type PoEState string

const (
	PoEOn      PoEState = "ON"
	PoEOff     PoEState = "OFF"
	PoEFault   PoEState = "FAULT"
	PoEDeny    PoEState = "DENY"
	PoEUnknown PoEState = "UNKNOWN"
)

// PoESupport is the administrative PoE setting of a port
type PoESupport string

const (
	PoESupportEnabled  PoESupport = "ENABLED"
	PoESupportDisabled PoESupport = "DISABLED"
	PoESupportUnknown  PoESupport = "UNKNOWN"
)

// PoENegotiation reports whether power is negotiated automatically
type PoENegotiation string

const (
	PoENegotiationEnabled  PoENegotiation = "ENABLED"
	PoENegotiationDisabled PoENegotiation = "DISABLED"
	PoENegotiationUnknown  PoENegotiation = "UNKNOWN"
)

// InterfaceStatus is the link status of one switch port
type InterfaceStatus struct {
	LinkState LinkState `json:"link_status"`

	// Duplex is the negotiated duplex ("full", "half"), empty if unknown
	Duplex string `json:"duplex"`

	// SpeedMbps is the negotiated speed, 0 if unknown
	SpeedMbps int `json:"link_speed"`
}

// PowerStatus is the PoE status of one switch port
type PowerStatus struct {
	PoEState       PoEState       `json:"poe_status"`
	PoESupport     PoESupport     `json:"poe_support"`
	PoENegotiation PoENegotiation `json:"poe_negotiation"`

	// Power values in milliwatts
	MaxPowerMw     float64 `json:"max_power_consumption"`
	CurrentPowerMw float64 `json:"current_power_consumption"`
}

// ActionResult reports the outcome of a port enable/disable
type ActionResult struct {
	Success bool `json:"success"`
}

// Controller is the interface every switch backend implements.
// Port numbers are the 1-based front panel index.
type Controller interface {
	// GetPower retrieves the PoE status of a port
	GetPower(ctx context.Context, port int) (*PowerStatus, error)

	// GetInterface retrieves the link status of a port
	GetInterface(ctx context.Context, port int) (*InterfaceStatus, error)

	// Connect administratively enables a port
	Connect(ctx context.Context, port int) (*ActionResult, error)

	// Disconnect administratively disables a port
	Disconnect(ctx context.Context, port int) (*ActionResult, error)

	// Close releases the backend's resources
	Close() error
}
