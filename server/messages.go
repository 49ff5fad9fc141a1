package server

import (
	"github.com/nanoncore/nano-usi/types"
)

// SwitchInput addresses one port of one switch. Without SwitchInfo the
// request is served by the local faux interface.
type SwitchInput struct {
	SwitchInfo    *types.SwitchDescriptor `json:"switch_info,omitempty"`
	DevicePort    int32                   `json:"device_port"`
	FauxInterface string                  `json:"faux_interface,omitempty"`
}

// Descriptor returns the switch the input addresses
func (in *SwitchInput) Descriptor() types.SwitchDescriptor {
	if in.SwitchInfo == nil {
		return types.SwitchDescriptor{Model: types.ModelOVS}
	}
	return *in.SwitchInfo
}

// Power is the GetPower response
type Power = types.PowerStatus

// Interface is the GetInterface response
type Interface = types.InterfaceStatus

// SwitchActionResponse is the Connect and Disconnect response
type SwitchActionResponse = types.ActionResult
