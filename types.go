// Package usi controls network switches through their management CLIs,
// SNMP agents or a local faux interface behind one Controller interface.
package usi

// Re-export types from the types sub-package so callers can use
// usi.Controller, usi.SwitchDescriptor, etc.

import (
	"github.com/nanoncore/nano-usi/types"
)

// Type aliases
type (
	Model            = types.Model
	Protocol         = types.Protocol
	SwitchDescriptor = types.SwitchDescriptor
	Controller       = types.Controller
	VendorProfile    = types.VendorProfile
	PromptPatterns   = types.PromptPatterns
	InterfaceStatus  = types.InterfaceStatus
	PowerStatus      = types.PowerStatus
	ActionResult     = types.ActionResult
	Error            = types.Error
	ErrorCode        = types.ErrorCode
)

// Re-export constants
const (
	ModelAlliedTelesisX230 = types.ModelAlliedTelesisX230
	ModelCisco9300         = types.ModelCisco9300
	ModelOVS               = types.ModelOVS
	ModelGenericSNMP       = types.ModelGenericSNMP

	ProtocolTelnet = types.ProtocolTelnet
	ProtocolSSH    = types.ProtocolSSH
	ProtocolSNMP   = types.ProtocolSNMP
	ProtocolLocal  = types.ProtocolLocal

	CodeUnsupported = types.CodeUnsupported
)

// NewError creates a classified error
var NewError = types.NewError
