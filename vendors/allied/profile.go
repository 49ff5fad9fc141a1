// Package allied implements the Allied Telesis x230 CLI profile.
package allied

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/nanoncore/nano-usi/types"
	"github.com/nanoncore/nano-usi/vendors/common"
)

const (
	defaultUsername = "manager"
	defaultPassword = "friend"

	// Front panel ports are port1.0.<n>
	portPrefix = "port1.0."
)

var (
	powerHeaders = []string{"Interface", "Admin", "Pri", "Oper", "Power", "Device", "Class", "Max"}
	powerKeys    = []string{"dev_interface", "admin", "pri", "oper", "power", "device", "dev_class", "max"}

	poeStates = map[string]types.PoEState{
		"Powered": types.PoEOn,
		"Off":     types.PoEOff,
		"Fault":   types.PoEFault,
		"Deny":    types.PoEDeny,
	}

	poeSupport = map[string]types.PoESupport{
		"Enabled":  types.PoESupportEnabled,
		"Disabled": types.PoESupportDisabled,
	}

	linkRegex   = regexp.MustCompile(`Link is (\w+)`)
	duplexRegex = regexp.MustCompile(`current duplex (\w+)`)
	speedRegex  = regexp.MustCompile(`current speed (\w+)`)
)

// Profile is the AlliedWare Plus profile for the x230 series
type Profile struct {
	patterns types.PromptPatterns
}

// NewProfile creates the profile with the stock prompts
func NewProfile() *Profile {
	return &Profile{patterns: DefaultPatterns()}
}

// DefaultPatterns returns the stock AlliedWare Plus prompt markers
func DefaultPatterns() types.PromptPatterns {
	return types.PromptPatterns{
		Username:          "login:",
		Password:          "Password:",
		LoginFailures:     []string{"Login incorrect"},
		EnableFailures:    []string{"% Bad passwords", "% Access denied"},
		LoginTerminator:   ">",
		EnabledTerminator: "#",
		Pagination:        "--More--",
		CommandErrors:     common.DefaultCommandErrors,
		PagerDisable:      "terminal length 0",
	}
}

// WithPatterns returns a copy with overrides applied on top of the stock prompts
func (p *Profile) WithPatterns(overrides types.PromptPatterns) types.VendorProfile {
	return &Profile{patterns: p.patterns.Merge(overrides)}
}

func (p *Profile) Model() types.Model {
	return types.ModelAlliedTelesisX230
}

func (p *Profile) Patterns() types.PromptPatterns {
	return p.patterns
}

func (p *Profile) Credentials(username, password string) (string, string) {
	if username == "" {
		username = defaultUsername
	}
	if password == "" {
		password = defaultPassword
	}
	return username, password
}

func (p *Profile) ShowInterfaceCommand(port int) string {
	return "show interface " + portPrefix + strconv.Itoa(port)
}

func (p *Profile) ShowPowerCommand(port int) string {
	return "show power-inline interface " + portPrefix + strconv.Itoa(port)
}

func (p *Profile) PortCommands(port int, enable bool) []string {
	shutdown := "shutdown"
	if enable {
		shutdown = "no shutdown"
	}
	return []string{
		"configure terminal",
		"interface " + portPrefix + strconv.Itoa(port),
		shutdown,
		"end",
	}
}

// ParseInterface reads the link, duplex and speed lines of "show interface".
// A missing link line reports DOWN, missing duplex is empty and missing or
// non-numeric speed is 0.
func (p *Profile) ParseInterface(response string) (*types.InterfaceStatus, error) {
	status := &types.InterfaceStatus{LinkState: types.LinkDown}
	var result *multierror.Error

	if m := linkRegex.FindStringSubmatch(response); m != nil {
		if m[1] == "UP" {
			status.LinkState = types.LinkUp
		}
	} else {
		result = multierror.Append(result, fmt.Errorf("link state not reported"))
	}

	// Negotiated values are only printed while the link is up
	if m := duplexRegex.FindStringSubmatch(response); m != nil {
		status.Duplex = m[1]
	} else if status.LinkState == types.LinkUp {
		result = multierror.Append(result, fmt.Errorf("duplex not reported"))
	}

	if m := speedRegex.FindStringSubmatch(response); m != nil {
		speed, err := strconv.Atoi(m[1])
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("speed %q is not a number", m[1]))
		}
		status.SpeedMbps = speed
	} else if status.LinkState == types.LinkUp {
		result = multierror.Append(result, fmt.Errorf("speed not reported"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return status, types.NewError(types.CodeTableParse, "parse interface", "incomplete interface status", err)
	}
	return status, nil
}

// ParsePower maps the single row of "show power-inline interface". The
// second header line carries the units and is dropped before mapping.
// Power values are already milliwatts; a trailing class marker such as
// "[C]" on Max is ignored.
func (p *Profile) ParsePower(response string) (*types.PowerStatus, error) {
	table, err := common.MapSimpleTable(common.DropLinesContaining(response, "(mW)"), powerHeaders, powerKeys)

	var result *multierror.Error
	if err != nil {
		result = multierror.Append(result, err)
	}

	status := &types.PowerStatus{
		PoEState:       types.PoEOff,
		PoESupport:     types.PoESupportDisabled,
		PoENegotiation: types.PoENegotiationUnknown,
	}
	if s, ok := poeStates[table["oper"]]; ok {
		status.PoEState = s
	}
	if s, ok := poeSupport[table["admin"]]; ok {
		status.PoESupport = s
	}

	if v, ok := common.ParseLeadingFloat(table["max"]); ok {
		status.MaxPowerMw = v
	} else {
		result = multierror.Append(result, fmt.Errorf("max power %q is not a number", table["max"]))
	}
	if v, ok := common.ParseLeadingFloat(table["power"]); ok {
		status.CurrentPowerMw = v
	} else {
		result = multierror.Append(result, fmt.Errorf("power %q is not a number", table["power"]))
	}

	if err := result.ErrorOrNil(); err != nil {
		return status, types.NewError(types.CodeTableParse, "parse power", "incomplete power status", err)
	}
	return status, nil
}
