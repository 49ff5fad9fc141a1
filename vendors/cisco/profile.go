// Package cisco implements the Cisco Catalyst 9300 IOS-XE CLI profile.
package cisco

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/nanoncore/nano-usi/types"
	"github.com/nanoncore/nano-usi/vendors/common"
)

const (
	defaultUsername = "admin"
	defaultPassword = "password"

	portPrefix = "gigabitethernet1/0/"

	// Duplex and speed are prefixed when autonegotiated ("a-full", "a-1000")
	autoPrefix = "a-"

	statusConnected = "connected"
)

var (
	statusHeaders = []string{"Port", "Name", "Status", "Vlan", "Duplex", "Speed", "Type"}
	statusKeys    = []string{"interface", "name", "status", "vlan", "duplex", "speed", "type"}

	powerTokens = []string{
		"Interface",
		"Inline Power Mode",
		"Operational status",
		"Measured at the port",
		"Device Type",
		"IEEE Class",
		"Power available to the device",
	}
	powerKeys = []string{"dev_interface", "admin", "oper", "power", "device", "dev_class", "max"}

	poeStates = map[string]types.PoEState{
		"on":         types.PoEOn,
		"off":        types.PoEOff,
		"fault":      types.PoEFault,
		"power-deny": types.PoEDeny,
	}

	poeSupport = map[string]types.PoESupport{
		"auto": types.PoESupportEnabled,
		"off":  types.PoESupportDisabled,
	}

	poeNegotiation = map[string]types.PoENegotiation{
		"auto": types.PoENegotiationEnabled,
		"off":  types.PoENegotiationDisabled,
	}

	// statusLineRegex anchors on the status keyword for rows whose
	// description pushes the columns out of alignment.
	statusLineRegex = regexp.MustCompile(`(?m)^(\S+)\s+(?:.*?\s+)?(connected|notconnect|disabled|err-disabled|inactive|monitoring|suspended)\s+(\S+)\s+(\S+)\s+(\S+)`)

	knownStatuses = map[string]bool{
		"connected":    true,
		"notconnect":   true,
		"disabled":     true,
		"err-disabled": true,
		"inactive":     true,
		"monitoring":   true,
		"suspended":    true,
	}
)

// Profile is the IOS-XE profile for the Catalyst 9300 series
type Profile struct {
	patterns types.PromptPatterns
}

// NewProfile creates the profile with the stock prompts
func NewProfile() *Profile {
	return &Profile{patterns: DefaultPatterns()}
}

// DefaultPatterns returns the stock IOS-XE prompt markers
func DefaultPatterns() types.PromptPatterns {
	return types.PromptPatterns{
		Username:          "Username:",
		Password:          "Password:",
		LoginFailures:     []string{"% Login invalid", "% Authentication failed", "% Bad passwords"},
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
	return types.ModelCisco9300
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
	return "show interface " + portPrefix + strconv.Itoa(port) + " status"
}

func (p *Profile) ShowPowerCommand(port int) string {
	return "show power inline " + portPrefix + strconv.Itoa(port) + " detail"
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

// ParseInterface maps the row of "show interface ... status". The link is
// UP only when the status column reads "connected".
func (p *Profile) ParseInterface(response string) (*types.InterfaceStatus, error) {
	row, tableErr := common.MapSimpleTable(response, statusHeaders, statusKeys)
	if !knownStatuses[row["status"]] {
		if fallback, ok := parseStatusLine(response); ok {
			row = fallback
			tableErr = nil
		}
	}

	var result *multierror.Error
	if tableErr != nil {
		result = multierror.Append(result, tableErr)
	}

	status := &types.InterfaceStatus{
		LinkState: types.LinkDown,
		Duplex:    strings.TrimPrefix(row["duplex"], autoPrefix),
	}
	if row["status"] == statusConnected {
		status.LinkState = types.LinkUp
	}

	speed := strings.TrimPrefix(row["speed"], autoPrefix)
	if n, err := strconv.Atoi(speed); err == nil {
		status.SpeedMbps = n
	} else if speed != "auto" {
		result = multierror.Append(result, fmt.Errorf("speed %q is not a number", speed))
	}

	if err := result.ErrorOrNil(); err != nil {
		return status, types.NewError(types.CodeTableParse, "parse interface", "incomplete interface status", err)
	}
	return status, nil
}

// parseStatusLine extracts the status row by its status keyword
func parseStatusLine(response string) (map[string]string, bool) {
	m := statusLineRegex.FindStringSubmatch(response)
	if m == nil {
		return nil, false
	}
	return map[string]string{
		"interface": m[1],
		"status":    m[2],
		"vlan":      m[3],
		"duplex":    m[4],
		"speed":     m[5],
	}, true
}

// ParsePower reads the "key: value" lines of "show power inline ... detail".
// The switch reports watts; values are converted to milliwatts.
func (p *Profile) ParsePower(response string) (*types.PowerStatus, error) {
	detail := common.ParseInlineTable(response, powerTokens, powerKeys)

	status := &types.PowerStatus{
		PoEState:       types.PoEUnknown,
		PoESupport:     types.PoESupportUnknown,
		PoENegotiation: types.PoENegotiationUnknown,
	}
	if s, ok := poeStates[detail["oper"]]; ok {
		status.PoEState = s
	}
	if s, ok := poeSupport[detail["admin"]]; ok {
		status.PoESupport = s
	}
	if s, ok := poeNegotiation[detail["admin"]]; ok {
		status.PoENegotiation = s
	}

	var result *multierror.Error
	if v, ok := common.ParseLeadingFloat(detail["max"]); ok {
		status.MaxPowerMw = v * 1000
	} else {
		result = multierror.Append(result, fmt.Errorf("available power %q is not a number", detail["max"]))
	}
	if v, ok := common.ParseLeadingFloat(detail["power"]); ok {
		status.CurrentPowerMw = v * 1000
	} else {
		result = multierror.Append(result, fmt.Errorf("measured power %q is not a number", detail["power"]))
	}

	if err := result.ErrorOrNil(); err != nil {
		return status, types.NewError(types.CodeTableParse, "parse power", "incomplete power status", err)
	}
	return status, nil
}
