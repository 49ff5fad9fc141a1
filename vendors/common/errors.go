package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nanoncore/nano-usi/types"
)

// ErrorMapping describes a CLI rejection in operator terms
type ErrorMapping struct {
	Human  string
	Action string
}

// DefaultCommandErrors are the rejection markers printed by IOS style CLIs
var DefaultCommandErrors = []string{
	"% Invalid input",
	"% Incomplete command",
	"% Ambiguous command",
	"% Unknown command",
	"% Invalid interface",
	"% Interface not found",
}

// commandErrorHints maps lower-cased markers to structured descriptions
var commandErrorHints = map[string]ErrorMapping{
	"% invalid input": {
		Human:  "Invalid command syntax",
		Action: "Check the port number and the switch firmware command set",
	},
	"% incomplete command": {
		Human:  "Command is incomplete",
		Action: "Check the vendor profile command templates",
	},
	"% ambiguous command": {
		Human:  "Command abbreviation is ambiguous",
		Action: "Use full command keywords in the vendor profile",
	},
	"% unknown command": {
		Human:  "Command not supported by this firmware",
		Action: "Check switch firmware version",
	},
	"% invalid interface": {
		Human:  "Interface does not exist",
		Action: "Verify the port exists on this switch model",
	},
	"% interface not found": {
		Human:  "Interface does not exist",
		Action: "Verify the port exists on this switch model",
	},
}

// CommandError returns a ResponseParse error if the response contains one
// of the markers, nil otherwise. Matching is case-insensitive.
func CommandError(op, response string, markers []string) error {
	lower := strings.ToLower(response)
	for _, marker := range markers {
		m := strings.ToLower(marker)
		if m == "" || !strings.Contains(lower, m) {
			continue
		}
		line := matchingLine(response, m)
		mapping, ok := commandErrorHints[m]
		if !ok {
			mapping = ErrorMapping{Human: "Command rejected by switch", Action: "Check switch logs for details"}
		}
		return types.NewError(types.CodeResponseParse, op,
			fmt.Sprintf("%s (action: %s)", mapping.Human, mapping.Action), errors.New(line))
	}
	return nil
}

func matchingLine(response, lowerMarker string) string {
	for _, line := range strings.Split(response, "\n") {
		if strings.Contains(strings.ToLower(line), lowerMarker) {
			return strings.TrimSpace(line)
		}
	}
	return strings.TrimSpace(response)
}
