package types

// PromptPatterns holds the literal markers a vendor CLI prints. All matching
// is substring based except the terminators, which must end the last line.
type PromptPatterns struct {
	// Username is printed when the switch asks for a login name
	Username string `yaml:"username"`

	// Password is printed for both the login and the enable password
	Password string `yaml:"password"`

	// LoginFailures are printed when the credentials are rejected
	LoginFailures []string `yaml:"login_failures"`

	// EnableFailures are printed when privilege escalation is rejected
	EnableFailures []string `yaml:"enable_failures"`

	// LoginTerminator ends the unprivileged prompt (">")
	LoginTerminator string `yaml:"login_terminator"`

	// EnabledTerminator ends the privileged prompt ("#")
	EnabledTerminator string `yaml:"enabled_terminator"`

	// Pagination is printed when output is paused for a keystroke
	Pagination string `yaml:"pagination"`

	// CommandErrors are printed when the CLI rejects a command
	CommandErrors []string `yaml:"command_errors"`

	// PagerDisable turns off pagination for the session, if set
	PagerDisable string `yaml:"pager_disable"`
}

// Merge returns p with every non-empty field of o applied on top
func (p PromptPatterns) Merge(o PromptPatterns) PromptPatterns {
	if o.Username != "" {
		p.Username = o.Username
	}
	if o.Password != "" {
		p.Password = o.Password
	}
	if len(o.LoginFailures) > 0 {
		p.LoginFailures = o.LoginFailures
	}
	if len(o.EnableFailures) > 0 {
		p.EnableFailures = o.EnableFailures
	}
	if o.LoginTerminator != "" {
		p.LoginTerminator = o.LoginTerminator
	}
	if o.EnabledTerminator != "" {
		p.EnabledTerminator = o.EnabledTerminator
	}
	if o.Pagination != "" {
		p.Pagination = o.Pagination
	}
	if len(o.CommandErrors) > 0 {
		p.CommandErrors = o.CommandErrors
	}
	if o.PagerDisable != "" {
		p.PagerDisable = o.PagerDisable
	}
	return p
}

// VendorProfile supplies everything vendor specific about a CLI switch:
// prompts, command texts and response parsers. Profiles are stateless.
type VendorProfile interface {
	// Model returns the switch model this profile serves
	Model() Model

	// Patterns returns the prompt markers of the vendor CLI
	Patterns() PromptPatterns

	// Credentials applies vendor default credentials to empty values
	Credentials(username, password string) (string, string)

	// ShowInterfaceCommand returns the command reporting link status
	ShowInterfaceCommand(port int) string

	// ShowPowerCommand returns the command reporting PoE status
	ShowPowerCommand(port int) string

	// PortCommands returns the command sequence enabling or disabling a port
	PortCommands(port int, enable bool) []string

	// ParseInterface parses a cleaned show-interface response. The status is
	// always usable; a non-nil error lists fields that could not be resolved.
	ParseInterface(response string) (*InterfaceStatus, error)

	// ParsePower parses a cleaned show-power response, with the same
	// contract as ParseInterface.
	ParsePower(response string) (*PowerStatus, error)
}
