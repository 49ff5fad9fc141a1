package common

import (
	"errors"
	"regexp"
	"testing"

	"github.com/nanoncore/nano-usi/types"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "no ANSI codes",
			input: "Link is UP",
			want:  "Link is UP",
		},
		{
			name:  "bold prompt",
			input: "\x1b[1mawplus#\x1b[0m",
			want:  "awplus#",
		},
		{
			name:  "erase line after pager",
			input: "\x1b[K  port1.0.1 Enabled",
			want:  "  port1.0.1 Enabled",
		},
		{
			name:  "switch CLI output simulation",
			input: "\x1b[0mswitch#\x1b[K show interface port1.0.1",
			want:  "switch# show interface port1.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripANSI(tt.input)
			if got != tt.want {
				t.Errorf("StripANSI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanResponse(t *testing.T) {
	prompt := regexp.MustCompile(`awplus\s*(\([^)]*\))?#$`)

	tests := []struct {
		name    string
		unit    string
		command string
		want    string
	}{
		{
			name:    "echo and prompt removed",
			unit:    "show interface port1.0.1\nInterface port1.0.1\n  Link is UP\nawplus#",
			command: "show interface port1.0.1",
			want:    "Interface port1.0.1\n  Link is UP",
		},
		{
			name:    "echo after prompt on same line",
			unit:    "awplus#show power-inline interface port1.0.1\nbody\nawplus#",
			command: "show power-inline interface port1.0.1",
			want:    "body",
		},
		{
			name:    "error line ending in the command kept",
			unit:    "shutdown\n% Command rejected: interface is locked, cannot shutdown\nawplus(config-if)#",
			command: "shutdown",
			want:    "% Command rejected: interface is locked, cannot shutdown",
		},
		{
			name:    "leading prompt before echo",
			unit:    "awplus#\nshow interface port1.0.1\n  Link is UP\nawplus#",
			command: "show interface port1.0.1",
			want:    "  Link is UP",
		},
		{
			name:    "config mode prompt",
			unit:    "interface port1.0.1\nawplus(config-if)#",
			command: "interface port1.0.1",
			want:    "",
		},
		{
			name:    "nil prompt keeps prompt lines",
			unit:    "end\nswitch#",
			command: "end",
			want:    "switch#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := prompt
			if tt.name == "nil prompt keeps prompt lines" {
				p = nil
			}
			got := CleanResponse(tt.unit, tt.command, p)
			if got != tt.want {
				t.Errorf("CleanResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDropLinesContaining(t *testing.T) {
	in := "Interface Admin Max\n               (mW)\nport1.0.1 Enabled 15400"
	want := "Interface Admin Max\nport1.0.1 Enabled 15400"
	if got := DropLinesContaining(in, "(mW)"); got != want {
		t.Errorf("DropLinesContaining() = %q, want %q", got, want)
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"awplus>", "awplus>"},
		{"banner\n\nawplus> ", "awplus>"},
		{"User Access Verification\n\nUsername: \n", "Username:"},
	}

	for _, tt := range tests {
		if got := LastLine(tt.input); got != tt.want {
			t.Errorf("LastLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseLeadingNumbers(t *testing.T) {
	tests := []struct {
		input     string
		wantFloat float64
		wantOK    bool
	}{
		{"15400 [C]", 15400, true},
		{" 3337", 3337, true},
		{"15.4", 15.4, true},
		{"n/a", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseLeadingFloat(tt.input)
		if got != tt.wantFloat || ok != tt.wantOK {
			t.Errorf("ParseLeadingFloat(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.wantFloat, tt.wantOK)
		}
	}

	if got, ok := ParseLeadingInt("1000"); got != 1000 || !ok {
		t.Errorf("ParseLeadingInt(1000) = %v, %v", got, ok)
	}
}

func TestCommandError(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
	}{
		{
			name:     "clean output",
			response: "Port  Name  Status\nGi1/0/1     connected",
			wantErr:  false,
		},
		{
			name:     "invalid input marker",
			response: "                ^\n% Invalid input detected at '^' marker.",
			wantErr:  true,
		},
		{
			name:     "case insensitive",
			response: "% INCOMPLETE COMMAND.",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CommandError("show interface", tt.response, DefaultCommandErrors)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CommandError() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, types.ErrResponseParse) {
				t.Errorf("CommandError() = %v, want ErrResponseParse", err)
			}
		})
	}
}
