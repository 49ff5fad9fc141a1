package mock

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/nanoncore/nano-usi/types"
	"github.com/nanoncore/nano-usi/vendors/allied"
	"github.com/nanoncore/nano-usi/vendors/cisco"
)

func TestGeneratedOutputParses(t *testing.T) {
	down := DefaultPortState()
	down.Cable = false
	down.PoEState = types.PoEOff
	down.PowerMw = 0

	tests := []struct {
		name      string
		state     PortState
		wantLink  types.LinkState
		wantPoE   types.PoEState
		wantPower float64
	}{
		{"powered and linked", DefaultPortState(), types.LinkUp, types.PoEOn, 3700},
		{"no cable", down, types.LinkDown, types.PoEOff, 0},
	}

	for _, tt := range tests {
		t.Run("allied "+tt.name, func(t *testing.T) {
			p := allied.NewProfile()
			iface, err := p.ParseInterface(strings.Join(alliedInterface("1", tt.state), "\n"))
			if err != nil {
				t.Fatalf("ParseInterface() error = %v", err)
			}
			if iface.LinkState != tt.wantLink {
				t.Errorf("LinkState = %s, want %s", iface.LinkState, tt.wantLink)
			}
			power, err := p.ParsePower(strings.Join(alliedPowerTable("1", tt.state), "\n"))
			if err != nil {
				t.Fatalf("ParsePower() error = %v", err)
			}
			if power.PoEState != tt.wantPoE || power.CurrentPowerMw != tt.wantPower || power.MaxPowerMw != 15400 {
				t.Errorf("ParsePower() = %+v", *power)
			}
		})

		t.Run("cisco "+tt.name, func(t *testing.T) {
			p := cisco.NewProfile()
			iface, err := p.ParseInterface(strings.Join(ciscoStatusTable("12", tt.state), "\n"))
			if err != nil {
				t.Fatalf("ParseInterface() error = %v", err)
			}
			if iface.LinkState != tt.wantLink {
				t.Errorf("LinkState = %s, want %s", iface.LinkState, tt.wantLink)
			}
			power, err := p.ParsePower(strings.Join(ciscoPowerDetail("12", tt.state), "\n"))
			if err != nil {
				t.Fatalf("ParsePower() error = %v", err)
			}
			if power.PoEState != tt.wantPoE || power.CurrentPowerMw != tt.wantPower || power.MaxPowerMw != 15400 {
				t.Errorf("ParsePower() = %+v", *power)
			}
		})
	}
}

// readUntil reads from r until the accumulated text contains marker
func readUntil(t *testing.T, conn net.Conn, r *bufio.Reader, marker string) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sb strings.Builder
	for !strings.Contains(sb.String(), marker) {
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("reading until %q: %v (got %q)", marker, err, sb.String())
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

func TestSwitchLoginAndShutdown(t *testing.T) {
	sw, err := NewSwitch(Config{Flavor: FlavorAllied, Username: "manager", Password: "friend"})
	if err != nil {
		t.Fatalf("NewSwitch() error = %v", err)
	}
	defer sw.Close()

	conn, err := net.Dial("tcp", sw.Addr())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	readUntil(t, conn, r, "login: ")
	_, _ = conn.Write([]byte("manager\n"))
	readUntil(t, conn, r, "Password: ")
	_, _ = conn.Write([]byte("friend\n"))
	readUntil(t, conn, r, "awplus>")
	_, _ = conn.Write([]byte("enable\n"))
	readUntil(t, conn, r, "awplus#")

	for _, cmd := range []string{"configure terminal", "interface port1.0.4", "shutdown", "end"} {
		_, _ = conn.Write([]byte(cmd + "\n"))
		readUntil(t, conn, r, "#")
	}
	_, _ = conn.Write([]byte("\n"))
	readUntil(t, conn, r, "awplus#")

	port, ok := sw.Port(4)
	if !ok || port.AdminUp {
		t.Errorf("port 4 AdminUp = %v, want false", port.AdminUp)
	}
	want := []string{"configure terminal", "interface port1.0.4", "shutdown", "end"}
	if got := sw.Commands(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Commands() = %v, want %v", got, want)
	}
	if got := sw.BlankLines(); got != 1 {
		t.Errorf("BlankLines() = %d, want 1", got)
	}
	if got := sw.Connections(); got != 1 {
		t.Errorf("Connections() = %d, want 1", got)
	}
}

func TestSwitchRejectsBadLogin(t *testing.T) {
	sw, err := NewSwitch(Config{Flavor: FlavorCisco, Username: "admin", Password: "password"})
	if err != nil {
		t.Fatalf("NewSwitch() error = %v", err)
	}
	defer sw.Close()

	conn, err := net.Dial("tcp", sw.Addr())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	readUntil(t, conn, r, "Username: ")
	_, _ = conn.Write([]byte("admin\n"))
	readUntil(t, conn, r, "Password: ")
	_, _ = conn.Write([]byte("wrong\n"))
	readUntil(t, conn, r, "% Login invalid")
}
