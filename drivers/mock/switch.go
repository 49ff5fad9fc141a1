// Package mock provides an in-process Telnet switch that speaks enough of the
// Allied Telesis and Cisco CLIs to exercise the session layer end to end.
package mock

import (
	"bufio"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nanoncore/nano-usi/types"
)

// Flavor selects the CLI dialect the switch speaks
type Flavor int

const (
	FlavorAllied Flavor = iota
	FlavorCisco
)

// Telnet protocol bytes
const (
	iac  = 255
	sb   = 250
	will = 251
	wont = 252
	do   = 253
	dont = 254
	se   = 240

	optEcho  = 1
	optSGA   = 3
	optTType = 24
)

const (
	defaultPorts    = 24
	invalidInput    = "% Invalid input detected at '^' marker."
	paginationMark  = " --More-- "
	paginationErase = "\b\b\b\b\b\b\b\b\b\b          \b\b\b\b\b\b\b\b\b\b"
	maxLoginTries   = 3
)

var (
	atShowInterface = regexp.MustCompile(`^show interface port1\.0\.(\d+)$`)
	atShowPower     = regexp.MustCompile(`^show power-inline interface port1\.0\.(\d+)$`)
	atInterface     = regexp.MustCompile(`^interface port1\.0\.(\d+)$`)

	ciscoShowInterface = regexp.MustCompile(`^show interface gigabitethernet1/0/(\d+) status$`)
	ciscoShowPower     = regexp.MustCompile(`^show power inline gigabitethernet1/0/(\d+) detail$`)
	ciscoInterface     = regexp.MustCompile(`^interface gigabitethernet1/0/(\d+)$`)
)

// Config holds configuration for a fake Switch
type Config struct {
	Flavor   Flavor
	Hostname string
	Username string
	Password string

	// EnablePassword is asked for by the Cisco flavor; Password when empty
	EnablePassword string

	// PageLines pauses output every n lines until a key is sent; 0 disables
	PageLines int

	// Ports is the number of front panel ports
	Ports int

	// Privileged logins land directly at the enabled prompt
	Privileged bool
}

// PortState is the simulated state of one front panel port
type PortState struct {
	AdminUp   bool
	Cable     bool
	Duplex    string
	SpeedMbps int

	PoEAdmin bool
	PoEState types.PoEState
	PowerMw  int
	MaxMw    int
	Class    int
}

// DefaultPortState is an enabled port with a powered class 2 device attached
func DefaultPortState() PortState {
	return PortState{
		AdminUp:   true,
		Cable:     true,
		Duplex:    "full",
		SpeedMbps: 1000,
		PoEAdmin:  true,
		PoEState:  types.PoEOn,
		PowerMw:   3700,
		MaxMw:     15400,
		Class:     2,
	}
}

// LinkUp reports whether the port has an operational link
func (p PortState) LinkUp() bool {
	return p.AdminUp && p.Cable
}

// Switch is a fake Telnet CLI server listening on the loopback interface
type Switch struct {
	cfg Config
	ln  net.Listener

	mu          sync.Mutex
	ports       map[int]*PortState
	cmdHistory  []string
	blankLines  int
	connections int
	delays      map[string]time.Duration
	conns       map[net.Conn]struct{}
	closed      bool

	wg sync.WaitGroup
}

// NewSwitch starts a fake switch on an ephemeral loopback port
func NewSwitch(cfg Config) (*Switch, error) {
	if cfg.Hostname == "" {
		if cfg.Flavor == FlavorCisco {
			cfg.Hostname = "switch"
		} else {
			cfg.Hostname = "awplus"
		}
	}
	if cfg.EnablePassword == "" {
		cfg.EnablePassword = cfg.Password
	}
	if cfg.Ports == 0 {
		cfg.Ports = defaultPorts
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s := &Switch{
		cfg:    cfg,
		ln:     ln,
		ports:  make(map[int]*PortState, cfg.Ports),
		delays: make(map[string]time.Duration),
		conns:  make(map[net.Conn]struct{}),
	}
	for i := 1; i <= cfg.Ports; i++ {
		p := DefaultPortState()
		s.ports[i] = &p
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the host:port the switch listens on
func (s *Switch) Addr() string {
	return s.ln.Addr().String()
}

// Descriptor returns a descriptor addressing this switch with its credentials
func (s *Switch) Descriptor() types.SwitchDescriptor {
	addr := s.ln.Addr().(*net.TCPAddr)
	model := types.ModelAlliedTelesisX230
	if s.cfg.Flavor == FlavorCisco {
		model = types.ModelCisco9300
	}
	return types.SwitchDescriptor{
		Model:    model,
		IPAddr:   addr.IP.String(),
		Port:     addr.Port,
		Username: s.cfg.Username,
		Password: s.cfg.Password,
		Protocol: types.ProtocolTelnet,
	}
}

// Commands returns every command received at the privileged prompt
func (s *Switch) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]string, len(s.cmdHistory))
	copy(history, s.cmdHistory)
	return history
}

// BlankLines returns how many empty lines were received at the privileged prompt
func (s *Switch) BlankLines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blankLines
}

// Connections returns how many connections were accepted
func (s *Switch) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// Port returns a copy of a port's state
func (s *Switch) Port(n int) (PortState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ports[n]
	if !ok {
		return PortState{}, false
	}
	return *p, true
}

// SetPort replaces a port's state
func (s *Switch) SetPort(n int, state PortState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[n] = &state
}

// SetDelay holds the response to command for d before answering
func (s *Switch) SetDelay(command string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[command] = d
}

// DropConnections closes every open client connection
func (s *Switch) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// Close stops the listener and closes all connections
func (s *Switch) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.ln.Close()
	s.DropConnections()
	s.wg.Wait()
	return err
}

func (s *Switch) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.connections++
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

// cliConn is the per-connection CLI state
type cliConn struct {
	conn   net.Conn
	r      *bufio.Reader
	mode   string
	port   int
	paging bool
}

func (c *cliConn) write(text string) error {
	_, err := c.conn.Write([]byte(text))
	return err
}

// readLine returns the next input line with Telnet commands removed
func (c *cliConn) readLine() (string, error) {
	var line []byte
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case iac:
			if err := c.skipCommand(); err != nil {
				return "", err
			}
		case '\r', 0:
		case '\n':
			return string(line), nil
		default:
			line = append(line, b)
		}
	}
}

func (c *cliConn) skipCommand() error {
	cmd, err := c.r.ReadByte()
	if err != nil {
		return err
	}
	switch cmd {
	case will, wont, do, dont:
		_, err = c.r.ReadByte()
	case sb:
		for {
			b, err := c.r.ReadByte()
			if err != nil {
				return err
			}
			if b == iac {
				if next, err := c.r.ReadByte(); err != nil || next == se {
					return err
				}
			}
		}
	}
	return err
}

func (s *Switch) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	c := &cliConn{conn: conn, r: bufio.NewReader(conn), paging: s.cfg.PageLines > 0}
	negotiation := string([]byte{iac, will, optEcho, iac, will, optSGA, iac, do, optTType})
	if err := c.write(negotiation); err != nil {
		return
	}

	if !s.login(c) {
		return
	}
	if !s.enable(c) {
		return
	}

	for {
		if err := c.write("\r\n" + s.prompt(c)); err != nil {
			return
		}
		line, err := c.readLine()
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if err := c.write(line + "\r\n"); err != nil {
			return
		}

		s.mu.Lock()
		if line == "" {
			s.blankLines++
		} else {
			s.cmdHistory = append(s.cmdHistory, line)
		}
		delay := s.delays[line]
		s.mu.Unlock()

		if line == "" {
			continue
		}
		output := s.execute(c, line)
		if delay > 0 {
			time.Sleep(delay)
		}
		if err := s.writeOutput(c, output); err != nil {
			return
		}
	}
}

func (s *Switch) login(c *cliConn) bool {
	for try := 0; try < maxLoginTries; try++ {
		var prompt string
		if s.cfg.Flavor == FlavorCisco {
			if try == 0 {
				prompt = "\r\n\r\nUser Access Verification\r\n\r\nUsername: "
			} else {
				prompt = "% Login invalid\r\n\r\nUsername: "
			}
		} else {
			if try == 0 {
				prompt = "\r\n\r\n" + s.cfg.Hostname + " login: "
			} else {
				prompt = "\r\nLogin incorrect\r\n\r\n" + s.cfg.Hostname + " login: "
			}
		}
		if err := c.write(prompt); err != nil {
			return false
		}

		user, err := c.readLine()
		if err != nil {
			return false
		}
		if err := c.write(user + "\r\nPassword: "); err != nil {
			return false
		}
		password, err := c.readLine()
		if err != nil {
			return false
		}
		if err := c.write("\r\n"); err != nil {
			return false
		}

		if user == s.cfg.Username && password == s.cfg.Password {
			return true
		}
	}
	return false
}

// enable walks the unprivileged prompt until "enable" succeeds
func (s *Switch) enable(c *cliConn) bool {
	if s.cfg.Privileged {
		return true
	}
	for {
		if err := c.write(s.cfg.Hostname + ">"); err != nil {
			return false
		}
		line, err := c.readLine()
		if err != nil {
			return false
		}
		line = strings.TrimSpace(line)
		if err := c.write(line + "\r\n"); err != nil {
			return false
		}

		switch {
		case line == "enable" && s.cfg.Flavor == FlavorAllied:
			return true
		case line == "enable":
			if err := c.write("Password: "); err != nil {
				return false
			}
			password, err := c.readLine()
			if err != nil {
				return false
			}
			if password == s.cfg.EnablePassword {
				return true
			}
			if err := c.write("\r\n% Access denied\r\n\r\n"); err != nil {
				return false
			}
		case line == "":
		default:
			if err := c.write(invalidInput + "\r\n\r\n"); err != nil {
				return false
			}
		}
	}
}

func (s *Switch) prompt(c *cliConn) string {
	if c.mode == "" {
		return s.cfg.Hostname + "#"
	}
	return s.cfg.Hostname + "(" + c.mode + ")#"
}

// writeOutput sends output lines, pausing for a keystroke every PageLines
func (s *Switch) writeOutput(c *cliConn, output []string) error {
	for i, line := range output {
		if c.paging && i > 0 && i%s.cfg.PageLines == 0 {
			if err := c.write(paginationMark); err != nil {
				return err
			}
			if _, err := c.readLine(); err != nil {
				return err
			}
			if err := c.write(paginationErase); err != nil {
				return err
			}
		}
		if err := c.write(line + "\r\n"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Switch) execute(c *cliConn, line string) []string {
	var showInterface, showPower, iface *regexp.Regexp
	if s.cfg.Flavor == FlavorCisco {
		showInterface, showPower, iface = ciscoShowInterface, ciscoShowPower, ciscoInterface
	} else {
		showInterface, showPower, iface = atShowInterface, atShowPower, atInterface
	}

	switch {
	case line == "enable":
		return nil
	case line == "terminal length 0":
		c.paging = false
		return nil
	case line == "configure terminal" && c.mode == "":
		c.mode = "config"
		if s.cfg.Flavor == FlavorCisco {
			return []string{"Enter configuration commands, one per line.  End with CNTL/Z."}
		}
		return nil
	case line == "end":
		c.mode = ""
		return nil
	case line == "exit":
		switch c.mode {
		case "config-if":
			c.mode = "config"
		default:
			c.mode = ""
		}
		return nil
	case (line == "shutdown" || line == "no shutdown") && c.mode == "config-if":
		s.mu.Lock()
		if p, ok := s.ports[c.port]; ok {
			p.AdminUp = line == "no shutdown"
		}
		s.mu.Unlock()
		return nil
	}

	if m := iface.FindStringSubmatch(line); m != nil && c.mode != "" {
		if _, ok := s.portState(m[1]); ok {
			c.mode = "config-if"
			c.port, _ = strconv.Atoi(m[1])
			return nil
		}
	}
	if m := showInterface.FindStringSubmatch(line); m != nil && c.mode == "" {
		if port, ok := s.portState(m[1]); ok {
			if s.cfg.Flavor == FlavorCisco {
				return ciscoStatusTable(m[1], port)
			}
			return alliedInterface(m[1], port)
		}
	}
	if m := showPower.FindStringSubmatch(line); m != nil && c.mode == "" {
		if port, ok := s.portState(m[1]); ok {
			if s.cfg.Flavor == FlavorCisco {
				return ciscoPowerDetail(m[1], port)
			}
			return alliedPowerTable(m[1], port)
		}
	}

	return []string{strings.Repeat(" ", len(s.prompt(c))) + "^", invalidInput}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func (s *Switch) portState(number string) (PortState, bool) {
	n, err := strconv.Atoi(number)
	if err != nil {
		return PortState{}, false
	}
	return s.Port(n)
}

func alliedInterface(n string, p PortState) []string {
	link := "DOWN"
	if p.LinkUp() {
		link = "UP"
	}
	admin := "DOWN"
	if p.AdminUp {
		admin = "UP"
	}
	out := []string{
		"Interface port1.0." + n,
		"  Scope: both",
		"  Link is " + link + ", administrative state is " + admin,
		"  Thrash-limiting",
		"    Status Unknown, Action learn-disable, Timeout 1(s)",
		"  Hardware is Ethernet, address is 0000.cd24.daeb",
		"  index " + strconv.Itoa(5000+atoi(n)) + " metric 1 mru 1500",
	}
	if p.LinkUp() {
		out = append(out, fmt.Sprintf("  current duplex %s, current speed %d, current polarity mdix", p.Duplex, p.SpeedMbps))
	}
	return append(out,
		"  configured duplex auto, configured speed auto, configured polarity auto",
		"  <UP,BROADCAST,RUNNING,MULTICAST>",
		"  SNMP link-status traps: Disabled",
		"    input packets 1279, bytes 1013726, dropped 0, multicast packets 0",
		"    output packets 2232, bytes 233046, multicast packets 0 broadcast packets 0",
		"  Time since last state change: 0 days 00:12:45",
	)
}

func alliedPowerTable(n string, p PortState) []string {
	admin := "Disabled"
	if p.PoEAdmin {
		admin = "Enabled"
	}
	oper := map[types.PoEState]string{
		types.PoEOn:    "Powered",
		types.PoEOff:   "Off",
		types.PoEFault: "Fault",
		types.PoEDeny:  "Deny",
	}[p.PoEState]
	if oper == "" || !p.PoEAdmin {
		oper = "Off"
	}
	return []string{
		"Interface   Admin    Pri  Oper     Power Device          Class Max",
		"                               (mW)                        (mW)",
		fmt.Sprintf("%-12s%-9s%-5s%-9s%5d %-19s%2d %d [C]",
			"port1.0."+n, admin, "Low", oper, p.PowerMw, "n/a", p.Class, p.MaxMw),
	}
}

func ciscoStatusTable(n string, p PortState) []string {
	status, duplex, speed := "connected", "a-"+p.Duplex, "a-"+strconv.Itoa(p.SpeedMbps)
	switch {
	case !p.AdminUp:
		status, duplex, speed = "disabled", "auto", "auto"
	case !p.Cable:
		status, duplex, speed = "notconnect", "auto", "auto"
	}
	return []string{
		"",
		"Port      Name               Status       Vlan       Duplex  Speed Type",
		fmt.Sprintf("%-10s%-19s%-13s%-11s%-7s%6s %s", "Gi1/0/"+n, "", status, "1", duplex, speed, "10/100/1000BaseTX"),
	}
}

func ciscoPowerDetail(n string, p PortState) []string {
	mode := "off"
	if p.PoEAdmin {
		mode = "auto"
	}
	oper := map[types.PoEState]string{
		types.PoEOn:    "on",
		types.PoEOff:   "off",
		types.PoEFault: "fault",
		types.PoEDeny:  "power-deny",
	}[p.PoEState]
	if oper == "" || !p.PoEAdmin {
		oper = "off"
	}
	watts := func(mw int) string { return strconv.FormatFloat(float64(mw)/1000, 'f', 1, 64) }
	return []string{
		"Interface: Gi1/0/" + n,
		" Inline Power Mode: " + mode,
		" Operational status: " + oper,
		" Device Detected: yes",
		" Device Type: Ieee PD",
		" IEEE Class: " + strconv.Itoa(p.Class),
		" Discovery mechanism used/configured: Ieee and Cisco",
		" Police: off",
		"",
		" Power Allocated",
		" Admin Value: 30.0",
		" Power drawn from the source: " + watts(p.PowerMw),
		" Power available to the device: " + watts(p.MaxMw),
		"",
		" Measured at the port: " + watts(p.PowerMw),
		" Maximum Power drawn by the device since powered on: " + watts(p.PowerMw),
	}
}
