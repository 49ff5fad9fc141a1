package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/nanoncore/nano-usi/types"
	"github.com/ziutek/telnet"
	"golang.org/x/crypto/ssh"
)

// Dialer opens the raw byte stream to a switch CLI
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}

// NewDialer returns the dialer matching the descriptor's protocol
func NewDialer(desc types.SwitchDescriptor, timeout time.Duration) (Dialer, error) {
	desc = desc.WithDefaults()
	switch desc.Protocol {
	case types.ProtocolTelnet:
		return &TelnetDialer{Address: desc.Address(), Timeout: timeout}, nil
	case types.ProtocolSSH:
		return &SSHDialer{
			Address:  desc.Address(),
			Username: desc.Username,
			Password: desc.Password,
			Timeout:  timeout,
		}, nil
	default:
		return nil, types.NewError(types.CodeUnsupported, "dial",
			fmt.Sprintf("protocol %s has no CLI stream", desc.Protocol), nil)
	}
}

// TelnetDialer opens a Telnet stream. Option negotiation is answered by the
// telnet package: ECHO and SUPPRESS-GO-AHEAD are accepted, everything else,
// terminal type included, is refused so the switch treats us as a dumb
// terminal.
type TelnetDialer struct {
	Address string
	Timeout time.Duration
}

// Dial connects to the switch Telnet port
func (d *TelnetDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	nd := net.Dialer{Timeout: d.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial telnet: %w", err)
	}

	tc, err := telnet.NewConn(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start telnet session: %w", err)
	}
	return tc, nil
}

// SSHDialer opens an interactive shell over SSH. Authentication happens in
// the SSH handshake, so the CLI starts at the user or enabled prompt.
type SSHDialer struct {
	Address  string
	Username string
	Password string
	Timeout  time.Duration
}

// Dial connects, authenticates and starts a shell on a vt100 PTY
func (d *SSHDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	// Some switches only offer keyboard-interactive instead of password
	keyboardInteractive := ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = d.Password
		}
		return answers, nil
	})

	sshConfig := &ssh.ClientConfig{
		User: d.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(d.Password),
			keyboardInteractive,
		},
		Timeout:         d.Timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // lab switches rotate host keys
	}

	nd := net.Dialer{Timeout: d.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}

	if d.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, d.Address, sshConfig)
	if err != nil {
		conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, types.NewError(types.CodeAuthentication, "ssh handshake", "credentials rejected", err)
		}
		return nil, fmt.Errorf("failed SSH handshake: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})
	client := ssh.NewClient(c, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open SSH session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 9600,
		ssh.TTY_OP_OSPEED: 9600,
	}
	if err := session.RequestPty("vt100", 80, 40, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to request PTY: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to get stdout: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	return &sshStream{client: client, session: session, stdin: stdin, stdout: stdout}, nil
}

// sshStream adapts an SSH shell session to io.ReadWriteCloser
type sshStream struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

func (s *sshStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *sshStream) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

func (s *sshStream) Close() error {
	_ = s.session.Close()
	return s.client.Close()
}
