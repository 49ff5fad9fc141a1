// Package session drives one switch CLI through login, privilege escalation
// and serialized command execution on top of a cli.Transport.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nanoncore/nano-usi/drivers/cli"
	"github.com/nanoncore/nano-usi/metrics"
	"github.com/nanoncore/nano-usi/types"
	"github.com/nanoncore/nano-usi/vendors/common"
	"go.uber.org/zap"
)

const (
	// DefaultCommandTimeout applies to commands whose context has no deadline
	DefaultCommandTimeout = 30 * time.Second

	// DefaultLoginTimeout bounds login and enable together
	DefaultLoginTimeout = 60 * time.Second

	// DefaultMaxQueueDepth bounds requests waiting on one session
	DefaultMaxQueueDepth = 64

	// DefaultDialTimeout bounds a single TCP connect
	DefaultDialTimeout = 5 * time.Second

	enableCommand = "enable"

	// recoverCommand returns the CLI to the exec prompt after a failed sequence
	recoverCommand = "end"
)

var hostnameRegex = regexp.MustCompile(`^[\w.\-]+$`)

// Config holds configuration for a Session
type Config struct {
	Descriptor types.SwitchDescriptor
	Profile    types.VendorProfile

	// Dialer overrides the dialer derived from the descriptor
	Dialer cli.Dialer

	CommandTimeout  time.Duration
	LoginTimeout    time.Duration
	IdleTimeout     time.Duration
	DialTimeout     time.Duration
	ConnectAttempts int
	ConnectBackoff  time.Duration
	MaxQueueDepth   int

	// DisablePager sends the profile's pager disable command once Ready
	DisablePager bool

	Logger *zap.Logger
}

// Session is a logged-in CLI conversation with one switch. A single owner
// goroutine performs login and then executes queued requests one at a time
// in submission order.
type Session struct {
	cfg       Config
	log       *zap.Logger
	profile   types.VendorProfile
	patterns  types.PromptPatterns
	username  string
	password  string
	transport *cli.Transport

	mu       sync.Mutex
	state    State
	hostname string
	promptRE *regexp.Regexp
	pending  bool
	orphans  int
	strays   int
	queue    []*request
	closeErr error
	lastUsed time.Time

	wake   chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// request is one caller's command sequence waiting for the owner goroutine
type request struct {
	ctx      context.Context
	op       string
	commands []string

	// recover is sent when the sequence fails part way through
	recover string

	// handle consumes the responses on the owner goroutine before the
	// caller is released
	handle func(responses []string)

	responses []string
	err       error
	done      chan struct{}
}

func (r *request) finish(responses []string, err error) {
	r.responses = responses
	r.err = err
	close(r.done)
}

// New creates a session and starts connecting in the background. Requests
// may be submitted immediately; they wait until the session is Ready.
func New(cfg Config) (*Session, error) {
	if cfg.Profile == nil {
		return nil, fmt.Errorf("vendor profile is required")
	}
	desc := cfg.Descriptor.WithDefaults()
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	cfg.Descriptor = desc

	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.LoginTimeout == 0 {
		cfg.LoginTimeout = DefaultLoginTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Dialer == nil {
		dialer, err := cli.NewDialer(desc, cfg.DialTimeout)
		if err != nil {
			return nil, err
		}
		cfg.Dialer = dialer
	}

	s := &Session{
		cfg:      cfg,
		profile:  cfg.Profile,
		patterns: cfg.Profile.Patterns(),
		state:    StateConnecting,
		lastUsed: time.Now(),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		log: cfg.Logger.With(
			zap.String("switch", desc.String()),
			zap.String("model", string(desc.Model)),
		),
	}
	s.username, s.password = cfg.Profile.Credentials(desc.Username, desc.Password)

	transport, err := cli.NewTransport(cli.TransportConfig{
		Dialer:          cfg.Dialer,
		Framer:          s,
		Pagination:      s.patterns.Pagination,
		IdleTimeout:     cfg.IdleTimeout,
		ConnectAttempts: cfg.ConnectAttempts,
		ConnectBackoff:  cfg.ConnectBackoff,
		Model:           desc.Model,
		Logger:          s.log,
	})
	if err != nil {
		return nil, err
	}
	s.transport = transport
	s.ctx, s.cancel = context.WithCancel(context.Background())
	metrics.StateTransitions.WithLabelValues(string(desc.Model), StateConnecting.String()).Inc()

	s.wg.Add(1)
	go s.run()
	return s, nil
}

// Descriptor returns the switch this session talks to
func (s *Session) Descriptor() types.SwitchDescriptor {
	return s.cfg.Descriptor
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Hostname returns the hostname learned from the login prompt
func (s *Session) Hostname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostname
}

// LastUsed returns when a request was last submitted
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Done is closed once the session is Closed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that closed the session
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr
}

// Close disposes the session. Queued and later requests fail with
// ConnectionClosed.
func (s *Session) Close() error {
	s.shutdown(types.NewError(types.CodeConnectionClosed, "close", "session disposed", nil))
	s.wg.Wait()
	return nil
}

// setState advances the state machine. States never move backwards and
// Closed is only entered through shutdown.
func (s *Session) setState(state State) {
	s.mu.Lock()
	if state <= s.state || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()

	metrics.StateTransitions.WithLabelValues(string(s.cfg.Descriptor.Model), state.String()).Inc()
	s.log.Debug("session state changed", zap.Stringer("state", state))
}

// shutdown closes the session with err and fails every queued request
// with it. Only the first call has any effect.
func (s *Session) shutdown(err error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.closeErr = err
	queue := s.queue
	s.queue = nil
	s.mu.Unlock()

	metrics.StateTransitions.WithLabelValues(string(s.cfg.Descriptor.Model), StateClosed.String()).Inc()
	if types.CodeOf(err) == types.CodeConnectionClosed {
		s.log.Info("session closed")
	} else {
		s.log.Error("session failed", zap.Error(err))
	}

	close(s.done)
	for _, req := range queue {
		req.finish(nil, err)
	}
	s.cancel()
	s.transport.Dispose()
}

func (s *Session) run() {
	defer s.wg.Done()

	if err := s.connect(); err != nil {
		s.shutdown(err)
		return
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.transport.Done():
			s.shutdown(s.transport.Err())
			return
		case unit := <-s.transport.Units():
			s.discard(unit)
		case <-s.wake:
			if !s.drainQueue() {
				return
			}
		}
	}
}

// connect dials, logs in and escalates to the privileged prompt
func (s *Session) connect() error {
	if err := s.transport.Dial(s.ctx); err != nil {
		return err
	}
	s.setState(StateAuthenticating)

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.LoginTimeout)
	defer cancel()

	for s.State() != StateReady {
		unit, err := s.nextUnit(ctx)
		if err != nil {
			if ctx.Err() != nil && s.ctx.Err() == nil {
				return types.NewError(types.CodeConnection, "login",
					"no privileged prompt within login timeout", ctx.Err())
			}
			return err
		}
		if err := s.handleLoginUnit(unit); err != nil {
			return err
		}
	}
	s.log.Info("session ready", zap.String("hostname", s.Hostname()))

	if s.cfg.DisablePager && s.patterns.PagerDisable != "" {
		if _, err := s.exchange(ctx, "disable pager", s.patterns.PagerDisable); err != nil {
			if types.IsFatal(err) {
				return err
			}
			s.log.Warn("failed to disable pager", zap.Error(err))
		}
	}
	return nil
}

func (s *Session) nextUnit(ctx context.Context) (string, error) {
	select {
	case unit := <-s.transport.Units():
		return unit, nil
	case <-s.transport.Done():
		return "", s.transport.Err()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// handleLoginUnit reacts to one unit while Authenticating or Enabling
func (s *Session) handleLoginUnit(unit string) error {
	text := strings.TrimRight(unit, " \t\n")
	last := common.LastLine(text)
	p := s.patterns

	switch s.State() {
	case StateAuthenticating:
		if marker := containsAny(text, p.LoginFailures); marker != "" {
			return types.NewError(types.CodeAuthentication, "login", "switch rejected credentials", errors.New(marker))
		}
		if host, ok := promptHost(last, p.EnabledTerminator); ok {
			// Privileged accounts land on the enabled prompt directly
			s.learnHostname(host)
			s.setState(StateEnabling)
			s.setState(StateReady)
			return nil
		}
		if host, ok := promptHost(last, p.LoginTerminator); ok {
			s.learnHostname(host)
			s.setState(StateEnabling)
			s.transport.WriteData(enableCommand)
			return nil
		}
		if p.Password != "" && strings.HasSuffix(last, p.Password) {
			s.transport.WriteData(s.password)
			return nil
		}
		if p.Username != "" && strings.HasSuffix(last, p.Username) {
			s.transport.WriteData(s.username)
			return nil
		}

	case StateEnabling:
		if marker := containsAny(text, p.EnableFailures); marker != "" {
			return types.NewError(types.CodeAuthentication, "enable", "switch rejected enable password", errors.New(marker))
		}
		if s.isPrompt(text) {
			s.setState(StateReady)
			return nil
		}
		if p.Password != "" && strings.HasSuffix(last, p.Password) {
			s.transport.WriteData(s.password)
			return nil
		}
		if strings.HasSuffix(last, p.LoginTerminator) {
			return types.NewError(types.CodeAuthentication, "enable", "privileged prompt not reached", nil)
		}
	}

	s.log.Debug("ignoring login output", zap.String("line", last))
	return nil
}

func (s *Session) learnHostname(host string) {
	re := regexp.MustCompile(regexp.QuoteMeta(host) + `\s*(\([^)]*\))?` + regexp.QuoteMeta(s.patterns.EnabledTerminator) + `$`)
	s.mu.Lock()
	s.hostname = host
	s.promptRE = re
	s.mu.Unlock()
}

func (s *Session) prompt() *regexp.Regexp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promptRE
}

func (s *Session) isPrompt(text string) bool {
	re := s.prompt()
	return re != nil && re.MatchString(text)
}

// isBare reports whether a unit holds nothing but a prompt
func (s *Session) isBare(unit string) bool {
	return strings.TrimSpace(common.CleanResponse(unit, "", s.prompt())) == ""
}

// UnitComplete implements cli.Framer
func (s *Session) UnitComplete(text string) bool {
	s.mu.Lock()
	state, re := s.state, s.promptRE
	s.mu.Unlock()

	p := s.patterns
	last := common.LastLine(text)
	switch state {
	case StateAuthenticating:
		if containsAny(text, p.LoginFailures) != "" {
			return true
		}
		if _, ok := promptHost(last, p.EnabledTerminator); ok {
			return true
		}
		if _, ok := promptHost(last, p.LoginTerminator); ok {
			return true
		}
		return hasSuffix(last, p.Password) || hasSuffix(last, p.Username)
	case StateEnabling:
		if containsAny(text, p.EnableFailures) != "" {
			return true
		}
		if re != nil && re.MatchString(text) {
			return true
		}
		return hasSuffix(last, p.Password) || hasSuffix(last, p.LoginTerminator)
	case StateReady:
		return re != nil && re.MatchString(text)
	default:
		return false
	}
}

// KeepAlive implements cli.Framer. Keep-alives are only sent while Ready
// with nothing in flight and no late response outstanding. Commands are
// written under the same lock, so each keep-alive is ordered strictly
// before or after a command on the wire.
func (s *Session) KeepAlive(send func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.pending || s.orphans > 0 {
		return false
	}
	s.strays++
	send()
	return true
}

// discard drops a unit that arrived with no command in flight
func (s *Session) discard(unit string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.orphans > 0:
		s.orphans--
		s.log.Debug("discarded late response", zap.Int("orphans", s.orphans))
	case s.strays > 0:
		s.strays--
	default:
		s.log.Debug("discarded unsolicited output", zap.Int("bytes", len(unit)))
	}
}

func (s *Session) submit(ctx context.Context, op string, commands []string, recover string, handle func([]string)) ([]string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CommandTimeout)
		defer cancel()
	}

	req := &request{
		ctx:      ctx,
		op:       op,
		commands: commands,
		recover:  recover,
		handle:   handle,
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	if s.state == StateClosed {
		err := types.NewError(types.CodeConnectionClosed, op, "session is closed", s.closeErr)
		s.mu.Unlock()
		return nil, err
	}
	if len(s.queue) >= s.cfg.MaxQueueDepth {
		s.mu.Unlock()
		return nil, types.NewError(types.CodeSessionBusy, op,
			fmt.Sprintf("%d requests already queued", s.cfg.MaxQueueDepth), nil)
	}
	s.queue = append(s.queue, req)
	s.lastUsed = time.Now()
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	select {
	case <-req.done:
		return req.responses, req.err
	case <-ctx.Done():
		select {
		case <-req.done:
			return req.responses, req.err
		default:
		}
		return nil, contextError(op, ctx.Err())
	}
}

func (s *Session) dequeue() *request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	req := s.queue[0]
	s.queue = s.queue[1:]
	return req
}

// drainQueue executes queued requests until the queue is empty. It returns
// false once the session has closed.
func (s *Session) drainQueue() bool {
	for {
		req := s.dequeue()
		if req == nil {
			return true
		}
		if err := req.ctx.Err(); err != nil {
			req.finish(nil, contextError(req.op, err))
			continue
		}

		responses, err := s.execute(req)
		if err != nil && types.IsFatal(err) {
			s.shutdown(err)
			req.finish(responses, s.Err())
			return false
		}
		if err == nil && req.handle != nil {
			req.handle(responses)
		}
		req.finish(responses, err)
	}
}

func (s *Session) execute(req *request) ([]string, error) {
	responses := make([]string, 0, len(req.commands))
	for i, cmd := range req.commands {
		resp, err := s.exchange(req.ctx, req.op, cmd)
		if err != nil {
			if req.recover != "" && needsRecovery(i, err) {
				s.recoverPrompt(req.recover)
			}
			return responses, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// needsRecovery reports whether a sequence that failed at step i may have
// left the CLI outside the exec prompt. A rejected first step changed
// nothing; a first step that timed out or was canceled may still land.
func needsRecovery(i int, err error) bool {
	if types.IsFatal(err) {
		return false
	}
	return i > 0 || types.CodeOf(err) != types.CodeResponseParse
}

// recoverPrompt sends command to leave configuration mode, ignoring the result
func (s *Session) recoverPrompt(command string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.CommandTimeout)
	defer cancel()
	if _, err := s.exchange(ctx, "recover", command); err != nil {
		s.log.Warn("failed to return to exec prompt", zap.Error(err))
	}
}

// exchange writes one command and waits for its response unit. On context
// expiry the response is left outstanding and discarded when it arrives.
func (s *Session) exchange(ctx context.Context, op, command string) (string, error) {
	units := s.transport.Units()

	for s.outstanding() > 0 {
		select {
		case unit := <-units:
			s.discard(unit)
		case <-s.transport.Done():
			return "", s.transport.Err()
		case <-ctx.Done():
			return "", contextError(op, ctx.Err())
		}
	}

	s.mu.Lock()
	s.pending = true
	s.transport.WriteData(command)
	s.mu.Unlock()
	defer s.setPending(false)

	for {
		select {
		case unit := <-units:
			if s.skipStray(unit, command) {
				continue
			}
			resp := common.CleanResponse(unit, command, s.prompt())
			if err := common.CommandError(op, resp, s.patterns.CommandErrors); err != nil {
				return resp, err
			}
			return resp, nil
		case <-s.transport.Done():
			return "", s.transport.Err()
		case <-ctx.Done():
			s.mu.Lock()
			s.orphans++
			s.mu.Unlock()
			s.log.Warn("command timed out", zap.String("command", command))
			return "", contextError(op, ctx.Err())
		}
	}
}

func (s *Session) outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orphans
}

func (s *Session) setPending(pending bool) {
	s.mu.Lock()
	s.pending = pending
	s.mu.Unlock()
}

// skipStray reports whether a unit is the prompt answering an earlier
// keep-alive. Each keep-alive accounts for exactly one prompt, either as a
// bare unit or at the head of the next response.
func (s *Session) skipStray(unit, command string) bool {
	if !s.isBare(unit) {
		if s.leadingPrompt(unit, command) {
			s.mu.Lock()
			if s.strays > 0 {
				s.strays--
			}
			s.mu.Unlock()
		}
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.strays > 0 {
		s.strays--
		return true
	}
	return false
}

// leadingPrompt reports whether the first line of unit is a prompt, alone
// or followed by the echo of command
func (s *Session) leadingPrompt(unit, command string) bool {
	for _, line := range strings.Split(unit, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		head := strings.TrimSpace(strings.TrimSuffix(line, strings.TrimSpace(command)))
		return head != "" && s.isPrompt(head)
	}
	return false
}

// contextError classifies an expired request context
func contextError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return types.NewError(types.CodeCommandTimeout, op, "no response before deadline", err)
}

// promptHost returns the hostname of a prompt line ending with terminator
func promptHost(line, terminator string) (string, bool) {
	if terminator == "" || !strings.HasSuffix(line, terminator) {
		return "", false
	}
	host := strings.TrimSpace(strings.TrimSuffix(line, terminator))
	return host, hostnameRegex.MatchString(host)
}

func containsAny(text string, markers []string) string {
	for _, m := range markers {
		if m != "" && strings.Contains(text, m) {
			return m
		}
	}
	return ""
}

func hasSuffix(s, suffix string) bool {
	return suffix != "" && strings.HasSuffix(s, suffix)
}

// Ensure Session implements required interfaces
var _ types.Controller = (*Session)(nil)
var _ cli.Framer = (*Session)(nil)
