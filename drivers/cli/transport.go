package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/nanoncore/nano-usi/metrics"
	"github.com/nanoncore/nano-usi/types"
	"go.uber.org/zap"
)

const (
	// DefaultIdleTimeout is how long a quiet session waits before a keep-alive
	DefaultIdleTimeout = 7 * time.Second

	// DefaultConnectAttempts bounds the TCP connect retry loop
	DefaultConnectAttempts = 10

	// DefaultConnectBackoff is the fixed pause between connect attempts
	DefaultConnectBackoff = 100 * time.Millisecond

	// DefaultPagination is the marker printed when output is paused
	DefaultPagination = "--More--"

	readBufferSize = 4096
)

// Framer tells the transport where response units end. It is implemented
// by the session, whose state decides what a complete unit looks like.
type Framer interface {
	// UnitComplete reports whether the accumulated text, trailing
	// whitespace removed, forms a complete response unit
	UnitComplete(text string) bool

	// KeepAlive calls send if a keep-alive may be written now and reports
	// whether it did. The decision and the write happen under the framer's
	// own lock so that no command can be written between them.
	KeepAlive(send func()) bool
}

// TransportConfig holds configuration for a Transport
type TransportConfig struct {
	Dialer Dialer
	Framer Framer

	// Pagination marker; DefaultPagination when empty
	Pagination string

	IdleTimeout     time.Duration
	ConnectAttempts int
	ConnectBackoff  time.Duration

	// Model labels the transport metrics
	Model  types.Model
	Logger *zap.Logger
}

// Transport owns the byte stream to one switch. A reader goroutine
// normalizes incoming bytes and a gatherer goroutine frames them into
// response units, answers pagination prompts and sends keep-alives.
type Transport struct {
	cfg  TransportConfig
	log  *zap.Logger
	conn io.ReadWriteCloser

	chunks chan string
	units  chan string
	writes chan string

	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
	wg        sync.WaitGroup
}

// NewTransport creates a transport; Dial starts it
func NewTransport(cfg TransportConfig) (*Transport, error) {
	if cfg.Dialer == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if cfg.Framer == nil {
		return nil, fmt.Errorf("framer is required")
	}
	if cfg.Pagination == "" {
		cfg.Pagination = DefaultPagination
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = DefaultConnectAttempts
	}
	if cfg.ConnectBackoff == 0 {
		cfg.ConnectBackoff = DefaultConnectBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Transport{
		cfg:    cfg,
		log:    cfg.Logger,
		chunks: make(chan string, 64),
		units:  make(chan string, 16),
		writes: make(chan string, 64),
		done:   make(chan struct{}),
	}, nil
}

// Dial connects with a bounded number of attempts and starts the reader,
// gatherer and writer goroutines.
func (t *Transport) Dial(ctx context.Context) error {
	attempts := 0
	op := func() error {
		attempts++
		conn, err := t.cfg.Dialer.Dial(ctx)
		if err != nil {
			if errors.Is(err, types.ErrAuthentication) {
				return backoff.Permanent(err)
			}
			t.log.Debug("connect attempt failed", zap.Int("attempt", attempts), zap.Error(err))
			return err
		}
		t.errMu.Lock()
		t.conn = conn
		t.errMu.Unlock()
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(t.cfg.ConnectBackoff), uint64(t.cfg.ConnectAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		if types.CodeOf(err) == types.CodeAuthentication {
			t.fail(err)
			return err
		}
		cerr := types.NewError(types.CodeConnection, "dial",
			fmt.Sprintf("switch unreachable after %d attempts", attempts), err)
		t.fail(cerr)
		return cerr
	}

	select {
	case <-t.done:
		t.conn.Close()
		return t.Err()
	default:
	}

	t.wg.Add(3)
	go t.readLoop()
	go t.gatherLoop()
	go t.writeLoop()
	return nil
}

// Units delivers framed response units in arrival order
func (t *Transport) Units() <-chan string {
	return t.units
}

// Done is closed when the transport ends
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Err returns the error that ended the transport
func (t *Transport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

// WriteData queues one line for the switch. The line terminator is
// appended. Write failures end the transport.
func (t *Transport) WriteData(text string) {
	select {
	case t.writes <- text:
	case <-t.done:
	}
}

// Dispose closes the stream and releases every waiter. Safe to call more
// than once.
func (t *Transport) Dispose() {
	t.fail(types.NewError(types.CodeConnectionClosed, "dispose", "transport disposed", nil))
	t.wg.Wait()
}

func (t *Transport) fail(err error) {
	t.closeOnce.Do(func() {
		t.errMu.Lock()
		t.err = err
		conn := t.conn
		t.errMu.Unlock()
		close(t.done)
		if conn != nil {
			conn.Close()
		}
	})
}

func (t *Transport) readLoop() {
	defer t.wg.Done()

	var norm Normalizer
	buf := make([]byte, readBufferSize)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			if text := norm.Normalize(buf[:n]); text != "" {
				select {
				case t.chunks <- text:
				case <-t.done:
					return
				}
			}
		}
		if err != nil {
			t.fail(types.NewError(types.CodeConnection, "read", "switch closed the connection", err))
			return
		}
	}
}

func (t *Transport) writeLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.done:
			return
		case line := <-t.writes:
			if _, err := t.conn.Write([]byte(line + "\n")); err != nil {
				t.log.Error("write to switch failed", zap.Error(err))
				t.fail(types.NewError(types.CodeConnection, "write", "write to switch failed", err))
				return
			}
		}
	}
}

func (t *Transport) gatherLoop() {
	defer t.wg.Done()

	var buf strings.Builder
	idle := time.NewTimer(t.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-t.done:
			return

		case chunk := <-t.chunks:
			buf.WriteString(chunk)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(t.cfg.IdleTimeout)
			if unit, ok := t.frame(&buf); ok {
				select {
				case t.units <- unit:
				case <-t.done:
					return
				}
			}

		case <-idle.C:
			if t.cfg.Framer.KeepAlive(func() { t.WriteData("") }) {
				metrics.KeepAlives.WithLabelValues(string(t.cfg.Model)).Inc()
				t.log.Debug("sent keep-alive")
			}
			idle.Reset(t.cfg.IdleTimeout)
		}
	}
}

// frame inspects the accumulated text after a chunk. It answers a
// pagination prompt, or returns a complete unit and resets the buffer.
func (t *Transport) frame(buf *strings.Builder) (string, bool) {
	text := buf.String()
	trimmed := strings.TrimRight(text, " \t\n")

	if strings.HasSuffix(trimmed, t.cfg.Pagination) {
		buf.Reset()
		buf.WriteString(strings.TrimSuffix(trimmed, t.cfg.Pagination))
		t.WriteData("")
		metrics.PaginationContinuations.WithLabelValues(string(t.cfg.Model)).Inc()
		return "", false
	}

	if t.cfg.Framer.UnitComplete(trimmed) {
		buf.Reset()
		return text, true
	}

	t.log.Debug("accumulating partial response", zap.Int("buffered", buf.Len()),
		zap.Error(types.NewError(types.CodeProtocolParse, "frame", "no complete response unit yet", nil)))
	return "", false
}
