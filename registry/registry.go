// Package registry caches one controller per switch so concurrent callers
// share a single logged-in session.
package registry

import (
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	usi "github.com/nanoncore/nano-usi"
	"github.com/nanoncore/nano-usi/metrics"
	"github.com/nanoncore/nano-usi/types"
	"go.uber.org/zap"
)

const (
	// DefaultIdleTTL evicts sessions unused for this long
	DefaultIdleTTL = 30 * time.Minute

	minSweepInterval = time.Second
)

// Factory creates the controller for a descriptor
type Factory func(desc types.SwitchDescriptor) (types.Controller, error)

// closer is implemented by controllers that can fail on their own
type closer interface {
	Done() <-chan struct{}
}

// Config holds configuration for a Registry
type Config struct {
	Factory Factory

	// IdleTTL evicts controllers not looked up for this long; negative disables
	IdleTTL time.Duration

	// SweepInterval is how often idle controllers are looked for; IdleTTL/2 by default
	SweepInterval time.Duration

	Logger *zap.Logger
}

type entry struct {
	desc       types.SwitchDescriptor
	controller types.Controller
	lastUsed   time.Time
}

// Registry maps switch identities to live controllers
type Registry struct {
	cfg Config
	log *zap.Logger
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a registry and starts its idle janitor
func New(cfg Config) *Registry {
	if cfg.Factory == nil {
		cfg.Factory = func(desc types.SwitchDescriptor) (types.Controller, error) {
			return usi.NewController(desc, usi.Options{Logger: cfg.Logger})
		}
	}
	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = cfg.IdleTTL / 2
	}
	if cfg.SweepInterval < minSweepInterval {
		cfg.SweepInterval = minSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := &Registry{
		cfg:     cfg,
		log:     cfg.Logger,
		now:     time.Now,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	if cfg.IdleTTL > 0 {
		r.wg.Add(1)
		go r.janitor()
	}
	return r
}

// Get returns the controller for desc, creating it on first use. Closed
// sessions are replaced. Models without connection state get a new
// controller on every call, which the caller should Close.
func (r *Registry) Get(desc types.SwitchDescriptor) (types.Controller, error) {
	desc = desc.WithDefaults()
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if caps, ok := usi.GetModelCapabilities(desc.Model); ok && !caps.Stateful {
		return r.cfg.Factory(desc)
	}

	key := desc.Key()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, types.NewError(types.CodeConnectionClosed, "get session", "registry is closed", nil)
	}

	var stale types.Controller
	if e, ok := r.entries[key]; ok {
		if !isClosed(e.controller) {
			e.lastUsed = r.now()
			r.mu.Unlock()
			return e.controller, nil
		}
		stale = e.controller
		delete(r.entries, key)
		metrics.Sessions.Dec()
		r.log.Info("replacing closed session", zap.String("switch", desc.String()))
	}

	controller, err := r.cfg.Factory(desc)
	if err != nil {
		r.mu.Unlock()
		closeQuietly(r.log, stale)
		return nil, err
	}
	r.entries[key] = &entry{desc: desc, controller: controller, lastUsed: r.now()}
	metrics.Sessions.Inc()
	r.mu.Unlock()

	closeQuietly(r.log, stale)
	r.log.Debug("created session", zap.String("switch", desc.String()))
	return controller, nil
}

// Dispose closes and forgets the controller for desc, if any
func (r *Registry) Dispose(desc types.SwitchDescriptor) error {
	key := desc.WithDefaults().Key()

	r.mu.Lock()
	e, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
		metrics.Sessions.Dec()
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return e.controller.Close()
}

// Len returns the number of cached controllers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the janitor and closes every controller
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	close(r.stop)
	r.wg.Wait()

	var result *multierror.Error
	for _, e := range entries {
		metrics.Sessions.Dec()
		if err := e.controller.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (r *Registry) janitor() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep closes controllers idle longer than IdleTTL and drops closed ones
func (r *Registry) sweep() {
	cutoff := r.now().Add(-r.cfg.IdleTTL)

	var evicted []*entry
	r.mu.Lock()
	for key, e := range r.entries {
		if e.lastUsed.Before(cutoff) || isClosed(e.controller) {
			evicted = append(evicted, e)
			delete(r.entries, key)
			metrics.Sessions.Dec()
		}
	}
	r.mu.Unlock()

	for _, e := range evicted {
		r.log.Info("evicting idle session", zap.String("switch", e.desc.String()))
		closeQuietly(r.log, e.controller)
	}
}

func isClosed(c types.Controller) bool {
	cl, ok := c.(closer)
	if !ok {
		return false
	}
	select {
	case <-cl.Done():
		return true
	default:
		return false
	}
}

func closeQuietly(log *zap.Logger, c types.Controller) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("failed to close controller", zap.Error(err))
	}
}
