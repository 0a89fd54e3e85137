// Package livelink runs the face-capture pipeline: it owns the capture
// socket, decodes each datagram with the configured vocabulary, remaps it
// into the unified pose and publishes the result.
//
// A host drives it through three entry points. Initialize binds the port
// and reports which outputs are produced, Update runs one cycle and
// Teardown releases everything. Start runs Update on a background loop.
package livelink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/facelink/internal/livelink/network"
	"github.com/banshee-data/facelink/internal/livelink/parse"
	"github.com/banshee-data/facelink/internal/monitoring"
	"github.com/banshee-data/facelink/internal/publish"
	"github.com/banshee-data/facelink/internal/remap"
	"github.com/banshee-data/facelink/internal/smoothing"
	"github.com/banshee-data/facelink/internal/timeutil"
	"github.com/banshee-data/facelink/internal/unified"
)

// DefaultUpdateInterval matches the polling cadence of avatar hosts.
const DefaultUpdateInterval = 10 * time.Millisecond

var logf = monitoring.Component("LiveLink")

// ErrNotInitialized is returned by Update before Initialize.
var ErrNotInitialized = errors.New("livelink module not initialized")

// Config configures a Module. Zero values select defaults.
type Config struct {
	// Vocabulary maps payload slots to pose fields. Default parse.VocabularyV1.
	Vocabulary *parse.Vocabulary

	DisableEye bool
	DisableLip bool

	// Smoothing filters every output channel when non-nil.
	Smoothing *smoothing.Bank

	// UpdateInterval is the pause between loop cycles.
	UpdateInterval time.Duration
	// StatsInterval enables periodic stats logging when positive.
	StatsInterval time.Duration

	Receiver network.ReceiverConfig
	Store    *publish.Store
	Stats    *Stats
	Clock    timeutil.Clock
}

// Module is the handle a host holds for the capture pipeline. Update is
// not safe for concurrent use; Start's loop is its only caller once
// started.
type Module struct {
	cfg      Config
	vocab    *parse.Vocabulary
	receiver *network.Receiver
	engine   *remap.Engine
	store    *publish.Store
	stats    *Stats
	clock    timeutil.Clock

	// Loop-owned state.
	last     *unified.TargetPose
	failures int

	mu          sync.Mutex
	initialized bool
	session     string
	cancel      context.CancelFunc
	done        chan struct{}
}

// New creates a module. Nothing is bound until Initialize.
func New(cfg Config) *Module {
	if cfg.Vocabulary == nil {
		cfg.Vocabulary = parse.VocabularyV1
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultUpdateInterval
	}
	if cfg.Store == nil {
		cfg.Store = publish.NewStore(0)
	}
	if cfg.Stats == nil {
		cfg.Stats = NewStats()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.Receiver.Stats == nil {
		cfg.Receiver.Stats = cfg.Stats
	}

	return &Module{
		cfg:      cfg,
		vocab:    cfg.Vocabulary,
		receiver: network.NewReceiver(cfg.Receiver),
		engine: remap.NewEngine(remap.Config{
			EyeEnabled: !cfg.DisableEye,
			LipEnabled: !cfg.DisableLip,
			Smoothing:  cfg.Smoothing,
		}),
		store: cfg.Store,
		stats: cfg.Stats,
		clock: cfg.Clock,
	}
}

// Initialize validates the vocabulary, binds port and resets filter
// state. It reports which outputs the module will produce. A bind
// failure is returned as *network.BindError. Calling it again stops a
// loop started by Start and rebinds; call Start again to resume.
func (m *Module) Initialize(port int) (eyeSupported, lipSupported bool, err error) {
	m.stopLoop()
	m.mu.Lock()
	m.initialized = false
	m.mu.Unlock()

	if err := m.vocab.Validate(); err != nil {
		return false, false, fmt.Errorf("vocabulary %s: %w", m.vocab.Version(), err)
	}
	if err := m.receiver.Open(port); err != nil {
		return false, false, err
	}

	m.engine.Reset()
	m.last = nil
	m.failures = 0

	m.mu.Lock()
	m.initialized = true
	m.session = uuid.NewString()
	session := m.session
	m.mu.Unlock()

	eyeSupported, lipSupported = m.engine.EyeEnabled(), m.engine.LipEnabled()
	logf("session %s: vocabulary %s, eye=%t lip=%t", session, m.vocab.Version(), eyeSupported, lipSupported)
	return eyeSupported, lipSupported, nil
}

// Update runs one receive, decode, remap and publish cycle. It blocks
// until a datagram arrives or ctx is done. On any failure nothing is
// published and the previous pose stays current; the error is returned
// for the caller's information.
func (m *Module) Update(ctx context.Context) error {
	m.mu.Lock()
	ready := m.initialized
	m.mu.Unlock()
	if !ready {
		return ErrNotInitialized
	}

	values, err := parse.ReadFrame(ctx, m.receiver, m.vocab.Names())
	if err != nil {
		if errors.Is(err, parse.ErrIncompleteFrame) {
			m.stats.AddDecodeFailure()
		}
		return err
	}

	src, err := parse.Assemble(values, m.vocab)
	if err != nil {
		m.stats.AddDecodeFailure()
		return err
	}

	next := m.engine.Remap(src, m.last)
	m.last = next
	m.store.Publish(next, m.clock.Now())
	m.stats.AddFrame()
	return nil
}

// Run calls Update until ctx is done, sleeping UpdateInterval between
// cycles. Cycle errors are logged and never stop the loop.
func (m *Module) Run(ctx context.Context) error {
	var statsC <-chan time.Time
	if m.cfg.StatsInterval > 0 {
		ticker := m.clock.NewTicker(m.cfg.StatsInterval)
		defer ticker.Stop()
		statsC = ticker.C()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.Update(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrNotInitialized) || errors.Is(err, network.ErrNotOpen) {
				return err
			}
			m.logFailure(err)
		} else {
			m.failures = 0
		}

		select {
		case <-statsC:
			m.stats.LogStats()
		default:
		}

		m.clock.Sleep(m.cfg.UpdateInterval)
	}
}

// logFailure logs the first few consecutive failures, then every 100th.
func (m *Module) logFailure(err error) {
	m.failures++
	if m.failures <= 5 || m.failures%100 == 0 {
		logf("cycle failed (%d consecutive), keeping previous pose: %v", m.failures, err)
	}
}

// Start runs the loop in a background goroutine. Teardown stops it.
func (m *Module) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logf("capture loop stopped: %v", err)
		}
	}()
}

// stopLoop cancels a loop started by Start and waits for it to exit.
func (m *Module) stopLoop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Teardown stops the loop, releases the socket and clears filter state.
// It is safe to call more than once.
func (m *Module) Teardown() error {
	m.stopLoop()

	m.mu.Lock()
	wasInitialized := m.initialized
	m.initialized = false
	m.mu.Unlock()

	err := m.receiver.Close()
	m.engine.Reset()
	if wasInitialized {
		logf("torn down")
	}
	return err
}

// SetEyeEnabled turns eye output on or off while the module runs. While
// off, published poses keep the last eye section.
func (m *Module) SetEyeEnabled(on bool) {
	m.engine.SetEyeEnabled(on)
	logf("eye output enabled=%t", on)
}

// SetLipEnabled turns lip output on or off while the module runs.
func (m *Module) SetLipEnabled(on bool) {
	m.engine.SetLipEnabled(on)
	logf("lip output enabled=%t", on)
}

// EyeEnabled reports whether eye output is currently produced.
func (m *Module) EyeEnabled() bool { return m.engine.EyeEnabled() }

// LipEnabled reports whether lip output is currently produced.
func (m *Module) LipEnabled() bool { return m.engine.LipEnabled() }

// Store returns the publication store.
func (m *Module) Store() *publish.Store { return m.store }

// Stats returns the capture statistics.
func (m *Module) Stats() *Stats { return m.stats }

// Vocabulary returns the active vocabulary.
func (m *Module) Vocabulary() *parse.Vocabulary { return m.vocab }

// Session returns the ID assigned by the last Initialize, or "".
func (m *Module) Session() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// LocalAddr returns the bound capture address, or "" when closed.
func (m *Module) LocalAddr() string {
	if addr := m.receiver.LocalAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
