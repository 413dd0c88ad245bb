// Package generator runs QR generation cycles: build the request, fetch the
// image, composite it. Every trigger gets a new generation token; completions
// carrying an older token are dropped so a slow response can never overwrite
// a newer result.
package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/PRASANNAPATIL12/weddingcard/internal/compositor"
	"github.com/PRASANNAPATIL12/weddingcard/internal/metrics"
	"github.com/PRASANNAPATIL12/weddingcard/internal/qrrequest"
	"github.com/PRASANNAPATIL12/weddingcard/internal/style"
)

// ErrSuperseded is returned by Await when a newer trigger replaced the cycle.
var ErrSuperseded = errors.New("generation cycle superseded")

// ErrClosed is returned by Trigger after Close.
var ErrClosed = errors.New("generator closed")

// State is the phase of the current cycle.
type State int

const (
	Idle State = iota
	Requesting
	Loading
	Composited
	Failed
)

var stateNames = [...]string{"idle", "requesting", "loading", "composited", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Fetcher loads the image a descriptor points at.
type Fetcher interface {
	Fetch(ctx context.Context, d qrrequest.Descriptor) (image.Image, error)
}

// Result is one composited image.
type Result struct {
	Token      uint64               `json:"token"`
	Target     string               `json:"target"`
	Selection  style.Selection      `json:"selection"`
	Descriptor qrrequest.Descriptor `json:"descriptor"`
	PNG        []byte               `json:"-"`
	FinishedAt time.Time            `json:"finished_at"`
}

// Ticket identifies a triggered cycle.
type Ticket struct {
	Token      uint64               `json:"token"`
	Descriptor qrrequest.Descriptor `json:"descriptor"`
	done       <-chan struct{}
}

// Status is a point-in-time view of a generator.
type Status struct {
	State      State                `json:"state"`
	Token      uint64               `json:"token"`
	Selection  style.Selection      `json:"selection"`
	Descriptor qrrequest.Descriptor `json:"descriptor"`
	Error      string               `json:"error,omitempty"`
	Last       *Result              `json:"last,omitempty"`
}

// Options wires a Generator.
type Options struct {
	Builder    *qrrequest.Builder
	Fetcher    Fetcher
	Compositor *compositor.Compositor
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Generator owns the cycles of one QR widget.
type Generator struct {
	builder *qrrequest.Builder
	fetcher Fetcher
	comp    *compositor.Compositor
	metrics *metrics.Metrics
	logger  *slog.Logger

	baseCtx   context.Context
	baseClose context.CancelFunc
	wg        sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	token     uint64
	state     State
	cancel    context.CancelFunc
	selection style.Selection
	desc      qrrequest.Descriptor
	done      <-chan struct{}
	last      *Result
	lastErr   error
}

// New returns an idle Generator.
func New(opts Options) *Generator {
	g := &Generator{
		builder: opts.Builder,
		fetcher: opts.Fetcher,
		comp:    opts.Compositor,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		state:   Idle,
	}
	if g.builder == nil {
		g.builder = qrrequest.NewBuilder(qrrequest.Endpoints{})
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.comp == nil {
		g.comp = compositor.New(g.logger)
	}
	g.baseCtx, g.baseClose = context.WithCancel(context.Background())
	return g
}

// Trigger starts a new cycle for target and sel and cancels the previous one.
func (g *Generator) Trigger(target string, sel style.Selection) (Ticket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.triggerLocked(target, sel)
}

// TriggerMerge derives the next selection from the current one with update
// and starts a cycle for it. The read and the trigger happen under one lock,
// so concurrent updates to different fields are never lost. Before the first
// trigger the current selection is def.
func (g *Generator) TriggerMerge(target string, def style.Selection, update func(style.Selection) style.Selection) (Ticket, style.Selection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.selection
	if g.token == 0 {
		cur = def
	}
	sel := update(cur)
	t, err := g.triggerLocked(target, sel)
	return t, sel, err
}

func (g *Generator) triggerLocked(target string, sel style.Selection) (Ticket, error) {
	if g.closed {
		return Ticket{}, ErrClosed
	}
	if g.cancel != nil {
		g.cancel()
	}
	g.token++
	token := g.token
	g.state = Requesting
	g.selection = sel
	g.lastErr = nil

	desc := g.builder.BuildSelection(target, sel)
	g.desc = desc

	ctx, cancel := context.WithCancel(g.baseCtx)
	g.cancel = cancel
	done := make(chan struct{})
	g.done = done

	g.state = Loading
	g.wg.Add(1)
	go g.run(ctx, cancel, token, target, sel, desc, done)

	g.logger.Debug("generator: cycle started", "token", token, "shape", sel.Shape)
	return Ticket{Token: token, Descriptor: desc, done: done}, nil
}

func (g *Generator) run(ctx context.Context, cancel context.CancelFunc, token uint64,
	target string, sel style.Selection, desc qrrequest.Descriptor, done chan struct{}) {
	defer g.wg.Done()
	defer close(done)
	defer cancel()

	img, err := g.fetcher.Fetch(ctx, desc)
	if g.stale(token) {
		g.metrics.CycleFinished("superseded")
		g.logger.Debug("generator: dropping stale completion", "token", token)
		return
	}
	if err != nil {
		g.logger.Warn("generator: image load failed", "token", token, "endpoint", desc.Endpoint, "error", err)
		g.settle(token, nil, err)
		return
	}

	res, err := g.compose(img, target, sel, desc)
	if err != nil {
		g.logger.Error("generator: encode failed", "token", token, "error", err)
		g.settle(token, nil, err)
		return
	}
	res.Token = token
	g.settle(token, res, nil)
}

func (g *Generator) compose(img image.Image, target string, sel style.Selection, desc qrrequest.Descriptor) (*Result, error) {
	surface := compositor.NewSurface()
	g.comp.Render(surface, img, sel)
	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return &Result{
		Target:     target,
		Selection:  sel,
		Descriptor: desc,
		PNG:        buf.Bytes(),
		FinishedAt: time.Now(),
	}, nil
}

func (g *Generator) stale(token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return token != g.token
}

// settle commits the outcome of a cycle if it is still current.
func (g *Generator) settle(token uint64, res *Result, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if token != g.token {
		g.metrics.CycleFinished("superseded")
		return
	}
	if err != nil {
		g.state = Failed
		g.lastErr = err
		g.metrics.CycleFinished("failed")
		return
	}
	g.state = Composited
	g.last = res
	g.metrics.CycleFinished("composited")
}

// Await blocks until the ticket's cycle finishes.
func (g *Generator) Await(ctx context.Context, t Ticket) (Result, error) {
	if t.done == nil {
		return Result{}, errors.New("generator: ticket was not issued by Trigger")
	}
	select {
	case <-t.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if t.Token != g.token {
		return Result{}, ErrSuperseded
	}
	if g.state == Failed {
		return Result{}, g.lastErr
	}
	if g.last == nil {
		return Result{}, errors.New("generator: cycle finished without a result")
	}
	return *g.last, nil
}

// Generate runs one cycle synchronously and blocks until it settles.
func (g *Generator) Generate(ctx context.Context, target string, sel style.Selection) (Result, error) {
	t, err := g.Trigger(target, sel)
	if err != nil {
		return Result{}, err
	}
	return g.Await(ctx, t)
}

// Render builds, fetches and composites without touching cycle state. It is
// meant for one-shot callers that own their own cancellation.
func (g *Generator) Render(ctx context.Context, target string, sel style.Selection) (Result, error) {
	desc := g.builder.BuildSelection(target, sel)
	img, err := g.fetcher.Fetch(ctx, desc)
	if err != nil {
		return Result{}, err
	}
	res, err := g.compose(img, target, sel, desc)
	if err != nil {
		return Result{}, err
	}
	return *res, nil
}

// Status reports the current state and the last composited result.
func (g *Generator) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := Status{
		State:      g.state,
		Token:      g.token,
		Selection:  g.selection,
		Descriptor: g.desc,
		Last:       g.last,
	}
	if g.lastErr != nil {
		st.Error = g.lastErr.Error()
	}
	return st
}

// Latest returns the ticket of the most recent trigger. ok is false when
// the generator has never been triggered.
func (g *Generator) Latest() (t Ticket, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token == 0 {
		return Ticket{}, false
	}
	return Ticket{Token: g.token, Descriptor: g.desc, done: g.done}, true
}

// Selection returns the selection of the latest trigger, or def when the
// generator has never been triggered.
func (g *Generator) Selection(def style.Selection) style.Selection {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token == 0 {
		return def
	}
	return g.selection
}

// Close cancels in-flight cycles and waits for them to return.
func (g *Generator) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.baseClose()
	g.wg.Wait()
}
