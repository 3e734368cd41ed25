// Package bootstrap decides, once per process, where the working database
// comes from and materializes the engine.
//
// States and transitions:
//
//	Init -> TryingLocal
//	TryingLocal  --image--> Ready
//	TryingLocal  --absent, development origin--> Fresh
//	TryingLocal  --absent--> TryingRemote
//	TryingRemote --image--> Ready
//	TryingRemote --absent--> Fresh
//	Fresh -> Ready (empty engine)
//
// An image that decodes but does not open as a database counts as absent for
// the source that produced it.
package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/sitestore/internal/common"
	"github.com/dmitrijs2005/sitestore/internal/engine"
	"github.com/dmitrijs2005/sitestore/internal/logging"
	"github.com/dmitrijs2005/sitestore/internal/snapshot"
)

type State int

const (
	StateInit State = iota
	StateTryingLocal
	StateTryingRemote
	StateFresh
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateTryingLocal:
		return "trying_local"
	case StateTryingRemote:
		return "trying_remote"
	case StateFresh:
		return "fresh"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Origin records which source supplied the engine's initial content.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
	OriginFresh  Origin = "fresh"
)

// Opener materializes an engine from an image (nil means empty).
type Opener func(ctx context.Context, image []byte) (*engine.Engine, error)

// Result is the outcome of a completed bootstrap.
type Result struct {
	Engine *engine.Engine
	Origin Origin
	Trail  []State
}

// Bootstrapper runs the fallback protocol exactly once.
type Bootstrapper struct {
	local       snapshot.Source
	remote      snapshot.Source
	development bool
	open        Opener
	logger      logging.Logger

	mu    sync.Mutex
	ran   bool
	state State
	trail []State
}

// New builds a Bootstrapper. A nil remote behaves like snapshot.EmptySource.
// development marks a local development environment, where the remote source
// is never consulted.
func New(local, remote snapshot.Source, development bool, logger logging.Logger) *Bootstrapper {
	if remote == nil {
		remote = snapshot.EmptySource{}
	}
	return &Bootstrapper{
		local:       local,
		remote:      remote,
		development: development,
		open:        engine.Open,
		logger:      logger,
		state:       StateInit,
		trail:       []State{StateInit},
	}
}

// WithOpener replaces the engine constructor; used by tests.
func (b *Bootstrapper) WithOpener(open Opener) *Bootstrapper {
	b.open = open
	return b
}

// State returns the current state.
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bootstrapper) enter(ctx context.Context, s State) {
	b.logger.Debug(ctx, "bootstrap transition", "from", b.state.String(), "to", s.String())
	b.state = s
	b.trail = append(b.trail, s)
}

// Run executes the protocol. The only error paths are a second call
// (common.ErrAlreadyBootstrapped) and failure to create an empty engine.
func (b *Bootstrapper) Run(ctx context.Context) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ran {
		return nil, common.ErrAlreadyBootstrapped
	}
	b.ran = true

	b.enter(ctx, StateTryingLocal)
	if e := b.tryOpen(ctx, b.local); e != nil {
		return b.ready(ctx, e, OriginLocal), nil
	}

	if b.development {
		b.logger.Info(ctx, "development environment, remote snapshot skipped")
	} else {
		b.enter(ctx, StateTryingRemote)
		if e := b.tryOpen(ctx, b.remote); e != nil {
			return b.ready(ctx, e, OriginRemote), nil
		}
	}

	b.enter(ctx, StateFresh)
	e, err := b.open(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create empty engine: %w", err)
	}
	return b.ready(ctx, e, OriginFresh), nil
}

func (b *Bootstrapper) tryOpen(ctx context.Context, src snapshot.Source) *engine.Engine {
	image, ok := src.TryLoad(ctx)
	if !ok {
		b.logger.Debug(ctx, "snapshot absent", "source", src.Name())
		return nil
	}

	e, err := b.open(ctx, image)
	if err != nil {
		b.logger.Warn(ctx, "snapshot could not be opened, treating as absent",
			"source", src.Name(), "bytes", len(image), "error", err)
		return nil
	}

	b.logger.Info(ctx, "snapshot loaded", "source", src.Name(), "bytes", len(image))
	return e
}

func (b *Bootstrapper) ready(ctx context.Context, e *engine.Engine, origin Origin) *Result {
	b.enter(ctx, StateReady)
	trail := make([]State, len(b.trail))
	copy(trail, b.trail)
	return &Result{Engine: e, Origin: origin, Trail: trail}
}
