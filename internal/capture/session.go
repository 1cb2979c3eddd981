// Package capture drives the off-screen render loop: one shared rasterizer
// context, strictly sequential view captures, and a ledger that guarantees
// every acquired resource is released on every exit path.
package capture

import (
	"sync/atomic"

	"github.com/fogleman/fauxgl"
	"go.uber.org/zap"

	"print-studio/internal/studio"
)

// activeResources counts ledger entries across all live sessions. A
// long-running process can watch it to prove invocations do not leak.
var activeResources atomic.Int64

// ActiveResources reports how many session resources are currently held.
func ActiveResources() int64 {
	return activeResources.Load()
}

// Options sizes the render target. The zero Options means DefaultOptions.
type Options struct {
	// Width and Height are the output image size in pixels.
	Width  int
	Height int
	// Supersample renders at this multiple of the output size and
	// downsamples for antialiasing. Clamped to [1, 4].
	Supersample int
	// FOVDeg is the vertical field of view. It should match the value the
	// view planner fitted distances against.
	FOVDeg float64
}

// DefaultOptions returns the listing render setup.
func DefaultOptions() Options {
	return Options{
		Width:       1024,
		Height:      1024,
		Supersample: 2,
		FOVDeg:      35,
	}
}

func (o Options) withDefaults() Options {
	if o == (Options{}) {
		return DefaultOptions()
	}
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.Supersample < 1 {
		o.Supersample = 1
	}
	if o.Supersample > 4 {
		o.Supersample = 4
	}
	if o.FOVDeg <= 0 {
		o.FOVDeg = def.FOVDeg
	}
	return o
}

// Session owns the render context and the adopted scene for one pipeline
// invocation. It is not safe for concurrent use; captures share one context
// and run sequentially. Release must run on every exit path.
type Session struct {
	ctx      *fauxgl.Context
	scene    *studio.Scene
	opts     Options
	log      *zap.Logger
	ledger   []string
	released bool
}

// NewSession allocates the render target and adopts scene into the resource
// ledger. The caller must Release the session, typically via defer.
func NewSession(scene *studio.Scene, opts Options, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()
	s := &Session{
		scene: scene,
		opts:  opts,
		log:   log,
	}
	s.ctx = fauxgl.NewContext(opts.Width*opts.Supersample, opts.Height*opts.Supersample)
	s.acquire("render-context")
	s.acquire("model-geometry")
	if scene.Ground != nil {
		s.acquire("ground-geometry")
	}
	s.acquire("studio-material")
	return s
}

func (s *Session) acquire(name string) {
	s.ledger = append(s.ledger, name)
	activeResources.Add(1)
	s.log.Debug("capture: acquired resource", zap.String("resource", name))
}

// Release returns every ledger entry in reverse acquisition order and drops
// the scene and context references. Safe to call more than once.
func (s *Session) Release() {
	if s.released {
		return
	}
	s.released = true
	for i := len(s.ledger) - 1; i >= 0; i-- {
		activeResources.Add(-1)
		s.log.Debug("capture: released resource", zap.String("resource", s.ledger[i]))
	}
	s.ledger = nil
	if s.scene != nil {
		s.scene.Release()
	}
	s.ctx = nil
}
