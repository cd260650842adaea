package stories

import (
	"html/template"
	"sync"
)

// State is a presentation state of the region.
type State int

// Possible states. A region goes from loading to either error or ready
// and never back within one mount.
const (
	StateLoading State = iota
	StateError
	StateReady
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateError:
		return "error"
	case StateReady:
		return "ready"
	default:
		return "loading"
	}
}

// Meta is the document metadata for the hosting page.
type Meta struct {
	Title         string
	OGTitle       string
	OGDescription string
	OGImage       string
	Breadcrumb    string
}

// Ticket identifies a single mount of the region.
type Ticket struct {
	gen uint64
	key string
}

// Key returns the key the region was mounted for.
func (t Ticket) Key() string { return t.key }

// Region is the single output area the pipeline renders into.
// Results that arrive for a superseded mount are dropped.
type Region struct {
	rnd *Renderer

	mu    sync.Mutex
	gen   uint64
	state State
	html  template.HTML
	meta  Meta
}

// NewRegion makes a new region that renders transient states with the given renderer.
func NewRegion(rnd *Renderer) *Region {
	return &Region{rnd: rnd}
}

// Mount starts a new view for the given key, showing the loader.
func (r *Region) Mount(key string) Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	r.state = StateLoading
	r.html = r.rnd.Loading()
	r.meta = Meta{}

	return Ticket{gen: r.gen, key: key}
}

// Fail shows the error with the given user-facing message.
// Returns false if the ticket is stale or the region has already settled.
func (r *Region) Fail(t Ticket, message string) bool {
	return r.settle(t, StateError, r.rnd.Error(message))
}

// Ready shows the rendered view.
// Returns false if the ticket is stale or the region has already settled.
func (r *Region) Ready(t Ticket, html template.HTML) bool {
	return r.settle(t, StateReady, html)
}

// SetMeta applies the document metadata while the mount is still current.
func (r *Region) SetMeta(t Ticket, meta Meta) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.gen != r.gen {
		return false
	}

	r.meta = meta
	return true
}

// Snapshot returns the current state, markup and metadata.
func (r *Region) Snapshot() (State, template.HTML, Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.html, r.meta
}

func (r *Region) settle(t Ticket, state State, html template.HTML) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.gen != r.gen || r.state != StateLoading {
		return false
	}

	r.state = state
	r.html = html
	return true
}
