package geom

import "sync"

// Mapper is the stateful holder of one ViewportState. All conversions are
// pure functions of the held snapshot; the only mutation path is
// UpdateViewport, which bumps the version so readers can detect staleness.
// One Mapper exists per active viewer.
type Mapper struct {
	mu      sync.RWMutex
	state   ViewportState
	version uint64
}

// NewMapper creates a Mapper holding the given initial state.
func NewMapper(state ViewportState) *Mapper {
	return &Mapper{state: state}
}

// State returns the current viewport snapshot.
func (m *Mapper) State() ViewportState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Version returns the current state version. It increments on every
// UpdateViewport call.
func (m *Mapper) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Snapshot returns the state together with its version.
func (m *Mapper) Snapshot() (ViewportState, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.version
}

// UpdateViewport merges a partial update into the current state. Nil fields
// are left untouched. No validation happens here beyond what the caller
// did; callers must not pass zoom <= 0.
func (m *Mapper) UpdateViewport(u ViewportUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Zoom != nil {
		m.state.Zoom = *u.Zoom
	}
	if u.Scroll != nil {
		m.state.Scroll = *u.Scroll
	}
	if u.Viewport != nil {
		m.state.Viewport = *u.Viewport
	}
	if u.Design != nil {
		m.state.Design = *u.Design
	}
	m.version++
}

// NormalizedToDesign converts against the current snapshot.
func (m *Mapper) NormalizedToDesign(r Rect) Rect { return m.State().NormalizedToDesign(r) }

// DesignToScreen converts against the current snapshot.
func (m *Mapper) DesignToScreen(r Rect) Rect { return m.State().DesignToScreen(r) }

// ScreenToDesign converts against the current snapshot.
func (m *Mapper) ScreenToDesign(p Point) Point { return m.State().ScreenToDesign(p) }

// ScreenToNormalized converts against the current snapshot.
func (m *Mapper) ScreenToNormalized(p Point) Point { return m.State().ScreenToNormalized(p) }
