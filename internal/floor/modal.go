package floor

import (
	"log"
	"sync"
)

// ModalReassign is the designated always-interactive surface: the canvas
// stays write-interactive while the reassignment workflow is open,
// because its entire purpose is furniture mutation.
const ModalReassign = "reassign"

// Surface is an interactive overlay registered with the coordinator.
// Close is invoked best-effort when another surface opens on top of it.
type Surface interface {
	Close() error
}

// SurfaceFunc adapts a plain function to the Surface interface.
type SurfaceFunc func() error

func (f SurfaceFunc) Close() error {
	if f == nil {
		return nil
	}
	return f()
}

// ModalCoordinator enforces single-active-surface discipline over the
// canvas and derives its interactivity.  It is an explicit service object
// owned by the session, injected wherever a view needs it, replacing the
// ambient singleton the workflow grew up with.
type ModalCoordinator struct {
	mu        sync.Mutex
	active    string
	collapsed string
	surfaces  map[string]Surface

	selection *SelectionState
	drag      *DragController

	// clearActionBar dismisses the pending multi-select action bar, if
	// the consuming view registered one.
	clearActionBar func()
}

// NewModalCoordinator wires the coordinator to the selection state and
// drag controller whose read-only gates it owns.
func NewModalCoordinator(selection *SelectionState, drag *DragController) *ModalCoordinator {
	return &ModalCoordinator{
		surfaces:  make(map[string]Surface),
		selection: selection,
		drag:      drag,
	}
}

// SetActionBarHook registers the callback that dismisses the multi-select
// action bar when a surface opens.
func (m *ModalCoordinator) SetActionBarHook(fn func()) {
	m.mu.Lock()
	m.clearActionBar = fn
	m.mu.Unlock()
}

// Open makes the named surface the single active one.  Every other
// registered surface is closed best-effort first: a failure closing one
// is logged and does not prevent closing the others, nor the open itself.
// Any pending multi-select action bar and its selections are cleared, the
// collapsed marker is reset and interactivity is recomputed.
func (m *ModalCoordinator) Open(name string, surface Surface) {
	m.mu.Lock()
	for other, s := range m.surfaces {
		if other == name {
			continue
		}
		if err := s.Close(); err != nil {
			log.Printf("modal: closing %q before opening %q: %v", other, name, err)
			continue
		}
		delete(m.surfaces, other)
	}
	m.surfaces[name] = surface
	m.active = name
	m.collapsed = ""
	barHook := m.clearActionBar
	m.mu.Unlock()

	if barHook != nil {
		barHook()
	}
	m.selection.Clear()
	m.applyInteractivity()
}

// Close closes and unregisters the named surface.  Closing the active
// surface leaves no surface active and restores canvas interactivity.
func (m *ModalCoordinator) Close(name string) {
	m.mu.Lock()
	s, ok := m.surfaces[name]
	if ok {
		delete(m.surfaces, name)
	}
	if m.active == name {
		m.active = ""
	}
	if m.collapsed == name {
		m.collapsed = ""
	}
	m.mu.Unlock()

	if ok {
		if err := s.Close(); err != nil {
			log.Printf("modal: closing %q: %v", name, err)
		}
	}
	m.applyInteractivity()
}

// Collapse visually deprioritizes the active surface without giving up
// its exclusivity.  Interactivity does not change.
func (m *ModalCoordinator) Collapse(name string) {
	m.mu.Lock()
	if m.active == name {
		m.collapsed = name
	}
	m.mu.Unlock()
}

// Expand restores a collapsed surface.
func (m *ModalCoordinator) Expand(name string) {
	m.mu.Lock()
	if m.collapsed == name {
		m.collapsed = ""
	}
	m.mu.Unlock()
}

// Active returns the name of the active surface, empty when none is open.
func (m *ModalCoordinator) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Collapsed returns the name of the collapsed surface, empty when none.
func (m *ModalCoordinator) Collapsed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collapsed
}

// ShouldBeInteractive reports whether the canvas accepts write input:
// true iff no surface is active or the active surface is the designated
// always-interactive reassignment mode.
func (m *ModalCoordinator) ShouldBeInteractive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interactiveLocked()
}

func (m *ModalCoordinator) interactiveLocked() bool {
	return m.active == "" || m.active == ModalReassign
}

// applyInteractivity pushes the derived read-only gate into the selection
// state and the drag controller.  Entering read-only cancels any drag in
// progress.
func (m *ModalCoordinator) applyInteractivity() {
	m.mu.Lock()
	interactive := m.interactiveLocked()
	m.mu.Unlock()
	m.selection.SetReadOnly(!interactive)
	m.drag.SetReadOnly(!interactive)
}
