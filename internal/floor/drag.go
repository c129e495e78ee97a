package floor

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// Drag errors surfaced to the wiring layer.
var (
	ErrDragNotAllowed  = errors.New("unit not draggable")
	ErrDragInProgress  = errors.New("drag already in progress for unit")
	ErrNoActiveDrag    = errors.New("no active drag for unit")
	ErrUnitNotIndexed  = errors.New("unit not in index")
	ErrCommitCancelled = errors.New("drag cancelled before commit settled")
)

// DragConfig holds the gesture tunables.
type DragConfig struct {
	// GridStep is the snap step in plan coordinates for both axes.
	GridStep float64
	// ThresholdPx is the screen-pixel displacement below which a release
	// counts as a click, not a drag.
	ThresholdPx float64
	// ResumeDelay postpones the refresh-scheduler release past commit
	// settlement.
	ResumeDelay time.Duration
}

// dragState is one in-progress gesture.  The origin fields are the exact
// rollback target; nothing else about the pre-drag unit is retained.
type dragState struct {
	pointerX, pointerY float64 // screen coords at Start
	originX, originY   float64 // plan coords at Start
	originRotation     float64

	curX, curY float64 // last snapped plan position
	maxTravel  float64 // max screen displacement seen

	committing bool
	cancelled  bool
}

// DragController implements the shared drag contract for editor-mode
// permanent units and always-draggable temporary units.  Gestures are
// exclusive per unit; different units may have commits in flight at the
// same time.
type DragController struct {
	mu sync.Mutex

	cfg      DragConfig
	index    *Index
	backend  Backend
	events   *Events
	refresh  *RefreshScheduler
	active   map[uint64]*dragState
	readOnly bool
	editor   bool
}

// NewDragController builds a controller over the shared index.
func NewDragController(cfg DragConfig, index *Index, backend Backend, events *Events, refresh *RefreshScheduler) *DragController {
	return &DragController{
		cfg:     cfg,
		index:   index,
		backend: backend,
		events:  events,
		refresh: refresh,
		active:  make(map[uint64]*dragState),
	}
}

// SetEditorMode toggles dragging of permanent units.  Temporary units are
// draggable regardless, unless locked or blocked.
func (d *DragController) SetEditorMode(on bool) {
	d.mu.Lock()
	d.editor = on
	d.mu.Unlock()
}

// EditorMode reports whether permanent-unit dragging is enabled.
func (d *DragController) EditorMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.editor
}

// SetReadOnly flips the coordinator-owned gate.  Entering read-only
// cancels every drag in progress immediately, reverting to origin
// without waiting on any in-flight request.
func (d *DragController) SetReadOnly(readOnly bool) {
	d.mu.Lock()
	d.readOnly = readOnly
	d.mu.Unlock()
	if readOnly {
		d.CancelAll()
	}
}

// draggableLocked answers whether a gesture may start on the unit.
func (d *DragController) draggableLocked(id uint64) error {
	u, ok := d.index.Get(id)
	if !ok {
		return ErrUnitNotIndexed
	}
	if u.Blocked {
		return ErrDragNotAllowed
	}
	if u.Temporary() {
		if u.Locked {
			return ErrDragNotAllowed
		}
		return nil // always draggable, read-only gate aside
	}
	if !d.editor {
		return ErrDragNotAllowed
	}
	return nil
}

// Start captures the origin pointer coordinate and the unit's pre-drag
// position and rotation.  No network traffic happens here.  The refresh
// scheduler is suspended for the lifetime of the gesture.
func (d *DragController) Start(unitID uint64, pointerX, pointerY float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readOnly {
		return ErrDragNotAllowed
	}
	if _, busy := d.active[unitID]; busy {
		return ErrDragInProgress
	}
	if err := d.draggableLocked(unitID); err != nil {
		return err
	}
	u, _ := d.index.Get(unitID)
	d.active[unitID] = &dragState{
		pointerX:       pointerX,
		pointerY:       pointerY,
		originX:        u.X,
		originY:        u.Y,
		originRotation: u.Rotation,
		curX:           u.X,
		curY:           u.Y,
	}
	d.refresh.Suspend()
	return nil
}

// Move updates the visual transform for an in-progress gesture.  The
// pointer delta is scaled by the zoom factor into plan coordinates and
// snapped to the grid on both axes.  The shared index is not touched and
// no backend call is made.
func (d *DragController) Move(unitID uint64, pointerX, pointerY, zoom float64) error {
	if zoom <= 0 {
		zoom = 1
	}
	d.mu.Lock()
	st, ok := d.active[unitID]
	if !ok || st.committing {
		d.mu.Unlock()
		return ErrNoActiveDrag
	}
	dx := (pointerX - st.pointerX) / zoom
	dy := (pointerY - st.pointerY) / zoom
	st.curX = snap(st.originX+dx, d.cfg.GridStep)
	st.curY = snap(st.originY+dy, d.cfg.GridStep)
	travel := math.Hypot(pointerX-st.pointerX, pointerY-st.pointerY)
	if travel > st.maxTravel {
		st.maxTravel = travel
	}
	ev := TransformEvent{UnitID: unitID, X: st.curX, Y: st.curY, Rotation: st.originRotation}
	d.mu.Unlock()
	d.events.publishTransform(ev)
	return nil
}

// End settles the gesture at the release pointer position.  Displacement
// below the threshold is a click: the transform reverts to origin and no
// commit is issued.  Past the threshold the snapped position is applied
// optimistically to the shared index, then committed to the backend; on
// any commit error both the index and the transform roll back to the
// captured origin.  It returns whether a commit was persisted.
func (d *DragController) End(ctx context.Context, unitID uint64, pointerX, pointerY, zoom float64) (bool, error) {
	if zoom <= 0 {
		zoom = 1
	}
	d.mu.Lock()
	st, ok := d.active[unitID]
	if !ok || st.committing {
		d.mu.Unlock()
		return false, ErrNoActiveDrag
	}

	travel := math.Hypot(pointerX-st.pointerX, pointerY-st.pointerY)
	if travel > st.maxTravel {
		st.maxTravel = travel
	}
	if st.maxTravel < d.cfg.ThresholdPx {
		// Click, not a drag.
		delete(d.active, unitID)
		origin := TransformEvent{UnitID: unitID, X: st.originX, Y: st.originY, Rotation: st.originRotation}
		d.mu.Unlock()
		d.events.publishTransform(origin)
		d.refresh.ResumeAfter(d.cfg.ResumeDelay)
		return false, nil
	}

	dx := (pointerX - st.pointerX) / zoom
	dy := (pointerY - st.pointerY) / zoom
	finalX := snap(st.originX+dx, d.cfg.GridStep)
	finalY := snap(st.originY+dy, d.cfg.GridStep)
	st.curX, st.curY = finalX, finalY
	st.committing = true

	// Optimistic apply: concurrent re-renders already see the new spot.
	d.index.ApplyPosition(unitID, finalX, finalY, st.originRotation)
	commit := PositionCommit{UnitID: unitID, X: finalX, Y: finalY, Rotation: st.originRotation}
	d.mu.Unlock()

	err := d.backend.CommitPosition(ctx, commit)

	d.mu.Lock()
	cancelled := st.cancelled
	delete(d.active, unitID)
	d.mu.Unlock()
	defer d.refresh.ResumeAfter(d.cfg.ResumeDelay)

	if cancelled {
		// Cancel already reverted index and transform; the response,
		// whatever it was, must not resurrect the uncommitted position.
		return false, ErrCommitCancelled
	}
	if err != nil {
		d.index.ApplyPosition(unitID, st.originX, st.originY, st.originRotation)
		d.events.publishTransform(TransformEvent{UnitID: unitID, X: st.originX, Y: st.originY, Rotation: st.originRotation})
		return false, err
	}
	d.events.publishTransform(TransformEvent{UnitID: unitID, X: finalX, Y: finalY, Rotation: st.originRotation, Committed: true})
	return true, nil
}

// Cancel aborts the gesture on one unit, reverting index and transform to
// the captured origin without waiting for any request to settle.
func (d *DragController) Cancel(unitID uint64) {
	d.mu.Lock()
	st, ok := d.active[unitID]
	if !ok {
		d.mu.Unlock()
		return
	}
	origin := TransformEvent{UnitID: unitID, X: st.originX, Y: st.originY, Rotation: st.originRotation}
	if st.committing {
		// End holds the gesture until its request settles; flag it so the
		// response is discarded.
		st.cancelled = true
		d.index.ApplyPosition(unitID, st.originX, st.originY, st.originRotation)
	} else {
		delete(d.active, unitID)
		defer d.refresh.ResumeAfter(d.cfg.ResumeDelay)
	}
	d.mu.Unlock()
	d.events.publishTransform(origin)
}

// CancelAll aborts every in-progress gesture.
func (d *DragController) CancelAll() {
	d.mu.Lock()
	ids := make([]uint64, 0, len(d.active))
	for id := range d.active {
		ids = append(ids, id)
	}
	d.mu.Unlock()
	for _, id := range ids {
		d.Cancel(id)
	}
}

// Dragging reports whether the unit has a gesture in progress.
func (d *DragController) Dragging(unitID uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[unitID]
	return ok
}

// snap rounds v to the nearest multiple of step.  A non-positive step
// disables snapping.
func snap(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}
