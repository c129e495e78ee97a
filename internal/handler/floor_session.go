package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ordelia/floorplan-reservation/internal/floor"
	"github.com/ordelia/floorplan-reservation/internal/service"
)

// FloorSessionHandler exposes one staff member's interactive floor
// session over HTTP.  Every command runs against the session owned by
// the authenticated caller; resulting state changes stream back over the
// session's event feed.
type FloorSessionHandler struct {
	Hub *floor.SessionHub
}

func NewFloorSessionHandler(hub *floor.SessionHub) *FloorSessionHandler {
	return &FloorSessionHandler{Hub: hub}
}

// session resolves the caller's session and a context carrying the staff
// identity for activity attribution.
func (h *FloorSessionHandler) session(c echo.Context) (*floor.Session, context.Context) {
	staffID, _ := c.Get("staff_id").(uint64)
	s := h.Hub.Get(staffID)
	return s, service.WithStaffID(c.Request().Context(), staffID)
}

// floorError maps floor package errors onto HTTP statuses.  Hard
// backend failures surface as 502 because the session state has already
// been rolled back and retrying is legitimate.
func floorError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, floor.ErrUnitBlocked),
		errors.Is(err, floor.ErrDragNotAllowed),
		errors.Is(err, floor.ErrIncompletePool),
		errors.Is(err, floor.ErrDragInProgress),
		errors.Is(err, floor.ErrAlreadyActive):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, floor.ErrNoActiveDrag),
		errors.Is(err, floor.ErrNotActive),
		errors.Is(err, floor.ErrNotConflictDriven):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, floor.ErrUnitNotIndexed),
		errors.Is(err, floor.ErrEntryNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, floor.ErrCommitCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "commit cancelled"})
	default:
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
	}
}

// ----- state -----

// State returns a snapshot of the caller's session for initial render.
func (h *FloorSessionHandler) State(c echo.Context) error {
	s, _ := h.session(c)
	return c.JSON(http.StatusOK, echo.Map{
		"view_date":       s.ViewDate().Format("2006-01-02"),
		"editor_mode":     s.Drag.EditorMode(),
		"active_modal":    s.Modals.Active(),
		"collapsed_modal": s.Modals.Collapsed(),
		"interactive":     s.Modals.ShouldBeInteractive(),
		"selection":       s.Selection.Selected(),
		"units":           s.Index.All(),
		"pool":            s.Reassign.Pool(),
	})
}

type dateReq struct {
	Date string `json:"date"`
}

// SetDate switches the session's service date and reloads both the
// furniture index and, when active, the reassignment pool.
func (h *FloorSessionHandler) SetDate(c echo.Context) error {
	var req dateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	date, err := parseServiceDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
	}
	s, ctx := h.session(c)
	if err := s.SetViewDate(ctx, date); err != nil {
		return floorError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"view_date": date.Format("2006-01-02")})
}

type editorReq struct {
	Enabled bool `json:"enabled"`
}

// SetEditorMode toggles permanent-furniture editing for the session.
func (h *FloorSessionHandler) SetEditorMode(c echo.Context) error {
	var req editorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	s, _ := h.session(c)
	s.Drag.SetEditorMode(req.Enabled)
	return c.JSON(http.StatusOK, echo.Map{"editor_mode": req.Enabled})
}

// ----- selection -----

type selectReq struct {
	UnitID   uint64 `json:"unit_id"`
	Additive bool   `json:"additive"`
}

// Select toggles or replaces the unit selection.
func (h *FloorSessionHandler) Select(c echo.Context) error {
	var req selectReq
	if err := c.Bind(&req); err != nil || req.UnitID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unit_id required"})
	}
	s, _ := h.session(c)
	selected, err := s.Selection.Select(req.UnitID, req.Additive)
	if err != nil {
		return floorError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"selected":  selected,
		"selection": s.Selection.Selected(),
	})
}

// Deselect removes one unit from the selection.
func (h *FloorSessionHandler) Deselect(c echo.Context) error {
	var unitID uint64
	if err := echo.PathParamsBinder(c).Uint64("id", &unitID).BindError(); err != nil || unitID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid unit id"})
	}
	s, _ := h.session(c)
	s.Selection.Deselect(unitID)
	return c.JSON(http.StatusOK, echo.Map{"selection": s.Selection.Selected()})
}

// ClearSelection empties the selection.
func (h *FloorSessionHandler) ClearSelection(c echo.Context) error {
	s, _ := h.session(c)
	s.Selection.Clear()
	return c.NoContent(http.StatusNoContent)
}

// ----- drag -----

type dragReq struct {
	UnitID   uint64  `json:"unit_id"`
	PointerX float64 `json:"pointer_x"`
	PointerY float64 `json:"pointer_y"`
	Zoom     float64 `json:"zoom"`
}

func bindDrag(c echo.Context) (dragReq, error) {
	var req dragReq
	if err := c.Bind(&req); err != nil || req.UnitID == 0 {
		return req, errors.New("unit_id required")
	}
	if req.Zoom == 0 {
		req.Zoom = 1
	}
	return req, nil
}

// DragStart captures a unit for a drag gesture.
func (h *FloorSessionHandler) DragStart(c echo.Context) error {
	req, err := bindDrag(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	s, _ := h.session(c)
	if err := s.Drag.Start(req.UnitID, req.PointerX, req.PointerY); err != nil {
		return floorError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DragMove updates the in-flight transform for a gesture.
func (h *FloorSessionHandler) DragMove(c echo.Context) error {
	req, err := bindDrag(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	s, _ := h.session(c)
	if err := s.Drag.Move(req.UnitID, req.PointerX, req.PointerY, req.Zoom); err != nil {
		return floorError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DragEnd settles a gesture: below the movement threshold it is a click,
// otherwise the snapped position is committed to the backend.
func (h *FloorSessionHandler) DragEnd(c echo.Context) error {
	req, err := bindDrag(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	s, ctx := h.session(c)
	moved, err := s.Drag.End(ctx, req.UnitID, req.PointerX, req.PointerY, req.Zoom)
	if err != nil {
		return floorError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"moved": moved})
}

// DragCancel abandons a gesture and reverts the unit.
func (h *FloorSessionHandler) DragCancel(c echo.Context) error {
	var req dragReq
	if err := c.Bind(&req); err != nil || req.UnitID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unit_id required"})
	}
	s, _ := h.session(c)
	s.Drag.Cancel(req.UnitID)
	return c.NoContent(http.StatusNoContent)
}

// ----- reassignment -----

type activateReq struct {
	Date     string `json:"date"`
	Conflict *struct {
		Origin        string `json:"origin"`
		ReservationID uint64 `json:"reservation_id"`
	} `json:"conflict"`
}

// ActivateReassign opens the reassignment workflow, closing any other
// modal surface first.
func (h *FloorSessionHandler) ActivateReassign(c echo.Context) error {
	var req activateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	s, ctx := h.session(c)
	date := s.ViewDate()
	if req.Date != "" {
		d, err := parseServiceDate(req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
		}
		date = d
	}
	var conflict *floor.ConflictContext
	if req.Conflict != nil {
		conflict = &floor.ConflictContext{
			Origin:        req.Conflict.Origin,
			ReservationID: req.Conflict.ReservationID,
		}
	}
	if err := s.ActivateReassignment(ctx, date, conflict); err != nil {
		return floorError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pool": s.Reassign.Pool()})
}

type deactivateReq struct {
	Force bool `json:"force"`
}

// DeactivateReassign closes the workflow.  With incomplete pool entries
// it refuses unless force is set.
func (h *FloorSessionHandler) DeactivateReassign(c echo.Context) error {
	var req deactivateReq
	_ = c.Bind(&req)
	s, _ := h.session(c)
	if req.Force {
		s.ForceDeactivateReassignment()
		return c.NoContent(http.StatusNoContent)
	}
	if err := s.DeactivateReassignment(); err != nil {
		return floorError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CancelToConflict abandons a conflict-driven reassignment and hands the
// originating conflict context back to the caller.
func (h *FloorSessionHandler) CancelToConflict(c echo.Context) error {
	s, _ := h.session(c)
	conflict, err := s.CancelReassignmentToConflict()
	if err != nil {
		return floorError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"origin":         conflict.Origin,
		"reservation_id": conflict.ReservationID,
	})
}

// CollapseReassign hides the workflow surface without deactivating it.
func (h *FloorSessionHandler) CollapseReassign(c echo.Context) error {
	s, _ := h.session(c)
	s.Modals.Collapse(floor.ModalReassign)
	return c.NoContent(http.StatusNoContent)
}

// ExpandReassign restores a collapsed workflow surface.
func (h *FloorSessionHandler) ExpandReassign(c echo.Context) error {
	s, _ := h.session(c)
	s.Modals.Expand(floor.ModalReassign)
	return c.NoContent(http.StatusNoContent)
}

// Pool returns the current reassignment pool.
func (h *FloorSessionHandler) Pool(c echo.Context) error {
	s, _ := h.session(c)
	return c.JSON(http.StatusOK, echo.Map{"pool": s.Reassign.Pool()})
}

type entryReq struct {
	ReservationID uint64 `json:"reservation_id"`
}

// SelectEntry focuses one pool entry and refreshes preference highlights.
func (h *FloorSessionHandler) SelectEntry(c echo.Context) error {
	var req entryReq
	if err := c.Bind(&req); err != nil || req.ReservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id required"})
	}
	s, ctx := h.session(c)
	if err := s.Reassign.SelectEntry(ctx, req.ReservationID); err != nil {
		return floorError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type assignReq struct {
	ReservationID uint64   `json:"reservation_id"`
	UnitIDs       []uint64 `json:"unit_ids"`
}

// Assign attaches units to a pool entry's reservation.  Soft rejections
// surface on the event feed, not as HTTP errors.
func (h *FloorSessionHandler) Assign(c echo.Context) error {
	var req assignReq
	if err := c.Bind(&req); err != nil || req.ReservationID == 0 || len(req.UnitIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id and unit_ids required"})
	}
	s, ctx := h.session(c)
	if err := s.Reassign.Assign(ctx, req.ReservationID, req.UnitIDs); err != nil {
		return floorError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pool": s.Reassign.Pool()})
}

// Unassign releases units from a pool entry's reservation.
func (h *FloorSessionHandler) Unassign(c echo.Context) error {
	var req assignReq
	if err := c.Bind(&req); err != nil || req.ReservationID == 0 || len(req.UnitIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id and unit_ids required"})
	}
	s, ctx := h.session(c)
	if err := s.Reassign.Unassign(ctx, req.ReservationID, req.UnitIDs); err != nil {
		return floorError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pool": s.Reassign.Pool()})
}

// Undo replays the inverse of the most recent assignment change.
func (h *FloorSessionHandler) Undo(c echo.Context) error {
	s, ctx := h.session(c)
	if err := s.Reassign.Undo(ctx); err != nil {
		return floorError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"remaining": s.Reassign.UndoDepth(),
		"pool":      s.Reassign.Pool(),
	})
}
