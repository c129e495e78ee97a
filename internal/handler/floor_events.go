package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ordelia/floorplan-reservation/internal/floor"
)

// sseFrame is one server-sent event ready for the wire.
type sseFrame struct {
	name string
	data []byte
}

// Events streams the caller's session events over SSE.  Every state
// change the session makes arrives as a named event with a JSON payload:
// selection changes, drag transforms, pool updates, warnings, rejection
// cues.  A slow consumer drops frames rather than blocking the session;
// the client re-syncs from the state snapshot endpoint after a reconnect.
func (h *FloorSessionHandler) Events(c echo.Context) error {
	s, _ := h.session(c)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	frames := make(chan sseFrame, 64)
	push := func(name string, payload interface{}) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		select {
		case frames <- sseFrame{name: name, data: data}:
		default: // drop for slow consumers
		}
	}

	ev := s.Events
	unsubs := []func(){
		ev.OnActivate(func(e floor.ActivateEvent) { push("reassign.activate", e) }),
		ev.OnDeactivate(func(e floor.DeactivateEvent) { push("reassign.deactivate", e) }),
		ev.OnPoolUpdate(func(e floor.PoolUpdateEvent) { push("pool.update", e) }),
		ev.OnSelectionChange(func(e floor.SelectionChangeEvent) { push("selection.change", e) }),
		ev.OnEntrySelected(func(e floor.EntrySelectedEvent) { push("pool.entry_selected", e) }),
		ev.OnHighlight(func(e floor.HighlightEvent) { push("highlight", e) }),
		ev.OnTransform(func(e floor.TransformEvent) { push("transform", e) }),
		ev.OnUndo(func(e floor.UndoEvent) { push("undo", e) }),
		ev.OnWarning(func(e floor.WarningEvent) { push("warning", e) }),
		ev.OnLockBlocked(func(e floor.LockBlockedEvent) { push("lock.blocked", e) }),
		ev.OnRejection(func(e floor.RejectionEvent) { push("rejection", e) }),
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-frames:
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", f.name, f.data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
