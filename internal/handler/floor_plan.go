package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ordelia/floorplan-reservation/internal/repository"
)

// FloorPlanHandler serves read-only floor plan data straight from the
// database.  Interactive state lives in the per-staff session; these
// endpoints are cacheable because they carry none of it.
type FloorPlanHandler struct {
	Furniture *repository.FurnitureRepo
}

func NewFloorPlanHandler(f *repository.FurnitureRepo) *FloorPlanHandler {
	return &FloorPlanHandler{Furniture: f}
}

// parseServiceDate accepts YYYY-MM-DD.
func parseServiceDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}

// Units returns every furniture unit existing on the given service date,
// permanent pieces plus temporary ones whose validity covers the date.
func (h *FloorPlanHandler) Units(c echo.Context) error {
	date, err := parseServiceDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	units, err := h.Furniture.ListForDate(ctx, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":  date.Format("2006-01-02"),
		"units": units,
	})
}

// Unit returns a single furniture unit by id.
func (h *FloorPlanHandler) Unit(c echo.Context) error {
	var unitID uint64
	if err := echo.PathParamsBinder(c).Uint64("id", &unitID).BindError(); err != nil || unitID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid unit id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Furniture.GetByID(ctx, unitID)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unit not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, u)
}
