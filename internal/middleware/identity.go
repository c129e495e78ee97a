package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentStaffID returns the authenticated staff id as a string for use
// in rate limit keys, or "anon" when the request is unauthenticated.
func currentStaffID(c echo.Context) string {
	if v, ok := c.Get("staff_id").(uint64); ok && v != 0 {
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
