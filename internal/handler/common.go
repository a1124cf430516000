package handler

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated user's ID from the request
// context set by the JWT middleware.  The subject claim arrives as
// whatever type the JSON decoder produced, so both numeric and string
// forms are accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), nil
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid user id in token: %w", err)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("missing user id in token")
	}
}
