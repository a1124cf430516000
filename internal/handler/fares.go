package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/service"
)

// FaresHandler serves fare and availability queries for a train
// interval.
type FaresHandler struct {
	route *service.RouteService
}

// NewFaresHandler constructs a FaresHandler.
func NewFaresHandler(route *service.RouteService) *FaresHandler {
	if route == nil {
		panic("nil route service passed to NewFaresHandler")
	}
	return &FaresHandler{route: route}
}

// GetFares handles GET /v1/trains/:no/fares?date=&from=&to=.  It
// returns, per sellable fare class, the aggregated interval price and
// the number of seats free across the whole interval.
func (h *FaresHandler) GetFares(c echo.Context) error {
	trainNo := c.Param("no")
	date := c.QueryParam("date")
	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if trainNo == "" || date == "" || from == "" || to == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date, from and to are required"})
	}

	classes, err := h.route.GetAvailableFareClasses(c.Request().Context(), trainNo, from, to, date)
	switch {
	case errors.Is(err, service.ErrTrainNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrStationNotOnRoute), errors.Is(err, service.ErrInvalidDirection):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrFareDataMissing):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load fares"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"train_no":       trainNo,
		"departure_date": date,
		"origin":         from,
		"destination":    to,
		"fare_classes":   classes,
	})
}
