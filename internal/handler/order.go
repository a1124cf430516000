package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/service"
)

// OrderHandler exposes the order lifecycle over HTTP.  It parses and
// validates requests and maps service errors to status codes; all
// business rules live in the order service.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	if orders == nil {
		panic("nil order service passed to NewOrderHandler")
	}
	return &OrderHandler{orders: orders}
}

// createOrderRequest is the body of POST /v1/orders.
type createOrderRequest struct {
	TrainNo       string                     `json:"train_no"`
	DepartureDate string                     `json:"departure_date"`
	Origin        string                     `json:"origin"`
	Destination   string                     `json:"destination"`
	Passengers    []service.PassengerRequest `json:"passengers"`
}

// Create handles POST /v1/orders: validates the interval and fare
// classes and persists a pending order.  No seats are held yet.
func (h *OrderHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.TrainNo == "" || req.DepartureDate == "" || req.Origin == "" || req.Destination == "" || len(req.Passengers) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "train_no, departure_date, origin, destination and passengers are required"})
	}

	result, err := h.orders.CreateOrder(c.Request().Context(), userID, req.TrainNo, req.DepartureDate, req.Origin, req.Destination, req.Passengers)
	switch {
	case errors.Is(err, service.ErrTrainNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrStationNotOnRoute),
		errors.Is(err, service.ErrInvalidDirection),
		errors.Is(err, service.ErrUnsupportedFareClass),
		errors.Is(err, service.ErrPassengerNotOwned):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrFareDataMissing):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
	}
	return c.JSON(http.StatusCreated, result)
}

// Confirm handles POST /v1/orders/:id/confirm: allocates seats for the
// order and starts the payment hold.
func (h *OrderHandler) Confirm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	result, err := h.orders.ConfirmOrder(c.Request().Context(), c.Param("id"), userID)
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidOrderStatus):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSoldOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm order"})
	}
	return c.JSON(http.StatusOK, result)
}

// Pay handles POST /v1/orders/:id/pay.
func (h *OrderHandler) Pay(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	receipt, err := h.orders.PayOrder(c.Request().Context(), c.Param("id"), userID)
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrOrderExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidOrderStatus):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to pay order"})
	}
	return c.JSON(http.StatusOK, receipt)
}

// Cancel handles DELETE /v1/orders/:id: releases any held seats and
// removes the order, subject to the daily cancellation cap.
func (h *OrderHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	err = h.orders.CancelOrder(c.Request().Context(), c.Param("id"), userID)
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidOrderStatus):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrCancellationLimitExceeded):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel order"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}

// Get handles GET /v1/orders/:id.
func (h *OrderHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	view, err := h.orders.GetOrder(c.Request().Context(), c.Param("id"), userID)
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load order"})
	}
	return c.JSON(http.StatusOK, view)
}

// List handles GET /v1/orders, newest first.
func (h *OrderHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	views, err := h.orders.ListOrders(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load orders"})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": views})
}
