package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"

	"stumbleDiscovery/domain"
)

type (
	TrendingHandler struct {
		trendingService TrendingService
	}

	TrendingService interface {
		List(ctx context.Context, window string, limit int) ([]domain.TrendingRecord, error)
	}
)

func NewTrendingHandler(svc TrendingService) *TrendingHandler {
	return &TrendingHandler{trendingService: svc}
}

// ListTrending serves GET /trending?window=hour|day|week&limit=.
func (h *TrendingHandler) ListTrending(c echo.Context) error {
	window := c.QueryParam("window")
	if window == "" {
		window = domain.WindowDay
	}
	if !domain.ValidWindow(window) {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "window must be one of hour, day, week"})
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "limit must be between 1 and 100"})
		}
		limit = n
	}

	records, err := h.trendingService.List(c.Request().Context(), window, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}
	if records == nil {
		records = []domain.TrendingRecord{}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(records))
}
