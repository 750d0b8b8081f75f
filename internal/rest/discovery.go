package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"stumbleDiscovery/business/discovery"
	"stumbleDiscovery/domain"
	"stumbleDiscovery/pkg/logger"
	"stumbleDiscovery/pkg/metrics"
)

type (
	DiscoveryHandler struct {
		validate         *validator.Validate
		discoveryService DiscoveryService
	}

	DiscoveryService interface {
		SelectNext(ctx context.Context, userID uint, opts discovery.SelectOptions) (domain.DiscoveryResult, error)
		DebugSelect(ctx context.Context, userID uint, opts discovery.SelectOptions) ([]domain.ScoredContent, error)
		RecordFeedback(ctx context.Context, userID uint, contentID, action string, timeToAction time.Duration) error
	}

	DiscoverQuery struct {
		Seen string `query:"seen"`
	}

	FeedbackRequest struct {
		ContentID      string `json:"content_id" validate:"required"`
		Action         string `json:"action" validate:"required,oneof=liked saved shared skipped"`
		TimeToActionMs int64  `json:"time_to_action_ms" validate:"gte=0"`
	}
)

func NewDiscoveryHandler(svc DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{
		validate:         validator.New(),
		discoveryService: svc,
	}
}

// Discover serves GET /discovery/next. On an empty pool it relaxes the
// topic-preference filter and retries once; on a candidate-fetch timeout it
// retries once with a reduced pool. Both degradations are invisible to the
// client apart from the result.
func (h *DiscoveryHandler) Discover(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.DiscoverySelectLatency.Observe(time.Since(start).Seconds())
	}()

	uidVal := c.Get("user_id")
	userID, ok := uidVal.(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	var q DiscoverQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	opts := discovery.SelectOptions{
		SessionSeen: splitSeen(q.Seen),
	}

	ctx := c.Request().Context()

	result, err := h.discoveryService.SelectNext(ctx, userID, opts)
	if errors.Is(err, domain.ErrNoCandidates) {
		opts.Relaxed = true
		result, err = h.discoveryService.SelectNext(ctx, userID, opts)
	}

	var timeout *domain.CandidateFetchTimeoutError
	if errors.As(err, &timeout) {
		opts.PoolSize = 25
		result, err = h.discoveryService.SelectNext(ctx, userID, opts)
	}

	if errors.Is(err, domain.ErrNoCandidates) {
		// empty-state, not an error: the client shows "try again"
		return c.JSON(http.StatusOK, map[string]interface{}{
			"message": "nothing new to discover right now, try again soon",
		})
	}
	if errors.As(err, &timeout) {
		return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: "discovery is busy, try again"})
	}
	if err != nil {
		logger.Error("Failed to select next discovery", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: "discovery failed, try again"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

// DebugDiscover returns the full scored pool for admins.
func (h *DiscoveryHandler) DebugDiscover(c echo.Context) error {
	uidVal := c.Get("user_id")
	userID, ok := uidVal.(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	var q DiscoverQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	scored, err := h.discoveryService.DebugSelect(c.Request().Context(), userID, discovery.SelectOptions{
		SessionSeen: splitSeen(q.Seen),
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoCandidates) {
			return c.JSON(http.StatusOK, fres.Response.StatusOK([]domain.ScoredContent{}))
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(scored))
}

// Feedback records a user interaction with a discovered item.
func (h *DiscoveryHandler) Feedback(c echo.Context) error {
	uidVal := c.Get("user_id")
	userID, ok := uidVal.(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	tta := time.Duration(req.TimeToActionMs) * time.Millisecond
	if err := h.discoveryService.RecordFeedback(c.Request().Context(), userID, req.ContentID, req.Action, tta); err != nil {
		logger.Error("Failed to record feedback", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated("feedback recorded"))
}

func splitSeen(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
