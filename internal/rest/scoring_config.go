package rest

import (
	"context"
	"net/http"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	"stumbleDiscovery/domain"
)

type (
	ScoringConfigHandler struct {
		validate   *validator.Validate
		configRepo ScoringConfigRepository
	}

	ScoringConfigRepository interface {
		GetActive(ctx context.Context) (domain.ScoringConfig, bool, error)
		Upsert(ctx context.Context, cfg domain.ScoringConfig) error
	}

	UpsertScoringConfigRequest struct {
		Version   int               `json:"version" validate:"gt=0"`
		Overrides datatypes.JSONMap `json:"overrides" validate:"required"`
	}
)

func NewScoringConfigHandler(configRepo ScoringConfigRepository) *ScoringConfigHandler {
	return &ScoringConfigHandler{
		validate:   validator.New(),
		configRepo: configRepo,
	}
}

func (h *ScoringConfigHandler) GetActive(c echo.Context) error {
	cfg, ok, err := h.configRepo.GetActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "no active scoring config, defaults are in effect"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(cfg))
}

// Upsert activates a new scoring config version; prior actives are retired.
func (h *ScoringConfigHandler) Upsert(c echo.Context) error {
	var req UpsertScoringConfigRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	cfg := domain.ScoringConfig{
		Version:   req.Version,
		Overrides: req.Overrides,
		Active:    true,
	}
	if err := h.configRepo.Upsert(c.Request().Context(), cfg); err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(cfg))
}
