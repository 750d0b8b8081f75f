package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	"stumbleDiscovery/business/experiment"
	"stumbleDiscovery/domain"
)

type (
	ExperimentHandler struct {
		validate          *validator.Validate
		experimentService ExperimentService
	}

	ExperimentService interface {
		Create(ctx context.Context, name string, variants []domain.Variant) (domain.Experiment, error)
		Get(ctx context.Context, id string) (domain.Experiment, error)
		List(ctx context.Context) ([]domain.Experiment, error)
		Activate(ctx context.Context, id string) (domain.Experiment, error)
		Pause(ctx context.Context, id string) (domain.Experiment, error)
		Complete(ctx context.Context, id, winner string) (domain.Experiment, error)
		GetVariant(ctx context.Context, userID uint, experimentID string) (domain.Assignment, error)
		ComputeMetrics(ctx context.Context, experimentID string) (experiment.Metrics, error)
	}

	VariantRequest struct {
		Name       string            `json:"name" validate:"required"`
		Allocation int               `json:"allocation" validate:"gte=0,lte=100"`
		Weights    datatypes.JSONMap `json:"weights"`
	}

	CreateExperimentRequest struct {
		Name     string           `json:"name" validate:"required"`
		Variants []VariantRequest `json:"variants" validate:"required,min=1,dive"`
	}

	CompleteExperimentRequest struct {
		WinningVariant string `json:"winning_variant"`
	}
)

func NewExperimentHandler(svc ExperimentService) *ExperimentHandler {
	return &ExperimentHandler{
		validate:          validator.New(),
		experimentService: svc,
	}
}

func (h *ExperimentHandler) Create(c echo.Context) error {
	var req CreateExperimentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	variants := make([]domain.Variant, 0, len(req.Variants))
	for _, v := range req.Variants {
		variants = append(variants, domain.Variant{
			Name:       v.Name,
			Allocation: v.Allocation,
			Weights:    v.Weights,
		})
	}

	exp, err := h.experimentService.Create(c.Request().Context(), req.Name, variants)
	if err != nil {
		var invalid *domain.InvalidExperimentConfigError
		if errors.As(err, &invalid) {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: invalid.Reason})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(exp))
}

func (h *ExperimentHandler) List(c echo.Context) error {
	exps, err := h.experimentService.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}
	if exps == nil {
		exps = []domain.Experiment{}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(exps))
}

func (h *ExperimentHandler) Get(c echo.Context) error {
	exp, err := h.experimentService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.experimentError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(exp))
}

func (h *ExperimentHandler) Activate(c echo.Context) error {
	exp, err := h.experimentService.Activate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.experimentError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(exp))
}

func (h *ExperimentHandler) Pause(c echo.Context) error {
	exp, err := h.experimentService.Pause(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.experimentError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(exp))
}

func (h *ExperimentHandler) Complete(c echo.Context) error {
	var req CompleteExperimentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	exp, err := h.experimentService.Complete(c.Request().Context(), c.Param("id"), req.WinningVariant)
	if err != nil {
		return h.experimentError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(exp))
}

// MyVariant returns (and if needed creates) the caller's sticky assignment.
func (h *ExperimentHandler) MyVariant(c echo.Context) error {
	uidVal := c.Get("user_id")
	userID, ok := uidVal.(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	assignment, err := h.experimentService.GetVariant(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return h.experimentError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(assignment))
}

func (h *ExperimentHandler) Metrics(c echo.Context) error {
	m, err := h.experimentService.ComputeMetrics(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.experimentError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(m))
}

func (h *ExperimentHandler) experimentError(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrExperimentNotFound) {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "experiment not found"})
	}
	if errors.Is(err, domain.ErrExperimentNotActive) {
		return c.JSON(http.StatusConflict, ResponseError{Message: "experiment is not active"})
	}
	var transition *domain.InvalidTransitionError
	if errors.As(err, &transition) {
		return c.JSON(http.StatusConflict, ResponseError{Message: transition.Error()})
	}
	var invalid *domain.InvalidExperimentConfigError
	if errors.As(err, &invalid) {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: invalid.Reason})
	}
	return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
}
