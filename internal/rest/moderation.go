package rest

import (
	"context"
	"net/http"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"stumbleDiscovery/domain"
	"stumbleDiscovery/pkg/logger"
)

type (
	ModerationHandler struct {
		validate          *validator.Validate
		decisionRepo      ModerationDecisionRepository
		reputationService ReputationService
	}

	ModerationDecisionRepository interface {
		SaveDecision(ctx context.Context, decision domain.ModerationDecision) error
	}

	ReputationService interface {
		Recompute(ctx context.Context, domainKey string) (domain.DomainReputation, error)
	}

	ModerationDecisionRequest struct {
		Domain    string `json:"domain" validate:"required"`
		ContentID string `json:"content_id"`
		Decision  string `json:"decision" validate:"required,oneof=approved rejected flagged"`
	}
)

func NewModerationHandler(decisionRepo ModerationDecisionRepository, reputationService ReputationService) *ModerationHandler {
	return &ModerationHandler{
		validate:          validator.New(),
		decisionRepo:      decisionRepo,
		reputationService: reputationService,
	}
}

// RecordDecision ingests a moderation outcome and refreshes the domain's
// reputation in the same request. A recompute failure does not fail the
// ingest; the hourly batch will catch the domain up.
func (h *ModerationHandler) RecordDecision(c echo.Context) error {
	var req ModerationDecisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx := c.Request().Context()

	decision := domain.ModerationDecision{
		Domain:    req.Domain,
		ContentID: req.ContentID,
		Decision:  req.Decision,
	}
	if err := h.decisionRepo.SaveDecision(ctx, decision); err != nil {
		logger.Error("Failed to save moderation decision", "domain", req.Domain, err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	rep, err := h.reputationService.Recompute(ctx, req.Domain)
	if err != nil {
		logger.Warn("Failed to recompute reputation after moderation decision", "domain", req.Domain, err)
		return c.JSON(http.StatusCreated, fres.Response.StatusCreated("decision recorded"))
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(rep))
}
