package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"stumbleDiscovery/domain"
)

type (
	SimilarityHandler struct {
		similarityService SimilarityService
	}

	SimilarityService interface {
		FindSimilar(ctx context.Context, referenceID string, limit int, minSimilarity float64) ([]domain.SimilarContent, error)
	}
)

func NewSimilarityHandler(svc SimilarityService) *SimilarityHandler {
	return &SimilarityHandler{similarityService: svc}
}

// FindSimilar serves GET /similar/:contentId?limit=&min=.
func (h *SimilarityHandler) FindSimilar(c echo.Context) error {
	contentID := c.Param("contentId")
	if contentID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "contentId is required"})
	}

	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 50 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "limit must be between 1 and 50"})
		}
		limit = n
	}

	minSimilarity := 0.0
	if raw := c.QueryParam("min"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 || f > 1 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "min must be between 0 and 1"})
		}
		minSimilarity = f
	}

	similar, err := h.similarityService.FindSimilar(c.Request().Context(), contentID, limit, minSimilarity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: "content not found"})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}
	if similar == nil {
		similar = []domain.SimilarContent{}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(similar))
}
