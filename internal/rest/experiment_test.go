package rest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"stumbleDiscovery/domain"
)

func experimentErrorStatus(t *testing.T, err error) int {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	h := &ExperimentHandler{}
	if herr := h.experimentError(c, err); herr != nil {
		t.Fatalf("experimentError: %v", herr)
	}
	return rec.Code
}

func TestExperimentErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrExperimentNotFound, http.StatusNotFound},
		{"not active", fmt.Errorf("experiment x: %w", domain.ErrExperimentNotActive), http.StatusConflict},
		{"bad transition", &domain.InvalidTransitionError{From: "completed", To: "active"}, http.StatusConflict},
		{"bad config", &domain.InvalidExperimentConfigError{Reason: "allocations must sum to 100"}, http.StatusBadRequest},
		{"unknown", fmt.Errorf("store down"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := experimentErrorStatus(t, tc.err); got != tc.want {
				t.Fatalf("status %d, want %d", got, tc.want)
			}
		})
	}
}
