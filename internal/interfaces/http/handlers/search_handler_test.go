package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

func newSearchHarness(t *testing.T) (*mockSearchService, http.Handler) {
	t.Helper()
	svc := &mockSearchService{}
	h := NewSearchHandler(svc, logging.NewNopLogger())
	return svc, mountCompliance(t, h.Routes)
}

func TestSearch_ParsesFilters(t *testing.T) {
	svc, handler := newSearchHarness(t)
	svc.On("Search", mock.Anything, common.ProjectID(testProjectID),
		mock.MatchedBy(func(req appcompliance.SearchRequest) bool {
			return req.Query == "change order" &&
				len(req.Types) == 2 && req.Types[0] == "clause" && req.Types[1] == "deadline" &&
				req.Status != nil && *req.Status == domain.DeadlineActive &&
				req.Severity != nil && *req.Severity == domain.SeverityCritical
		})).Return([]appcompliance.SearchResult{{
		ID:     "deadline-1",
		Type:   "deadline",
		Title:  "Change Order Notice",
		Status: "ACTIVE",
	}}, nil)

	w := doJSON(handler, http.MethodGet,
		"/api/projects/proj-1/compliance/search?q=change+order&types=clause,deadline&status=ACTIVE&severity=CRITICAL", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), `"title":"Change Order Notice"`)
	svc.AssertExpectations(t)
}

func TestSearch_MissingQuery(t *testing.T) {
	_, handler := newSearchHarness(t)

	w := doJSON(handler, http.MethodGet, "/api/projects/proj-1/compliance/search", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "q query parameter")
}

func TestSearch_UnknownSeverity(t *testing.T) {
	_, handler := newSearchHarness(t)

	w := doJSON(handler, http.MethodGet, "/api/projects/proj-1/compliance/search?q=rfi&severity=URGENT", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown severity")
}

func TestSearch_EmptyResultsStillEnveloped(t *testing.T) {
	svc, handler := newSearchHarness(t)
	svc.On("Search", mock.Anything, common.ProjectID(testProjectID), mock.Anything).
		Return(nil, nil)

	w := doJSON(handler, http.MethodGet, "/api/projects/proj-1/compliance/search?q=nothing", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
	assert.Contains(t, w.Body.String(), `"count":0`)
}
