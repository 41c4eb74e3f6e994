package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// ProjectScope lifts the {projectID} route parameter into the request
// context so services below the handler layer never touch the router.
// Every compliance entity is scoped to exactly one project.
func ProjectScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if projectID == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"projectID path parameter is required"}`))
			return
		}
		ctx := context.WithValue(r.Context(), common.ContextKeyProjectID, projectID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ContextGetProjectID retrieves the project scope from the context.
func ContextGetProjectID(ctx context.Context) common.ProjectID {
	projectID, _ := ctx.Value(common.ContextKeyProjectID).(string)
	return common.ProjectID(projectID)
}
