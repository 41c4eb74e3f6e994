// Package handlers implements the compliance HTTP API.  Successful
// responses wrap their payload as {"data": ...}; errors surface as
// {"detail": ...} with a status derived from the error code.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efilo-ai/compliance-engine/internal/interfaces/http/middleware"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

// maxBodyBytes caps request bodies; contracts arrive by document id, not
// inline, so nothing here needs more than 1 MB.
const maxBodyBytes = 1 << 20

// dataEnvelope is the uniform success wrapper.
type dataEnvelope struct {
	Data interface{} `json:"data"`
}

// detailEnvelope is the uniform error wrapper.
type detailEnvelope struct {
	Detail string `json:"detail"`
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dataEnvelope{Data: v})
}

// writeDetail writes an error envelope with an explicit status.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(detailEnvelope{Detail: detail})
}

// writeError maps an application error onto the wire.  Server-side failures
// are masked; the original error goes to the log, not the client.
func writeError(w http.ResponseWriter, logger logging.Logger, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", logging.String("code", code.String()), logging.Err(err))
		writeDetail(w, status, errors.DefaultMessageForCode(code))
		return
	}

	logger.Debug("request rejected", logging.String("code", code.String()), logging.Err(err))
	writeDetail(w, status, err.Error())
}

// decodeJSON reads and unmarshals a request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.InvalidParam("failed to read request body")
	}
	if len(body) == 0 {
		return errors.InvalidParam("request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.InvalidParam("malformed JSON body: " + err.Error())
	}
	return nil
}

// pathID extracts a non-empty route parameter or fails with a validation
// error naming the parameter.
func pathID(r *http.Request, name string) (common.ID, error) {
	v := chi.URLParam(r, name)
	if v == "" {
		return "", errors.InvalidParam(name + " path parameter is required")
	}
	return common.ID(v), nil
}

// requestIdentity pulls the caller from the request context.
func requestIdentity(r *http.Request) common.UserID {
	return common.UserID(middleware.ContextGetUserID(r.Context()))
}

// requestProject pulls the project scope from the request context.
func requestProject(r *http.Request) common.ProjectID {
	return middleware.ContextGetProjectID(r.Context())
}

// parsePagination reads page/pageSize query params into limit and offset.
// Defaults: page 1, pageSize 20; pageSize is capped at 100.
func parsePagination(r *http.Request) (limit, offset int, page, pageSize int) {
	page = queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = queryInt(r, "pageSize", 20)
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return pageSize, (page - 1) * pageSize, page, pageSize
}

// queryInt parses an integer query parameter, returning def when absent or
// malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// queryCSV splits a comma-separated query parameter into trimmed values.
func queryCSV(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
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

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.InvalidParam(fmt.Sprintf("%s must be a boolean, got %q", name, raw))
	}
	return &b, nil
}

// pageOf assembles the generic paged response envelope.
func pageOf[T any](items []T, total int64, page, pageSize int) common.PageResponse[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	if items == nil {
		items = []T{}
	}
	return common.PageResponse[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// parseDate accepts a bare date (2025-07-04) or full RFC 3339 timestamp.
func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.InvalidParam(field + " is required")
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.InvalidParam(fmt.Sprintf("%s must be YYYY-MM-DD or RFC 3339, got %q", field, raw))
}
