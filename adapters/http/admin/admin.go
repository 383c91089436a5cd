// Package admin provides HTTP handlers for introspecting a running engine:
// the registered models, the queries a lookup builds, and a system doctor.
package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/recordbase/core/query"
	"github.com/artpar/recordbase/core/record"
	"github.com/artpar/recordbase/core/schema"
	"github.com/artpar/recordbase/ports"
)

// HealthChecker checks the store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler provides admin API endpoints.
type Handler struct {
	manager   *record.Manager
	store     HealthChecker
	hasher    ports.Hasher
	tokenHash []byte
	version   string
	logger    zerolog.Logger
}

// Deps contains dependencies for the admin handler.
type Deps struct {
	Manager *record.Manager
	Store   HealthChecker
	Version string
	Logger  zerolog.Logger

	// TokenHash is the hash of the bearer token admin requests must carry,
	// checked with Hasher. Empty disables authentication.
	TokenHash []byte
	Hasher    ports.Hasher
}

// NewHandler creates a new admin API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		manager:   deps.Manager,
		store:     deps.Store,
		hasher:    deps.Hasher,
		tokenHash: deps.TokenHash,
		version:   deps.Version,
		logger:    deps.Logger,
	}
}

// Router returns the admin API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(h.AuthMiddleware)

	r.Get("/models", h.ListModels)
	r.Get("/models/{model}", h.GetModel)
	r.Post("/models/{model}/query", h.ExplainQuery)
	r.Get("/doctor", h.Doctor)

	return r
}

// AuthMiddleware requires a bearer token matching the configured hash.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(h.tokenHash) == 0 || h.hasher == nil {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || !h.hasher.Compare(h.tokenHash, token) {
			h.logger.Warn().Str("path", r.URL.Path).Msg("admin authentication failed")
			writeError(w, http.StatusUnauthorized, "unauthorized", "Valid admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ModelSummary describes a registered model.
type ModelSummary struct {
	Name          string                        `json:"name"`
	Table         string                        `json:"table"`
	Identity      string                        `json:"identity"`
	Fields        []string                      `json:"fields"`
	SpecialFields []string                      `json:"special_fields,omitempty"`
	UniqueKeys    [][]string                    `json:"unique_keys,omitempty"`
	Relations     map[string]schema.RelationDef `json:"relations,omitempty"`
	Restricted    schema.Restrictions           `json:"restricted"`
}

func summarize(m *record.Model) ModelSummary {
	return ModelSummary{
		Name:          m.Name,
		Table:         m.Table,
		Identity:      m.Identity,
		Fields:        m.Rules.Names(),
		SpecialFields: m.SpecialFields,
		UniqueKeys:    m.UniqueKeys,
		Relations:     m.Relations,
		Restricted:    m.Source.Restricted,
	}
}

// ListModels lists every registered model, sorted by name.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models := h.manager.Models()
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

	out := make([]ModelSummary, len(models))
	for i, m := range models {
		out[i] = summarize(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": out, "total": len(out)})
}

// GetModel returns one model's summary plus its field rules.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model": summarize(m),
		"rules": m.Rules,
	})
}

// QueryResponse is the query a lookup filter builds.
type QueryResponse struct {
	Kind string `json:"kind"`
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// ExplainQuery builds, without running, the lookup query for the JSON filter
// in the request body. ?delete=1 builds the delete form.
func (h *Handler) ExplainQuery(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	var filter map[string]any
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err == nil && len(body) > 0 {
		err = json.Unmarshal(body, &filter)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Body must be a JSON object filter")
		return
	}

	var base []query.Query
	if r.URL.Query().Get("delete") != "" {
		base = append(base, query.Delete(m.Table))
	}
	q, err := m.LookupQuery(filter, base...)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_filter", err.Error())
		return
	}

	sql, args := q.Build()
	if args == nil {
		args = []any{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{Kind: q.Kind.String(), SQL: sql, Args: args})
}

func (h *Handler) model(w http.ResponseWriter, r *http.Request) (*record.Model, bool) {
	name := chi.URLParam(r, "model")
	m, ok := h.manager.Model(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Model "+name+" is not registered")
	}
	return m, ok
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
