package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/recordbase/core/record"
	"github.com/artpar/recordbase/core/schema"
	"github.com/artpar/recordbase/pkg/jsonapi"
)

// ActorHeader names the acting user passed to the access gate.
const ActorHeader = "X-Actor"

// Reserved query parameters of record endpoints.
const (
	ParamWith = "with" // comma-separated relation paths
	ParamMode = "mode" // output mode
)

const maxBodyBytes = 1 << 20

// RecordHandler serves the registered models of a Manager.
type RecordHandler struct {
	manager *record.Manager
	logger  zerolog.Logger
	perPage int
}

// NewRecordHandler creates a record handler. perPage is the default lookup
// page size.
func NewRecordHandler(manager *record.Manager, logger zerolog.Logger, perPage int) *RecordHandler {
	if perPage <= 0 {
		perPage = 20
	}
	return &RecordHandler{manager: manager, logger: logger, perPage: perPage}
}

// Routes returns the record routes, relative to the mount point.
func (h *RecordHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{model}", h.lookup)
	r.Post("/{model}", h.create)
	r.Get("/{model}/{id}", h.get)
	r.Patch("/{model}/{id}", h.update)
	r.Delete("/{model}/{id}", h.delete)
	return r
}

func (h *RecordHandler) model(w http.ResponseWriter, r *http.Request) (*record.Model, bool) {
	name := chi.URLParam(r, "model")
	m, ok := h.manager.Model(name)
	if !ok {
		jsonapi.WriteError(w, jsonapi.ErrNotFound("Model "+name+" is not registered"))
	}
	return m, ok
}

// lookup handles GET /{model}?field=v&field=v2.
func (h *RecordHandler) lookup(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	records, err := m.Lookup(ctx, FilterFromQuery(m.Rules, q))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	actor := actorOf(r)
	visible := records[:0]
	for _, rec := range records {
		ok, err := rec.Accessible(ctx, actor, record.ModeRead)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if ok {
			visible = append(visible, rec)
		}
	}

	page, perPage := jsonapi.ParsePaginationParams(q, h.perPage)
	p := jsonapi.NewPagination(int64(len(visible)), page, perPage, r.URL.String())
	start, end := p.Window()

	with, mode := relationsOf(q), q.Get(ParamMode)
	resources := make([]jsonapi.Resource, 0, end-start)
	for _, rec := range visible[start:end] {
		out, err := rec.ExtendedOutput(ctx, with, mode)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resources = append(resources, jsonapi.ResourceFromOutput(m.Name, m.Identity, out))
	}

	jsonapi.WriteCollection(w, resources, p)
}

// get handles GET /{model}/{id}?with=a,b:c&mode=.
func (h *RecordHandler) get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}
	rec, ok := h.gate(w, r, m, record.ModeRead)
	if !ok {
		return
	}
	q := r.URL.Query()
	h.render(w, r, rec, relationsOf(q), q.Get(ParamMode), http.StatusOK)
}

// create handles POST /{model}.
func (h *RecordHandler) create(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}
	attrs, ok := readAttributes(w, r)
	if !ok {
		return
	}

	rec, err := m.Create(r.Context(), attrs)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := rec.ExtendedOutput(r.Context(), nil, record.ModeRead)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	location := "/api/" + url.PathEscape(m.Name) + "/" + fmt.Sprint(rec.ID())
	jsonapi.WriteCreated(w, jsonapi.ResourceFromOutput(m.Name, m.Identity, out), location)
}

// update handles PATCH /{model}/{id}.
func (h *RecordHandler) update(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}
	rec, ok := h.gate(w, r, m, record.ModeWrite)
	if !ok {
		return
	}
	attrs, ok := readAttributes(w, r)
	if !ok {
		return
	}

	if err := rec.Update(r.Context(), attrs); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, rec, nil, record.ModeRead, http.StatusOK)
}

// delete handles DELETE /{model}/{id}.
func (h *RecordHandler) delete(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}
	rec, ok := h.gate(w, r, m, record.ModeDelete)
	if !ok {
		return
	}
	if err := rec.Delete(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	jsonapi.WriteNoContent(w)
}

// gate loads the record named by the id parameter through the access gate.
func (h *RecordHandler) gate(w http.ResponseWriter, r *http.Request, m *record.Model, mode string) (*record.Record, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusBadRequest, "invalid_id", "Bad Request").
			Detailf("%q is not a valid identity", raw).
			Build())
		return nil, false
	}

	rec, err := m.FindAndCheckAccessOrDie(r.Context(), id, actorOf(r), mode)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return rec, true
}

func (h *RecordHandler) render(w http.ResponseWriter, r *http.Request, rec *record.Record, with []string, mode string, status int) {
	out, err := rec.ExtendedOutput(r.Context(), with, mode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	m := rec.Model()
	jsonapi.WriteResource(w, status, jsonapi.ResourceFromOutput(m.Name, m.Identity, out))
}

// fail renders err, logging the ones that map to a server error.
func (h *RecordHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	errs := jsonapi.FromError(err)
	if len(errs) > 0 && errs[0].StatusCode() >= http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
	}
	jsonapi.WriteError(w, errs...)
}

func readAttributes(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		jsonapi.WriteBadRequest(w, "Failed to read request body")
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		jsonapi.WriteBadRequest(w, "Request body must be a JSON object")
		return nil, false
	}
	attrs, err := jsonapi.Attributes(doc)
	if err != nil {
		jsonapi.WriteBadRequest(w, err.Error())
		return nil, false
	}
	return attrs, true
}

func actorOf(r *http.Request) any {
	if a := r.Header.Get(ActorHeader); a != "" {
		return a
	}
	return nil
}

func relationsOf(q url.Values) []string {
	var out []string
	for _, v := range q[ParamWith] {
		for _, path := range strings.Split(v, ",") {
			if path = strings.TrimSpace(path); path != "" {
				out = append(out, path)
			}
		}
	}
	return out
}

// FilterFromQuery turns query parameters into a lookup filter. Reserved and
// pagination parameters are skipped, repeated parameters become membership
// lists, and every value is parsed according to the field's rule.
func FilterFromQuery(rules schema.Rules, q url.Values) map[string]any {
	filter := make(map[string]any, len(q))
	for key, values := range q {
		if key == ParamWith || key == ParamMode || jsonapi.IsPaginationParam(key) || len(values) == 0 {
			continue
		}
		rule := rules[key]
		if len(values) == 1 {
			filter[key] = ParseValue(rule, values[0])
			continue
		}
		list := make([]any, len(values))
		for i, v := range values {
			list[i] = ParseValue(rule, v)
		}
		filter[key] = list
	}
	return filter
}

// ParseValue converts a query-string value to the first type the rule allows
// that can represent it. Unparseable values stay strings so validation can
// report them.
func ParseValue(rule schema.Rule, raw string) any {
	for _, t := range rule.Type {
		switch t {
		case schema.TypeNull:
			if raw == "null" {
				return nil
			}
		case schema.TypeInteger:
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return n
			}
		case schema.TypeNumber:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				return f
			}
		case schema.TypeBoolean:
			if b, err := strconv.ParseBool(raw); err == nil {
				return b
			}
		case schema.TypeString:
			return raw
		}
	}
	return raw
}
