package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/artpar/recordbase/adapters/idgen"
	"github.com/artpar/recordbase/adapters/metrics"
	"github.com/artpar/recordbase/core/record"
	"github.com/artpar/recordbase/core/schema"
	"github.com/artpar/recordbase/core/storage"
	"github.com/artpar/recordbase/pkg/jsonapi"
)

func postDef() schema.Definition {
	return schema.Definition{
		Name: "Post",
		Rules: schema.Rules{
			"title":     {Type: schema.Types{schema.TypeString}, Required: true},
			"author":    {Type: schema.Types{schema.TypeString}},
			"published": {Type: schema.Types{schema.TypeBoolean}},
			"parent_id": {Type: schema.Types{schema.TypeInteger, schema.TypeNull}},
			"token":     {Type: schema.Types{schema.TypeString}},
		},
		Restricted: schema.Restrictions{
			Lookup: []string{"token"},
			Update: []string{"author"},
		},
		UniqueKeys: [][]string{{"title"}},
		Relations: map[string]schema.RelationDef{
			"parent":  {Kind: schema.RelationParent, Model: "Post", ForeignKey: "parent_id"},
			"replies": {Kind: schema.RelationList, Model: "Post", ForeignKey: "parent_id"},
		},
	}
}

func postHooks() record.Hooks {
	return record.Hooks{
		Output: func(r *record.Record) map[string]any {
			return map[string]any{
				"id":        r.ID(),
				"title":     r.Get("title"),
				"author":    r.Get("author"),
				"published": r.Get("published"),
			}
		},
		Accessible: func(ctx context.Context, r *record.Record, actor any, mode string) (bool, error) {
			if r.Get("published") != true && actor != r.Get("author") {
				return false, nil
			}
			return mode == record.ModeRead || actor == r.Get("author"), nil
		},
	}
}

type testServer struct {
	router  http.Handler
	manager *record.Manager
	metrics *metrics.Collector
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := storage.NewMemoryStore()
	m := record.NewManager(record.Deps{Store: store, Logger: zerolog.Nop()})
	_, err := m.Register(context.Background(), postDef(), postHooks())
	require.NoError(t, err)
	require.NoError(t, m.Check())

	collector := metrics.New()
	router := NewRouter(
		NewRecordHandler(m, zerolog.Nop(), 2),
		NewHealthHandler(store),
		zerolog.Nop(),
		RouterConfig{
			Version:        "test",
			Metrics:        collector,
			MetricsHandler: collector.Handler(),
			IDs:            idgen.NewSequential("req-"),
		},
	)
	return &testServer{router: router, manager: m, metrics: collector}
}

func (s *testServer) do(t *testing.T, method, path, actor string, body any) (*httptest.ResponseRecorder, jsonapi.Document) {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var doc jsonapi.Document
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), jsonapi.ContentType) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc), rec.Body.String())
	}
	return rec, doc
}

func (s *testServer) seed(t *testing.T, data map[string]any) *record.Record {
	t.Helper()
	m, _ := s.manager.Model("Post")
	r, err := m.Create(context.Background(), data)
	require.NoError(t, err)
	return r
}

func attributes(t *testing.T, data any) map[string]any {
	t.Helper()
	obj, ok := data.(map[string]any)
	require.True(t, ok, "data = %#v", data)
	return obj["attributes"].(map[string]any)
}

func TestCreate(t *testing.T) {
	s := newTestServer(t)

	rec, doc := s.do(t, "POST", "/api/Post", "ann", map[string]any{
		"data": map[string]any{"type": "Post", "attributes": map[string]any{"title": "Hello", "author": "ann", "published": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "/api/Post/1", rec.Header().Get("Location"))

	obj := doc.Data.(map[string]any)
	require.Equal(t, "Post", obj["type"])
	require.Equal(t, "1", obj["id"])
	attrs := attributes(t, doc.Data)
	require.Equal(t, "Hello", attrs["title"])
	require.Equal(t, true, attrs["published"])
}

func TestCreate_Errors(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, map[string]any{"title": "Taken"})

	tests := []struct {
		name        string
		body        any
		wantStatus  int
		wantPointer string
	}{
		{"missing required", map[string]any{"author": "x"}, http.StatusUnprocessableEntity, "/data/attributes/title"},
		{"duplicate", map[string]any{"title": "Taken"}, http.StatusUnprocessableEntity, "/data/attributes/title"},
		{"unknown field", map[string]any{"title": "x", "color": "red"}, http.StatusBadRequest, "/data/attributes/color"},
		{"missing parent", map[string]any{"title": "y", "parent_id": 99}, http.StatusUnprocessableEntity, "/data/attributes/parent_id"},
		{"not an object", []any{1}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, doc := s.do(t, "POST", "/api/Post", "", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			require.NotEmpty(t, doc.Errors)
			if tt.wantPointer != "" {
				require.Equal(t, tt.wantPointer, doc.Errors[0].Source.Pointer)
			}
		})
	}
}

func TestGet(t *testing.T) {
	s := newTestServer(t)
	root := s.seed(t, map[string]any{"title": "Root", "author": "ann", "published": true})
	s.seed(t, map[string]any{"title": "Reply", "author": "bob", "published": true, "parent_id": root.ID()})
	s.seed(t, map[string]any{"title": "Draft", "author": "ann", "published": false})

	t.Run("with relations", func(t *testing.T) {
		rec, doc := s.do(t, "GET", "/api/Post/1?with=replies,replies:parent", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		attrs := attributes(t, doc.Data)
		replies := attrs[":replies"].([]any)
		require.Len(t, replies, 1)
		reply := replies[0].(map[string]any)
		require.Equal(t, "Reply", reply["title"])
		require.Equal(t, "Root", reply[":parent"].(map[string]any)["title"])
	})

	t.Run("unknown relation", func(t *testing.T) {
		rec, doc := s.do(t, "GET", "/api/Post/1?with=likes", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "unknown_relation", doc.Errors[0].Code)
		require.Equal(t, "with", doc.Errors[0].Source.Parameter)
	})

	t.Run("not found", func(t *testing.T) {
		rec, doc := s.do(t, "GET", "/api/Post/42", "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "Post #42 not found", doc.Errors[0].Detail)
	})

	t.Run("not accessible", func(t *testing.T) {
		rec, doc := s.do(t, "GET", "/api/Post/3", "bob", nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "Post #3 is not accessible for reading by the user", doc.Errors[0].Detail)

		rec, _ = s.do(t, "GET", "/api/Post/3", "ann", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec, doc := s.do(t, "GET", "/api/Post/abc", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_id", doc.Errors[0].Code)
	})

	t.Run("unknown model", func(t *testing.T) {
		rec, _ := s.do(t, "GET", "/api/Nope/1", "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLookup(t *testing.T) {
	s := newTestServer(t)
	for _, title := range []string{"a", "b", "c", "d"} {
		s.seed(t, map[string]any{"title": title, "author": "ann", "published": true})
	}
	s.seed(t, map[string]any{"title": "hidden", "author": "ann", "published": false})

	t.Run("membership and pagination", func(t *testing.T) {
		rec, doc := s.do(t, "GET", "/api/Post?title=a&title=b&title=c&page[number]=2", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		data := doc.Data.([]any)
		require.Len(t, data, 1)
		require.Equal(t, "c", attributes(t, data[0])["title"])
		require.EqualValues(t, 3, doc.Meta["total"])
		require.NotEmpty(t, doc.Links.Prev)
	})

	t.Run("huge page bounds", func(t *testing.T) {
		for _, q := range []string{
			"page=2&per_page=9223372036854775807",
			"page=9223372036854775807&per_page=9223372036854775807",
			"page[number]=9223372036854775807",
		} {
			rec, doc := s.do(t, "GET", "/api/Post?"+q, "", nil)
			require.Equal(t, http.StatusOK, rec.Code, "%s: %s", q, rec.Body.String())
			require.Empty(t, doc.Data, q)
			require.EqualValues(t, 4, doc.Meta["total"], q)
		}

		rec, doc := s.do(t, "GET", "/api/Post?per_page=9223372036854775807", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, doc.Data.([]any), 4)
	})

	t.Run("typed values", func(t *testing.T) {
		rec, doc := s.do(t, "GET", "/api/Post?published=false", "ann", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := doc.Data.([]any)
		require.Len(t, data, 1)
		require.Equal(t, "hidden", attributes(t, data[0])["title"])
	})

	t.Run("inaccessible records are skipped", func(t *testing.T) {
		_, doc := s.do(t, "GET", "/api/Post?published=false", "bob", nil)
		require.Empty(t, doc.Data)
	})

	t.Run("restricted field", func(t *testing.T) {
		rec, doc := s.do(t, "GET", "/api/Post?token=x", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "restricted_field", doc.Errors[0].Code)
		require.Equal(t, "token", doc.Errors[0].Source.Parameter)
	})

	t.Run("invalid value", func(t *testing.T) {
		rec, doc := s.do(t, "GET", "/api/Post?id=abc", "", nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Equal(t, "/data/attributes/id", doc.Errors[0].Source.Pointer)
	})
}

func TestUpdate(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, map[string]any{"title": "Old", "author": "ann", "published": true})

	rec, _ := s.do(t, "PATCH", "/api/Post/1", "bob", map[string]any{"title": "Hijacked"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, doc := s.do(t, "PATCH", "/api/Post/1", "ann", map[string]any{"data": map[string]any{"attributes": map[string]any{"title": "New"}}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "New", attributes(t, doc.Data)["title"])

	rec, doc = s.do(t, "PATCH", "/api/Post/1", "ann", map[string]any{"author": "bob"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "restricted_field", doc.Errors[0].Code)
}

func TestDelete(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, map[string]any{"title": "Bye", "author": "ann", "published": true})

	rec, doc := s.do(t, "DELETE", "/api/Post/1", "bob", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "Post #1 is not accessible for deleting by the user", doc.Errors[0].Detail)

	rec, _ = s.do(t, "DELETE", "/api/Post/1", "ann", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = s.do(t, "GET", "/api/Post/1", "ann", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilterFromQuery(t *testing.T) {
	rules := postDef().WithDefaults().Rules
	q, err := url.ParseQuery("id=1&id=2&title=x&published=true&parent_id=null&with=replies&mode=short&page=2&extra=7")
	require.NoError(t, err)

	require.Equal(t, map[string]any{
		"id":        []any{int64(1), int64(2)},
		"title":     "x",
		"published": true,
		"parent_id": nil,
		"extra":     "7",
	}, FilterFromQuery(rules, q))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		types schema.Types
		raw   string
		want  any
	}{
		{schema.Types{schema.TypeInteger}, "12", int64(12)},
		{schema.Types{schema.TypeInteger}, "1.5", "1.5"},
		{schema.Types{schema.TypeNumber}, "1.5", 1.5},
		{schema.Types{schema.TypeBoolean}, "0", false},
		{schema.Types{schema.TypeInteger, schema.TypeNull}, "null", nil},
		{schema.Types{schema.TypeString, schema.TypeNull}, "null", "null"},
		{nil, "raw", "raw"},
	}

	for _, tt := range tests {
		got := ParseValue(schema.Rule{Type: tt.types}, tt.raw)
		require.Equal(t, tt.want, got, "ParseValue(%v, %q)", tt.types, tt.raw)
	}
}

func TestRouter_Infrastructure(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/health/ready", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest("GET", "/version", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	require.Contains(t, rec.Body.String(), `"version":"test"`)

	s.do(t, "GET", "/api/Post/9", "", nil)

	req = httptest.NewRequest("GET", "/metrics", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Contains(t, rec.Body.String(), `recordbase_requests_total{method="GET",route="/api/{model}/{id}",status="4xx"} 1`)
}

func TestStatusLabel(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 302: "3xx", 404: "4xx", 503: "5xx", 100: "other"}
	for status, want := range tests {
		require.Equal(t, want, statusLabel(status))
	}
}
