package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-openapi/spec"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practicelab/logger"
	"practicelab/reqlog"
	"practicelab/state"
	"practicelab/table"
)

type testAPI struct {
	router *mux.Router
	rules  *state.RuleState
	log    *reqlog.Log
	store  *state.Store
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	rs, err := state.NewRuleState(nil, filepath.Join(t.TempDir(), "rules.json"))
	require.NoError(t, err)

	ta := &testAPI{
		router: mux.NewRouter(),
		rules:  rs,
		log:    reqlog.New(50),
		store:  state.NewStore(state.DefaultSeed()),
	}
	docs := &spec.Swagger{SwaggerProps: spec.SwaggerProps{Swagger: "2.0", Info: &spec.Info{InfoProps: spec.InfoProps{Title: "test"}}}}
	RegisterHandlers(ta.router, NewApiHandler(ta.rules, ta.log, ta.store, docs, logger.Discard()))
	return ta
}

func (ta *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ta.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	ta := setupTestAPI(t)
	rec := ta.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAddRule_StartsEnabled(t *testing.T) {
	ta := setupTestAPI(t)

	rec := ta.do(t, http.MethodPost, "/api/rules", map[string]any{
		"target":  "/books",
		"failure": map[string]any{"type": "error", "errorCode": 503},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	added := decode[state.Rule](t, rec)
	assert.NotEmpty(t, added.ID)
	assert.True(t, added.Enabled)
	assert.Equal(t, 503, added.Failure.ErrorCode)

	rec = ta.do(t, http.MethodGet, "/api/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rules := decode[[]state.Rule](t, rec)
	require.Len(t, rules, 1)
	assert.Equal(t, added.ID, rules[0].ID)
}

func TestAddRule_Invalid(t *testing.T) {
	ta := setupTestAPI(t)

	rec := ta.do(t, http.MethodPost, "/api/rules", map[string]any{
		"target":  "/books",
		"failure": map[string]any{"type": "error", "errorCode": 200},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "VALIDATION", body.Code)

	rec = ta.do(t, http.MethodPost, "/api/rules", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MALFORMED_REQUEST", decode[errorBody](t, rec).Code)
}

func TestUpdateRule(t *testing.T) {
	ta := setupTestAPI(t)
	added, err := ta.rules.AddRule(state.Rule{Target: "/books", Enabled: true, Failure: state.Failure{Type: "latency", LatencyMs: 100}})
	require.NoError(t, err)

	rec := ta.do(t, http.MethodPut, "/api/rules/"+added.ID, map[string]any{
		"target":  "/login",
		"enabled": true,
		"failure": map[string]any{"type": "latency", "latencyMs": 2000},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decode[state.Rule](t, rec)
	assert.Equal(t, added.ID, updated.ID)
	assert.Equal(t, "/login", updated.Target)
	assert.Equal(t, 2000, updated.Failure.LatencyMs)
	assert.True(t, updated.CreatedAt.Equal(added.CreatedAt))
}

func TestUpdateRule_NotFound(t *testing.T) {
	ta := setupTestAPI(t)
	rec := ta.do(t, http.MethodPut, "/api/rules/missing", map[string]any{
		"target":  "/login",
		"failure": map[string]any{"type": "latency", "latencyMs": 10},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnableDisableRule(t *testing.T) {
	ta := setupTestAPI(t)
	added, err := ta.rules.AddRule(state.Rule{Target: "/books", Enabled: true, Failure: state.Failure{Type: "flaky", Probability: 0.5}})
	require.NoError(t, err)

	rec := ta.do(t, http.MethodPost, "/api/rules/"+added.ID+"/disable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[state.Rule](t, rec).Enabled)
	_, found := ta.rules.FindRuleForTarget("/books")
	assert.False(t, found)

	rec = ta.do(t, http.MethodPost, "/api/rules/"+added.ID+"/enable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[state.Rule](t, rec).Enabled)

	rec = ta.do(t, http.MethodPost, "/api/rules/nope/enable", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRule(t *testing.T) {
	ta := setupTestAPI(t)
	added, err := ta.rules.AddRule(state.Rule{Target: "/books", Failure: state.Failure{Type: "error", ErrorCode: 500}})
	require.NoError(t, err)

	rec := ta.do(t, http.MethodDelete, "/api/rules/"+added.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ta.rules.GetRules())

	rec = ta.do(t, http.MethodDelete, "/api/rules/"+added.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLogs_SearchAndPaging(t *testing.T) {
	ta := setupTestAPI(t)
	for _, name := range []string{"getBooks", "login", "getBookById", "products"} {
		ta.log.Record(reqlog.Entry{Name: name, Method: http.MethodGet, URL: "/" + name, Status: 200})
	}

	rec := ta.do(t, http.MethodGet, "/api/logs?search=book&perPage=1&sort=name", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[table.Page[reqlog.Entry]](t, rec)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "getBookById", page.Rows[0].Name)

	rec = ta.do(t, http.MethodGet, "/api/logs?search=book&perPage=1&sort=name&page=2", nil)
	page = decode[table.Page[reqlog.Entry]](t, rec)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "getBooks", page.Rows[0].Name)
}

func TestGetLogs_HugePage(t *testing.T) {
	ta := setupTestAPI(t)
	ta.log.Record(reqlog.Entry{Name: "getBooks", Method: http.MethodGet, URL: "/books", Status: 200})

	rec := ta.do(t, http.MethodGet, "/api/logs?page=4611686018427387904&perPage=4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[table.Page[reqlog.Entry]](t, rec)
	assert.Empty(t, page.Rows)
	assert.Equal(t, 1, page.Total)
}

func TestClearLogs(t *testing.T) {
	ta := setupTestAPI(t)
	ta.log.Record(reqlog.Entry{Name: "login"})

	rec := ta.do(t, http.MethodDelete, "/api/logs", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, ta.log.Len())
}

func TestResetStore(t *testing.T) {
	ta := setupTestAPI(t)
	_, err := ta.store.AddBook(state.BookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	require.Len(t, ta.store.ListBooks(), 5)

	rec := ta.do(t, http.MethodPost, "/api/store/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, ta.store.ListBooks(), 4)
}

func TestOpenAPI(t *testing.T) {
	ta := setupTestAPI(t)
	rec := ta.do(t, http.MethodGet, "/api/openapi.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"swagger":"2.0"`)
}
