package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/pidkeeper/internal/config"
	"github.com/emrgen/pidkeeper/internal/service"
	"github.com/emrgen/pidkeeper/internal/store"
	"github.com/emrgen/pidkeeper/internal/tester"
)

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tester.Setup()

	s := store.NewGormStore(tester.TestDB())
	svc := service.NewRegistrationService(s, nil, nil)
	return New(&config.Config{HTTPPort: "0"}, svc, s, nil).router()
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/registrations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestServer_Healthz(t *testing.T) {
	r := setup(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_RegisterAndGet(t *testing.T) {
	r := setup(t)

	body := `{"v2": "S0044-59672023000501", "doi": "10.1590/abc", "pub_year": "2023", "fpage": "101", "first_author_surname": "Silva"}`
	w := post(r, body)
	require.Equal(t, http.StatusCreated, w.Code)

	var res service.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.Created)
	v3 := res.Created.V3

	// an identical resubmission is a find, not a create
	w = post(r, body)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/pids/"+v3, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, v3, doc["v3"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/pids/unknown3aaaaaaaaaaaaaaa", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RegisterMissingV2(t *testing.T) {
	r := setup(t)

	w := post(r, `{"doi": "10.1590/abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_RegisterBadJSON(t *testing.T) {
	r := setup(t)

	w := post(r, `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
