package visit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directionhq/frontdesk-api/internal/middleware"
	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/repository/memory"
	"github.com/directionhq/frontdesk-api/internal/service/allocator"
	"github.com/directionhq/frontdesk-api/internal/service/audit"
	authService "github.com/directionhq/frontdesk-api/internal/service/auth"
	"github.com/directionhq/frontdesk-api/internal/service/feed"
	"github.com/directionhq/frontdesk-api/internal/service/visit"
	"github.com/directionhq/frontdesk-api/pkg/auth"
	"github.com/directionhq/frontdesk-api/pkg/logger"
	"github.com/directionhq/frontdesk-api/pkg/metrics"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()

	log := logger.NewLogger(nil)
	m := metrics.NewMetrics("frontdesk_test", prometheus.NewRegistry())

	patients := memory.NewPatientRepository()
	visits := memory.NewVisitRepository()
	users := memory.NewUserRepository()

	auditor := audit.NewService(memory.NewAuditRepository(), log, m)
	t.Cleanup(auditor.Close)

	alloc := allocator.NewService(memory.NewCounterRepository(), allocator.DefaultConfig(), log, m)
	hub := feed.NewHub(visits, 16, log, m)
	visitSvc := visit.NewService(patients, visits, alloc, hub, auditor, log)

	jwtSvc := auth.NewJWTService("test-secret", time.Hour)
	authSvc := authService.NewService(users, jwtSvc, auditor)
	authMW := middleware.NewAuthMiddleware(authSvc)

	engine := gin.New()
	api := engine.Group("/api/v1")
	api.Use(authMW.Authenticate())
	NewHandler(visitSvc, hub).RegisterRoutes(api)

	// A logged-in receptionist session for the requests.
	_, err := authSvc.Register(context.Background(), &model.RegisterUserRequest{
		Email:    "desk@clinic.example",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	tokens, err := authSvc.Login(context.Background(), &model.LoginRequest{
		Email:    "desk@clinic.example",
		Password: "correct-horse",
		Role:     "receptionist",
	})
	require.NoError(t, err)

	return engine, tokens.AccessToken
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	reqBody := &bytes.Buffer{}
	if body != nil {
		require.NoError(t, json.NewEncoder(reqBody).Encode(body))
	}

	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeVisit(t *testing.T, w *httptest.ResponseRecorder) *model.Visit {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, "success", env.Status)
	var v model.Visit
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return &v
}

func TestRegisterVisitEndpoint(t *testing.T) {
	engine, token := newTestServer(t)

	w := doRequest(t, engine, http.MethodPost, "/api/v1/visits", token, gin.H{
		"name":  "Asha Rao",
		"phone": "9900112233",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	v := decodeVisit(t, w)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}-001$`, v.Token)
	assert.Equal(t, model.VisitStatusWaiting, v.Status)
}

func TestRegisterVisitEndpoint_SeparatorsInPhone(t *testing.T) {
	engine, token := newTestServer(t)

	w := doRequest(t, engine, http.MethodPost, "/api/v1/visits", token, gin.H{
		"name":  "Asha Rao",
		"phone": "555-0100",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decodeVisit(t, w)
	assert.Regexp(t, `-001$`, first.Token)

	// Same phone with a different name on the same day reuses the patient
	// and takes the next token.
	w = doRequest(t, engine, http.MethodPost, "/api/v1/visits", token, gin.H{
		"name":  "A. Rao",
		"phone": "555-0100",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	second := decodeVisit(t, w)
	assert.Equal(t, first.PatientID, second.PatientID)
	assert.Regexp(t, `-002$`, second.Token)
}

func TestRegisterVisitEndpoint_MissingPhone(t *testing.T) {
	engine, token := newTestServer(t)

	w := doRequest(t, engine, http.MethodPost, "/api/v1/visits", token, gin.H{
		"name": "Asha Rao",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, engine, http.MethodPost, "/api/v1/visits", token, gin.H{
		"name":  "Asha Rao",
		"phone": "not-a-phone",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterVisitEndpoint_Unauthenticated(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doRequest(t, engine, http.MethodPost, "/api/v1/visits", "", gin.H{
		"name":  "Asha Rao",
		"phone": "9900112233",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateVisitEndpoint_StatusRegression(t *testing.T) {
	engine, token := newTestServer(t)

	w := doRequest(t, engine, http.MethodPost, "/api/v1/visits", token, gin.H{
		"name":  "Asha Rao",
		"phone": "9900112233",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeVisit(t, w)

	w = doRequest(t, engine, http.MethodPatch, "/api/v1/visits/"+created.ID.String(), token, gin.H{
		"status": "done",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, engine, http.MethodPatch, "/api/v1/visits/"+created.ID.String(), token, gin.H{
		"status": "waiting",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateVisitEndpoint_UnknownVisit(t *testing.T) {
	engine, token := newTestServer(t)

	w := doRequest(t, engine, http.MethodPatch, "/api/v1/visits/8b9130d3-6d52-4b3b-9a52-3a1f7fca0acd", token, gin.H{
		"status": "seen",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, engine, http.MethodPatch, "/api/v1/visits/not-a-uuid", token, gin.H{
		"status": "seen",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueEndpoint(t *testing.T) {
	engine, token := newTestServer(t)

	for i, phone := range []string{"9900112233", "9900445566"} {
		w := doRequest(t, engine, http.MethodPost, "/api/v1/visits", token, gin.H{
			"name":  fmt.Sprintf("Patient %d", i+1),
			"phone": phone,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(t, engine, http.MethodGet, "/api/v1/queue", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var q model.Queue
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Len(t, q.Waiting, 2)
	assert.Empty(t, q.Completed)

	// Search narrows the view.
	w = doRequest(t, engine, http.MethodGet, "/api/v1/queue?q=4455", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Len(t, q.Waiting, 1)

	w = doRequest(t, engine, http.MethodGet, "/api/v1/queue?date=31-12-2024", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPatientVisitsEndpoint(t *testing.T) {
	engine, token := newTestServer(t)

	w := doRequest(t, engine, http.MethodPost, "/api/v1/visits", token, gin.H{
		"name":  "Asha Rao",
		"phone": "9900112233",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decodeVisit(t, w)

	w = doRequest(t, engine, http.MethodPatch, "/api/v1/visits/"+first.ID.String(), token, gin.H{
		"prescription": "paracetamol 500mg bd x3d",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, engine, http.MethodGet, "/api/v1/patients/9900112233/visits?with_prescription=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var visits []*model.Visit
	require.NoError(t, json.Unmarshal(env.Data, &visits))
	require.Len(t, visits, 1)
	assert.Equal(t, first.ID, visits[0].ID)

	// An unknown phone is an empty history, not an error.
	w = doRequest(t, engine, http.MethodGet, "/api/v1/patients/0000000000/visits", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, &visits))
	assert.Empty(t, visits)
}
