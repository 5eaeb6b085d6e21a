package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnavshah/care-scheduler-api/pkg/assignment"
	"github.com/arnavshah/care-scheduler-api/pkg/auth"
	"github.com/arnavshah/care-scheduler-api/pkg/database"
	"github.com/arnavshah/care-scheduler-api/pkg/models"
	"github.com/arnavshah/care-scheduler-api/pkg/scheduler"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testServer struct {
	router   *gin.Engine
	store    *fakeStore
	keys     *fakeKeys
	assigner *fakeAssigner
	auth     *auth.Service
}

func newTestServer(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()
	ts := &testServer{
		store:    &fakeStore{},
		keys:     newFakeKeys(),
		assigner: &fakeAssigner{result: &assignment.Result{Shifts: []models.Shift{}}},
		auth:     auth.NewService("jwt-test", "master-test").WithBcryptCost(bcrypt.MinCost),
	}
	h := &Handler{
		Store:    ts.store,
		Keys:     ts.keys,
		Auth:     ts.auth,
		Assigner: ts.assigner,
		Planner:  scheduler.NewPlanner(),
		Logger:   zap.NewNop(),
	}
	r, err := NewRouter(h, opts)
	require.NoError(t, err)
	ts.router = r
	return ts
}

func (ts *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

const staffBody = `{
	"first_name": "Ada", "last_name": "Lee", "email": "ada@example.com", "role": "rn",
	"availability": [{"day": "wed", "start": "07:00", "end": "19:00"}]
}`

func TestBannerAndHealth(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	w := ts.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Care Scheduler API")

	w = ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	decode(t, w, &health)
	assert.Equal(t, "ok", health["database"])

	ts.store.pingErr = errors.New("connection refused")
	w = ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateStaff(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	w := ts.do(http.MethodPost, "/staff", staffBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got models.Staff
	decode(t, w, &got)
	assert.Equal(t, "staff-1", got.ID)
	assert.Equal(t, 40, got.MaxHoursPerWeek)
	assert.True(t, got.IsActive)
	require.Len(t, ts.store.staff, 1)

	w = ts.do(http.MethodGet, "/staff", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var list []models.Staff
	decode(t, w, &list)
	assert.Len(t, list, 1)
}

func TestCreateStaff_Invalid(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	tests := []struct {
		name string
		body string
	}{
		{"bad email", `{"first_name":"A","last_name":"B","email":"nope","role":"rn"}`},
		{"unknown role", `{"first_name":"A","last_name":"B","email":"a@b.co","role":"surgeon"}`},
		{"bad clock", `{"first_name":"A","last_name":"B","email":"a@b.co","role":"rn","availability":[{"day":"wed","start":"7am","end":"19:00"}]}`},
		{"bad day", `{"first_name":"A","last_name":"B","email":"a@b.co","role":"rn","availability":[{"day":"someday","start":"07:00","end":"19:00"}]}`},
		{"too many hours", `{"first_name":"A","last_name":"B","email":"a@b.co","role":"rn","max_hours_per_week":100}`},
		{"not json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/staff", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
	assert.Empty(t, ts.store.staff)
}

func TestShifts(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	body := `{"date":"2026-10-14","type":"day","start_time":"07:00","end_time":"15:00","required_role":"cna","required_count":2}`
	w := ts.do(http.MethodPost, "/shifts", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Shift
	decode(t, w, &created)
	assert.Equal(t, models.ShiftPlanned, created.Status)
	assert.Equal(t, "Main", created.Facility)
	assert.Equal(t, []string{}, created.AssignedStaffIDs)

	w = ts.do(http.MethodPost, "/shifts", `{"date":"2026-10-14","type":"day","start_time":"25:00","end_time":"15:00","required_role":"cna"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/shifts", `{"date":"2026-10-14","type":"day","start_time":"07:00","end_time":"15:00","required_role":"cna","assigned_staff_ids":["a","a"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "duplicate assignees are rejected")

	w = ts.do(http.MethodGet, "/shifts?date=2026-10-14&status=planned", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Shift
	decode(t, w, &list)
	assert.Len(t, list, 1)

	w = ts.do(http.MethodGet, "/shifts?date=2026-10-15", "")
	decode(t, w, &list)
	assert.Empty(t, list)

	w = ts.do(http.MethodGet, "/shifts?date=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodGet, "/shifts?status=unknown", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResidentsAndTasks(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	w := ts.do(http.MethodPost, "/residents", `{"first_name":"Mae","last_name":"Fox","dob":"1940-02-01"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resident models.Resident
	decode(t, w, &resident)
	assert.Equal(t, "assisted", resident.CareLevel)
	assert.True(t, resident.IsActive)

	w = ts.do(http.MethodPost, "/residents", `{"first_name":"Mae","last_name":"Fox","dob":"02/01/1940"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/residents", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/tasks", `{"resident_id":"`+resident.ID+`","title":"Morning meds","category":"medication","assigned_to_staff_id":"s1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var task models.CareTask
	decode(t, w, &task)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Equal(t, "medium", task.Priority)

	w = ts.do(http.MethodPost, "/tasks", `{"resident_id":"r1","title":"x","priority":"whenever"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/tasks?staff_id=s1", "")
	var tasks []models.CareTask
	decode(t, w, &tasks)
	assert.Len(t, tasks, 1)

	w = ts.do(http.MethodGet, "/tasks?resident_id=other", "")
	decode(t, w, &tasks)
	assert.Empty(t, tasks)

	w = ts.do(http.MethodPatch, "/tasks/"+task.ID+"/status", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &task)
	assert.Equal(t, models.TaskCompleted, task.Status)

	w = ts.do(http.MethodPatch, "/tasks/missing/status", `{"status":"completed"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPatch, "/tasks/"+task.ID+"/status", `{"status":"done"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAutoAssignRoute(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})
	ts.assigner.result = &assignment.Result{
		Updated: 1,
		Shifts:  []models.Shift{{ID: "sh1", AssignedStaffIDs: []string{"a"}, Status: models.ShiftPublished}},
		Unfilled: []models.ConflictReason{
			{ShiftID: "sh2", Role: models.RoleRN, Needed: 1, Reasons: []string{"no active staff with role rn"}},
		},
		FairnessScore: 100,
	}

	w := ts.do(http.MethodPost, "/assign/auto", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]any
	decode(t, w, &body)
	assert.EqualValues(t, 1, body["updated"])
	assert.Len(t, body["shifts"], 1)
	assert.Len(t, body["unfilled"], 1)

	w = ts.do(http.MethodPost, "/assign/auto", `{"date":"2026-10-14"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.assigner.got, 2)
	assert.Equal(t, "", ts.assigner.got[0].Date)
	assert.Equal(t, "2026-10-14", ts.assigner.got[1].Date)

	w = ts.do(http.MethodPost, "/assign/auto", `{"date":"14-10-2026"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, ts.assigner.got, 2, "invalid dates never reach the service")

	ts.assigner.err = assignment.ErrInvalidDate
	w = ts.do(http.MethodPost, "/assign/auto", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.assigner.err = errors.New("database is locked")
	w = ts.do(http.MethodPost, "/assign/auto", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "locked")
}

func TestAutoAssignRoute_ChunkedEmptyBody(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})
	ts.assigner.result = &assignment.Result{}

	req := httptest.NewRequest(http.MethodPost, "/assign/auto", io.NopCloser(strings.NewReader("")))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, ts.assigner.got, 1)
	assert.Equal(t, "", ts.assigner.got[0].Date)

	req = httptest.NewRequest(http.MethodPost, "/assign/auto", io.NopCloser(strings.NewReader(`{"date":`)))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, ts.assigner.got, 1)
}

func TestPlanAndValidateSnapshot(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	snapshot := map[string]any{
		"shifts": []map[string]any{{
			"id": "sh1", "date": "2026-10-14", "type": "day", "start_time": "07:00", "end_time": "15:00",
			"required_role": "cna", "required_count": 1,
		}},
		"staff": []map[string]any{{
			"id": "s1", "first_name": "A", "last_name": "B", "email": "a@b.co", "role": "cna",
			"availability": []map[string]string{{"day": "wed", "start": "06:00", "end": "16:00"}},
		}},
	}
	raw, err := json.Marshal(snapshot)
	require.NoError(t, err)

	w := ts.do(http.MethodPost, "/assign/plan", string(raw))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var plan scheduler.Plan
	decode(t, w, &plan)
	require.Len(t, plan.Mutations, 1)
	assert.Equal(t, []string{"s1"}, plan.Mutations[0].AssignedStaffIDs)

	w = ts.do(http.MethodPost, "/assign/validate", string(raw))
	require.Equal(t, http.StatusOK, w.Code)
	var result map[string]any
	decode(t, w, &result)
	assert.Equal(t, true, result["valid"])

	dup := bytes.Replace(raw, []byte(`"shifts":[`), []byte(`"shifts":[{"id":"sh1","date":"2026-10-14","type":"day","start_time":"07:00","end_time":"15:00","required_role":"cna"},`), 1)
	w = ts.do(http.MethodPost, "/assign/validate", string(dup))
	decode(t, w, &result)
	assert.Equal(t, false, result["valid"])
	assert.Contains(t, result["error"], "Duplicate shift ID")

	w = ts.do(http.MethodPost, "/assign/validate", `{"shifts":[{"id":"x","date":"bad"}],"staff":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func createAdmin(t *testing.T, ts *testServer) string {
	t.Helper()
	hash, err := ts.auth.HashPassword("admin123")
	require.NoError(t, err)
	ts.keys.users["admin"] = database.MasterUser{ID: 1, Username: "admin", PasswordHash: hash}

	w := ts.do(http.MethodPost, "/admin/login", `{"username":"admin","password":"admin123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]string
	decode(t, w, &body)
	require.NotEmpty(t, body["access_token"])
	return body["access_token"]
}

func TestAdminLogin(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})
	createAdmin(t, ts)

	w := ts.do(http.MethodPost, "/admin/login", `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/admin/login", `{"username":"ghost","password":"admin123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/admin/login", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminKeys(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})
	token := createAdmin(t, ts)
	authz := []string{"Authorization", "Bearer " + token}

	w := ts.do(http.MethodGet, "/admin/keys", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(http.MethodGet, "/admin/keys", "", "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/admin/keys", `{"name":"north-wing"}`, authz...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created map[string]any
	decode(t, w, &created)
	assert.Equal(t, ts.auth.GenerateHMACKey("north-wing"), created["key"])

	w = ts.do(http.MethodGet, "/admin/keys", "", authz...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), created["key"], "full keys are never listed")
	assert.Contains(t, w.Body.String(), "key_preview")

	w = ts.do(http.MethodPut, "/admin/keys/1", `{"rate_limit":5}`, authz...)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, ts.keys.keys[0].RateLimit)

	w = ts.do(http.MethodPut, "/admin/keys/1?rate_limit=7", "", authz...)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, ts.keys.keys[0].RateLimit)

	w = ts.do(http.MethodPut, "/admin/keys/99", `{"rate_limit":5}`, authz...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(http.MethodPut, "/admin/keys/abc", `{"rate_limit":5}`, authz...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/admin/usage/1", "", authz...)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodDelete, "/admin/keys/1", "", authz...)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodDelete, "/admin/keys/1", "", authz...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIKeyProtection(t *testing.T) {
	ts := newTestServer(t, RouterOptions{RequireAPIKey: true})
	key := ts.auth.GenerateHMACKey("north-wing")

	w := ts.do(http.MethodGet, "/staff", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/staff", "", "Authorization", "north-wing.forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/staff", "", "Authorization", "Bearer "+key)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/assign/auto", "", "Authorization", key)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/usage", "", "Authorization", key)
	require.Equal(t, http.StatusOK, w.Code)
	var usage map[string]any
	decode(t, w, &usage)
	assert.Equal(t, "north-wing", usage["key_name"])
	totals := usage["totals"].(map[string]any)
	assert.EqualValues(t, 1, totals["requests"], "only the auto-assign pass is recorded")
}

func TestAPIKeyRateLimit(t *testing.T) {
	ts := newTestServer(t, RouterOptions{RequireAPIKey: true})
	key := ts.auth.GenerateHMACKey("east-wing")
	require.NoError(t, ts.keys.CreateAPIKey(context.Background(), &database.APIKey{Key: key, Name: "east-wing", RateLimit: 2}))

	for i := 0; i < 2; i++ {
		w := ts.do(http.MethodPost, "/assign/auto", "", "Authorization", key)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := ts.do(http.MethodPost, "/assign/auto", "", "Authorization", key)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestOpenRoutesWithoutAPIKey(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	w := ts.do(http.MethodGet, "/staff", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/usage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "usage always needs a key")
}
