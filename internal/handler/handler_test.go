package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/runclub/internal/auth"
	"github.com/Shivanand-hulikatti/runclub/internal/config"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
	"github.com/Shivanand-hulikatti/runclub/internal/service"
	"github.com/Shivanand-hulikatti/runclub/internal/sqlite"
	"github.com/Shivanand-hulikatti/runclub/internal/tracing"
)

const testAdminToken = "organizer-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runs := repository.NewCachedRunStore(db.RunRepository(), time.Minute, time.Minute)
	reg := service.NewRegistrationService(runs, db.SignUpRepository(),
		config.RegistrationConfig{MaxAttempts: 3, RetryBackoff: time.Millisecond}, tracing.Noop().Tracer())
	h := NewRunHandler(service.NewRunService(runs), reg, service.NewAccountService(db.UserRepository(), bcrypt.MinCost))
	authn := auth.NewPasswordAuthenticator(db.UserRepository(), auth.SchemeEither, bcrypt.MinCost)

	srv := httptest.NewServer(NewRouter(h, authn, testAdminToken))
	t.Cleanup(srv.Close)
	return srv
}

type request struct {
	method string
	path   string
	body   any
	user   string
	admin  bool
}

func do(t *testing.T, srv *httptest.Server, r request, out any) int {
	t.Helper()
	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req, err := http.NewRequest(r.method, srv.URL+r.path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if r.user != "" {
		req.SetBasicAuth(r.user, "password123")
	}
	if r.admin {
		req.Header.Set(AdminTokenHeader, testAdminToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createAccount(t *testing.T, srv *httptest.Server, name string) model.User {
	t.Helper()
	var u model.User
	status := do(t, srv, request{method: http.MethodPost, path: "/accounts", body: model.CreateAccountRequest{
		Username: name, Email: name + "@example.com", Password: "password123",
	}}, &u)
	require.Equal(t, http.StatusCreated, status)
	return u
}

func createRun(t *testing.T, srv *httptest.Server, capacity int) model.Run {
	t.Helper()
	var run model.Run
	status := do(t, srv, request{method: http.MethodPost, path: "/runs", admin: true, body: model.CreateRunRequest{
		Date: "2025-10-25", Time: "07:00", MeetingPlace: "North Gate", Venue: "Hampstead Heath",
		LengthKM: 850, MaxCapacity: capacity,
	}}, &run)
	require.Equal(t, http.StatusCreated, status)
	return run
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)
	var body map[string]string
	require.Equal(t, http.StatusOK, do(t, srv, request{method: http.MethodGet, path: "/health"}, &body))
	require.Equal(t, "ok", body["status"])
}

func TestSignupFlow(t *testing.T) {
	srv := newTestServer(t)
	run := createRun(t, srv, 1)
	require.Equal(t, model.Kilometers(850), run.LengthKM)
	createAccount(t, srv, "user1")
	createAccount(t, srv, "user2")
	signupPath := "/runs/" + run.ID + "/signup"

	var resp model.RegistrationResponse
	require.Equal(t, http.StatusCreated, do(t, srv, request{method: http.MethodPost, path: signupPath, user: "user1"}, &resp))
	require.Equal(t, model.OutcomeRegistered, resp.Outcome)
	require.NotNil(t, resp.SignUp)

	var errResp model.ErrorResponse
	require.Equal(t, http.StatusConflict, do(t, srv, request{method: http.MethodPost, path: signupPath, user: "user1"}, &errResp))
	require.Equal(t, model.OutcomeAlreadyRegistered, errResp.Outcome)

	errResp = model.ErrorResponse{}
	require.Equal(t, http.StatusConflict, do(t, srv, request{method: http.MethodPost, path: signupPath, user: "user2@example.com"}, &errResp))
	require.Equal(t, model.OutcomeRunFull, errResp.Outcome)

	var status model.RunStatus
	require.Equal(t, http.StatusOK, do(t, srv, request{method: http.MethodGet, path: "/runs/" + run.ID, user: "user1"}, &status))
	require.True(t, status.IsFull)
	require.True(t, status.Registered)
	require.Equal(t, 1, status.SignupCount)

	resp = model.RegistrationResponse{}
	require.Equal(t, http.StatusOK, do(t, srv, request{method: http.MethodDelete, path: signupPath, user: "user1"}, &resp))
	require.Equal(t, model.OutcomeCancelled, resp.Outcome)

	errResp = model.ErrorResponse{}
	require.Equal(t, http.StatusConflict, do(t, srv, request{method: http.MethodDelete, path: signupPath, user: "user1"}, &errResp))
	require.Equal(t, model.OutcomeNotRegistered, errResp.Outcome)

	var list []model.RunStatus
	require.Equal(t, http.StatusOK, do(t, srv, request{method: http.MethodGet, path: "/runs"}, &list))
	require.Len(t, list, 1)
	require.Equal(t, 1, list[0].AvailableSpots)
}

func TestSignup_UnknownRun(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, "user1")

	var errResp model.ErrorResponse
	require.Equal(t, http.StatusNotFound, do(t, srv, request{method: http.MethodPost, path: "/runs/missing/signup", user: "user1"}, &errResp))
	require.Equal(t, model.OutcomeNotFound, errResp.Outcome)
}

func TestSignup_RequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	run := createRun(t, srv, 1)

	require.Equal(t, http.StatusUnauthorized, do(t, srv, request{method: http.MethodPost, path: "/runs/" + run.ID + "/signup"}, nil))
	require.Equal(t, http.StatusUnauthorized, do(t, srv, request{method: http.MethodPost, path: "/runs/" + run.ID + "/signup", user: "ghost"}, nil))
	require.Equal(t, http.StatusUnauthorized, do(t, srv, request{method: http.MethodGet, path: "/runs", user: "ghost"}, nil),
		"bad credentials are rejected even on public routes")
}

func TestOrganizerRoutes(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusForbidden, do(t, srv, request{method: http.MethodPost, path: "/runs", body: model.CreateRunRequest{}}, nil))

	var errResp model.ErrorResponse
	require.Equal(t, http.StatusBadRequest, do(t, srv, request{method: http.MethodPost, path: "/runs", admin: true,
		body: model.CreateRunRequest{Date: "2025-10-25"}}, &errResp))
	require.Contains(t, errResp.Error, "time")

	run := createRun(t, srv, 2)
	u1 := createAccount(t, srv, "user1")
	createAccount(t, srv, "user2")
	for _, name := range []string{"user1", "user2"} {
		require.Equal(t, http.StatusCreated, do(t, srv, request{method: http.MethodPost, path: "/runs/" + run.ID + "/signup", user: name}, nil))
	}

	update := model.UpdateRunRequest{Date: "2025-10-25", Time: "07:00", MeetingPlace: "North Gate",
		Venue: "Hampstead Heath", LengthKM: 850, MaxCapacity: 1}
	require.Equal(t, http.StatusConflict, do(t, srv, request{method: http.MethodPut, path: "/runs/" + run.ID, admin: true, body: update}, nil))

	var signups []model.SignUp
	require.Equal(t, http.StatusOK, do(t, srv, request{method: http.MethodGet, path: "/runs/" + run.ID + "/signups", admin: true}, &signups))
	require.Len(t, signups, 2)
	require.Equal(t, u1.ID, signups[0].UserID)

	var marked model.SignUp
	attendancePath := "/runs/" + run.ID + "/signups/" + u1.ID + "/attendance"
	require.Equal(t, http.StatusOK, do(t, srv, request{method: http.MethodPut, path: attendancePath, admin: true,
		body: model.AttendanceRequest{Attended: true}}, &marked))
	require.True(t, marked.Attended)

	require.Equal(t, http.StatusNotFound, do(t, srv, request{method: http.MethodPut, path: "/runs/" + run.ID + "/signups/nobody/attendance",
		admin: true, body: model.AttendanceRequest{Attended: true}}, nil))

	require.Equal(t, http.StatusNoContent, do(t, srv, request{method: http.MethodDelete, path: "/runs/" + run.ID, admin: true}, nil))
	require.Equal(t, http.StatusNotFound, do(t, srv, request{method: http.MethodGet, path: "/runs/" + run.ID}, nil))
}

func TestRunWrites_AcceptRunJSON(t *testing.T) {
	srv := newTestServer(t)

	var created model.Run
	require.Equal(t, http.StatusCreated, do(t, srv, request{method: http.MethodPost, path: "/runs", admin: true,
		body: map[string]any{"date": "2025-10-20", "time": "09:00", "meeting_place": "Main Entrance",
			"venue": "Victoria Park", "length_km": 5.5, "max_capacity": 20}}, &created))
	require.Equal(t, model.Kilometers(550), created.LengthKM)

	var quoted model.Run
	require.Equal(t, http.StatusCreated, do(t, srv, request{method: http.MethodPost, path: "/runs", admin: true,
		body: map[string]any{"date": "2025-10-22", "time": "18:30", "meeting_place": "Canal Towpath",
			"venue": "Regent's Canal", "length_km": "10.00", "max_capacity": 15}}, &quoted))
	require.Equal(t, model.Kilometers(1000), quoted.LengthKM)

	var fetched map[string]any
	require.Equal(t, http.StatusOK, do(t, srv, request{method: http.MethodGet, path: "/runs/" + created.ID}, &fetched))
	fetched["venue"] = "Hampstead Heath"
	fetched["max_capacity"] = 25

	var updated model.Run
	require.Equal(t, http.StatusOK, do(t, srv, request{method: http.MethodPut, path: "/runs/" + created.ID, admin: true,
		body: fetched}, &updated))
	require.Equal(t, "Hampstead Heath", updated.Venue)
	require.Equal(t, 25, updated.MaxCapacity)
	require.Equal(t, model.Kilometers(550), updated.LengthKM)

	var errResp model.ErrorResponse
	require.Equal(t, http.StatusBadRequest, do(t, srv, request{method: http.MethodPost, path: "/runs", admin: true,
		body: map[string]any{"date": "2025-10-20", "time": "09:00", "meeting_place": "Main Entrance",
			"venue": "Victoria Park", "length_km": 5.125, "max_capacity": 20}}, &errResp))
	require.Contains(t, errResp.Error, "length_km")
}

func TestCreateAccount_Errors(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv, "user1")

	require.Equal(t, http.StatusConflict, do(t, srv, request{method: http.MethodPost, path: "/accounts",
		body: model.CreateAccountRequest{Username: "user1", Email: "x@example.com", Password: "password123"}}, nil))
	require.Equal(t, http.StatusBadRequest, do(t, srv, request{method: http.MethodPost, path: "/accounts",
		body: map[string]string{"username": "x", "unknown": "field"}}, nil))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/runs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.True(t, strings.Contains(resp.Header.Get("Access-Control-Allow-Headers"), AdminTokenHeader))
}

func TestRequireAdmin_Disabled(t *testing.T) {
	h := RequireAdmin("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runs", nil)
	req.Header.Set(AdminTokenHeader, "")
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
