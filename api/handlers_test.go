/*
handlers_test.go - HTTP-level tests for the leave API

Tests drive the full chi router via httptest so routing, identity
headers, validation, and error mapping are all exercised together.
The store is the in-memory implementation.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/leavedesk/accrual"
	"github.com/crewdesk/leavedesk/datemath"
	"github.com/crewdesk/leavedesk/holiday"
	"github.com/crewdesk/leavedesk/leave"
	"github.com/crewdesk/leavedesk/leave/store"
)

// =============================================================================
// FIXTURES
// =============================================================================

func newTestRouter(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	log := logrus.New()
	log.SetOutput(io.Discard)

	policy := &accrual.Policy{
		Now: func() datemath.Date { return datemath.NewDate(2026, time.August, 28) },
	}
	service := leave.NewService(mem, policy, log)

	calendar := holiday.NewCalendar([]datemath.Date{
		datemath.NewDate(2026, time.December, 25),
	})

	handler := NewHandler(service, calendar, log)
	return NewRouter(handler), mem
}

func seedProfile(t *testing.T, mem *store.Memory, id string, role leave.Role, allowance int) {
	t.Helper()
	err := mem.SaveProfile(context.Background(), &leave.ProfileAccount{
		ID:                 leave.ProfileID(id),
		Name:               "Profile " + id,
		Email:              id + "@example.com",
		Role:               role,
		RemainingAllowance: leave.NewDays(allowance),
	})
	require.NoError(t, err)
}

func doJSON(t *testing.T, router http.Handler, method, path, actorID, actorRole string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
	}
	if actorRole != "" {
		req.Header.Set("X-Actor-Role", actorRole)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// =============================================================================
// PROFILE ENDPOINTS
// =============================================================================

func TestGetProfile(t *testing.T) {
	// GIVEN: a seeded profile
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)

	// WHEN: the owner fetches it
	rec := doJSON(t, router, http.MethodGet, "/api/profiles/alice", "alice", "", nil)

	// THEN: the profile is returned with its allowance as a string
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[ProfileResponse](t, rec)
	assert.Equal(t, "alice", resp.ID)
	assert.Equal(t, "7", resp.RemainingAllowance)
	assert.Empty(t, resp.StartedAt)
}

func TestGetProfile_Unknown(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/profiles/ghost", "alice", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "not_found", resp["kind"])
}

func TestGetProfile_RequiresIdentity(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)

	rec := doJSON(t, router, http.MethodGet, "/api/profiles/alice", "", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfile_FirstStartDateSetsAllowance(t *testing.T) {
	// GIVEN: a profile with no start date
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 0)

	// WHEN: the owner records a start date two years back
	body := map[string]string{"startedAt": "2024-08-28"}
	rec := doJSON(t, router, http.MethodPut, "/api/profiles/alice", "alice", "", body)

	// THEN: the tenure bracket allowance appears
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[ProfileResponse](t, rec)
	assert.Equal(t, "2024-08-28", resp.StartedAt)
	assert.Equal(t, "7", resp.RemainingAllowance)
}

func TestUpdateProfile_OnlyOwner(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)
	seedProfile(t, mem, "mallory", leave.RoleStandard, 7)

	body := map[string]string{"about": "hijacked"}
	rec := doJSON(t, router, http.MethodPut, "/api/profiles/alice", "mallory", "", body)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateProfile_RejectsMalformedDate(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 0)

	body := map[string]string{"startedAt": "28/08/2024"}
	rec := doJSON(t, router, http.MethodPut, "/api/profiles/alice", "alice", "", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmitRequest(t *testing.T) {
	// GIVEN: an employee with allowance
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)

	// WHEN: she submits a five-day range
	body := SubmitRequestBody{RangeStart: "2026-09-07", RangeEnd: "2026-09-11", Message: "trip"}
	rec := doJSON(t, router, http.MethodPost, "/api/requests", "alice", "", body)

	// THEN: a pending request comes back with the refreshed queue
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[MutationResponse](t, rec)
	require.NotNil(t, resp.Request)
	assert.Equal(t, "pending", resp.Request.Status)
	assert.Equal(t, 5, resp.Request.Days)
	require.Len(t, resp.Pending, 1)
	assert.Equal(t, "Profile alice", resp.Pending[0].OwnerName)
}

func TestSubmitRequest_InvalidRange(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)

	body := SubmitRequestBody{RangeStart: "2026-09-11", RangeEnd: "2026-09-07"}
	rec := doJSON(t, router, http.MethodPost, "/api/requests", "alice", "", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "invalid_range", resp["kind"])
}

func TestSubmitRequest_AllowanceExceeded(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 3)

	body := SubmitRequestBody{RangeStart: "2026-09-07", RangeEnd: "2026-09-11"}
	rec := doJSON(t, router, http.MethodPost, "/api/requests", "alice", "", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "allowance_exceeded", resp["kind"])
}

func TestSubmitRequest_EmptyAllowance(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 0)

	body := SubmitRequestBody{RangeStart: "2026-09-07", RangeEnd: "2026-09-07"}
	rec := doJSON(t, router, http.MethodPost, "/api/requests", "alice", "", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "empty_allowance", resp["kind"])
}

func TestSubmitRequest_ValidationRejectsMissingDates(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)

	rec := doJSON(t, router, http.MethodPost, "/api/requests", "alice", "", map[string]string{"message": "no dates"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// DECISIONS
// =============================================================================

func submitOne(t *testing.T, router http.Handler, actorID, start, end string) string {
	t.Helper()
	body := SubmitRequestBody{RangeStart: start, RangeEnd: end}
	rec := doJSON(t, router, http.MethodPost, "/api/requests", actorID, "", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody[MutationResponse](t, rec).Request.ID
}

func TestApproveRequest_DebitsAllowance(t *testing.T) {
	// GIVEN: a pending five-day request
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)
	seedProfile(t, mem, "boss", leave.RoleAdmin, 30)
	id := submitOne(t, router, "alice", "2026-09-07", "2026-09-11")

	// WHEN: an admin approves it
	rec := doJSON(t, router, http.MethodPost, "/api/requests/"+id+"/approve", "boss", "admin", nil)

	// THEN: the request is terminal, the queue is empty, and the
	// owner's allowance dropped by the day-count
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[MutationResponse](t, rec)
	assert.Equal(t, "approved", resp.Request.Status)
	assert.Equal(t, "boss", resp.Request.DecidedBy)
	assert.Empty(t, resp.Pending)

	owner, err := mem.GetProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "2", owner.RemainingAllowance.String())
}

func TestRejectRequest_KeepsAllowance(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)
	seedProfile(t, mem, "boss", leave.RoleAdmin, 30)
	id := submitOne(t, router, "alice", "2026-09-07", "2026-09-11")

	rec := doJSON(t, router, http.MethodPost, "/api/requests/"+id+"/reject", "boss", "admin", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[MutationResponse](t, rec)
	assert.Equal(t, "rejected", resp.Request.Status)

	owner, err := mem.GetProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "7", owner.RemainingAllowance.String())
}

func TestDecide_RequiresAdmin(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)
	id := submitOne(t, router, "alice", "2026-09-07", "2026-09-11")

	rec := doJSON(t, router, http.MethodPost, "/api/requests/"+id+"/approve", "alice", "", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDecide_AlreadyDecidedConflicts(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)
	seedProfile(t, mem, "boss", leave.RoleAdmin, 30)
	id := submitOne(t, router, "alice", "2026-09-07", "2026-09-11")

	first := doJSON(t, router, http.MethodPost, "/api/requests/"+id+"/reject", "boss", "admin", nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, router, http.MethodPost, "/api/requests/"+id+"/approve", "boss", "admin", nil)

	require.Equal(t, http.StatusConflict, second.Code)
	resp := decodeBody[map[string]string](t, second)
	assert.Equal(t, "invalid_transition", resp["kind"])
}

func TestDecide_UnknownRequest(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "boss", leave.RoleAdmin, 30)

	rec := doJSON(t, router, http.MethodPost, "/api/requests/nope/approve", "boss", "admin", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// QUEUES AND HISTORY
// =============================================================================

func TestListPending_AdminOnly(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)

	rec := doJSON(t, router, http.MethodGet, "/api/requests/pending", "alice", "", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListPending_SubmissionOrder(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)
	seedProfile(t, mem, "bob", leave.RoleStandard, 14)
	seedProfile(t, mem, "boss", leave.RoleAdmin, 30)
	submitOne(t, router, "alice", "2026-09-07", "2026-09-08")
	submitOne(t, router, "bob", "2026-09-14", "2026-09-15")

	rec := doJSON(t, router, http.MethodGet, "/api/requests/pending", "boss", "admin", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string][]RequestResponse](t, rec)
	pending := resp["pending"]
	require.Len(t, pending, 2)
	assert.Equal(t, "alice", pending[0].OwnerID)
	assert.Equal(t, "bob", pending[1].OwnerID)
}

func TestListOwnerRequests_SelfOrAdmin(t *testing.T) {
	router, mem := newTestRouter(t)
	seedProfile(t, mem, "alice", leave.RoleStandard, 7)
	seedProfile(t, mem, "bob", leave.RoleStandard, 14)
	seedProfile(t, mem, "boss", leave.RoleAdmin, 30)
	submitOne(t, router, "alice", "2026-09-07", "2026-09-08")

	own := doJSON(t, router, http.MethodGet, "/api/profiles/alice/requests", "alice", "", nil)
	require.Equal(t, http.StatusOK, own.Code)
	assert.Len(t, decodeBody[map[string][]RequestResponse](t, own)["requests"], 1)

	admin := doJSON(t, router, http.MethodGet, "/api/profiles/alice/requests", "boss", "admin", nil)
	assert.Equal(t, http.StatusOK, admin.Code)

	other := doJSON(t, router, http.MethodGet, "/api/profiles/alice/requests", "bob", "", nil)
	assert.Equal(t, http.StatusForbidden, other.Code)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestListHolidays(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/holidays", "", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[HolidaysResponse](t, rec)
	assert.Equal(t, []string{"2026-12-25"}, resp.Holidays)
}
