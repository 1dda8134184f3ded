package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeitpal/leave-engine/api"
	"github.com/zeitpal/leave-engine/leave"
	"github.com/zeitpal/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestServer spins up the full stack over an in-memory database and
// seeds a small organization through the public API itself.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := leave.NewService(store, store, store, store, store)
	router := api.NewRouter(api.NewHandler(store, svc), api.RouterOptions{})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	seed := []struct {
		path string
		body string
	}{
		{"/api/organizations", `{"id": "org-1", "name": "ZeitPal GmbH"}`},
		{"/api/users", `{"id": "mgr-1", "org_id": "org-1", "name": "Max Chef"}`},
		{"/api/users", `{"id": "hr-1", "org_id": "org-1", "name": "Hanna Personal", "role": "hr"}`},
		{"/api/users", `{"id": "emp-1", "org_id": "org-1", "name": "Erika Muster", "region": "BY", "manager_id": "mgr-1"}`},
		{"/api/leave-types", `{"id": "vacation", "org_id": "org-1", "name": "Urlaub", "annual_entitlement": "30"}`},
		{"/api/rules", `{"id": "rule-mgr", "org_id": "org-1", "name": "Manager approval", "approver_type": "manager", "level": 1, "active": true}`},
		{"/api/rules", `{"id": "rule-hr", "org_id": "org-1", "name": "HR for long leave", "conditions": {"min_days": 10}, "approver_type": "hr", "level": 2, "active": true}`},
	}
	for _, s := range seed {
		resp := post(t, srv, s.path, s.body)
		require.Equal(t, http.StatusCreated, resp.StatusCode, "seeding %s", s.path)
		resp.Body.Close()
	}

	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// REQUEST LIFECYCLE TESTS
// =============================================================================

func TestSubmitAndApproveFlow(t *testing.T) {
	// GIVEN: A seeded org with a single-level manager rule
	// WHEN: Submitting a short request and approving it
	// THEN: The request reaches approved with one cleared level

	srv := newTestServer(t)

	resp := post(t, srv, "/api/requests", `{
		"requester_id": "emp-1",
		"leave_type_id": "vacation",
		"start_date": "2025-06-02",
		"end_date": "2025-06-04",
		"reason": "short break"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.RequestDTO](t, resp)

	assert.Equal(t, "3", created.WorkDays)
	assert.Equal(t, "pending", created.Status)
	require.Len(t, created.Approvals, 1)
	assert.Equal(t, []string{"mgr-1"}, created.Approvals[0].Candidates)

	resp = post(t, srv, "/api/requests/"+created.ID+"/approve", `{"actor_id": "mgr-1", "comment": "ok"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decode[api.RequestDTO](t, resp)

	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "mgr-1", approved.DecidedBy)
	assert.Equal(t, "approved", approved.Approvals[0].Status)
}

func TestSubmit_HalfDayAndHolidays(t *testing.T) {
	// GIVEN: Bavarian presets loaded for 2025
	// WHEN: Requesting Mon 09-29 .. Fri 10-03 with a half start day
	// THEN: 3.5 work days (Einheit on Friday, half Monday)

	srv := newTestServer(t)

	resp := post(t, srv, "/api/holidays/german", `{"region": "BY", "year": 2025}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	loaded := decode[[]api.HolidayDTO](t, resp)
	assert.NotEmpty(t, loaded)

	resp = post(t, srv, "/api/requests", `{
		"requester_id": "emp-1",
		"leave_type_id": "vacation",
		"start_date": "2025-09-29",
		"end_date": "2025-10-03",
		"start_half": "afternoon"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.RequestDTO](t, resp)
	assert.Equal(t, "3.5", created.WorkDays)
}

func TestMultiLevelFlowViaAPI(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/requests", `{
		"requester_id": "emp-1",
		"leave_type_id": "vacation",
		"start_date": "2025-06-02",
		"end_date": "2025-06-13"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.RequestDTO](t, resp)
	require.Len(t, created.Approvals, 2)

	// HR acting before the manager is out of order.
	resp = post(t, srv, "/api/requests/"+created.ID+"/approve", `{"actor_id": "hr-1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = post(t, srv, "/api/requests/"+created.ID+"/approve", `{"actor_id": "mgr-1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mid := decode[api.RequestDTO](t, resp)
	assert.Equal(t, "pending", mid.Status)

	resp = post(t, srv, "/api/requests/"+created.ID+"/approve", `{"actor_id": "hr-1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	final := decode[api.RequestDTO](t, resp)
	assert.Equal(t, "approved", final.Status)
}

func TestRejectFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/requests", `{
		"requester_id": "emp-1",
		"leave_type_id": "vacation",
		"start_date": "2025-06-02",
		"end_date": "2025-06-13"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.RequestDTO](t, resp)

	resp = post(t, srv, "/api/requests/"+created.ID+"/reject", `{"actor_id": "mgr-1", "reason": "deadline"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rejected := decode[api.RequestDTO](t, resp)

	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "deadline", rejected.RejectionReason)
	require.Len(t, rejected.Approvals, 2)
	assert.Equal(t, "rejected", rejected.Approvals[0].Status)
	assert.Equal(t, "void", rejected.Approvals[1].Status)
}

func TestPendingQueueAndHistory(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/requests", `{
		"requester_id": "emp-1",
		"leave_type_id": "vacation",
		"start_date": "2025-06-02",
		"end_date": "2025-06-04"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = get(t, srv, "/api/requests/pending?approver=mgr-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	queue := decode[[]api.RequestDTO](t, resp)
	assert.Len(t, queue, 1)

	resp = get(t, srv, "/api/requests/pending?approver=hr-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decode[[]api.RequestDTO](t, resp)
	assert.Empty(t, empty)

	resp = get(t, srv, "/api/users/emp-1/requests")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]api.RequestDTO](t, resp)
	assert.Len(t, history, 1)
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/requests", `{
		"requester_id": "emp-1",
		"leave_type_id": "vacation",
		"start_date": "2025-06-02",
		"end_date": "2025-06-04"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.RequestDTO](t, resp)

	resp = post(t, srv, "/api/requests/"+created.ID+"/approve", `{"actor_id": "mgr-1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = get(t, srv, "/api/users/emp-1/summary?year=2025")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[[]api.SummaryDTO](t, resp)

	require.Len(t, summary, 1)
	assert.Equal(t, "vacation", summary[0].LeaveTypeID)
	assert.Equal(t, "3", summary[0].Used)
	assert.Equal(t, "27", summary[0].Remaining)
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestErrorStatusCodes(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name: "unknown requester is 404", method: "POST", path: "/api/requests",
			body:       `{"requester_id": "ghost", "leave_type_id": "vacation", "start_date": "2025-06-02", "end_date": "2025-06-04"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "inverted range is 400", method: "POST", path: "/api/requests",
			body:       `{"requester_id": "emp-1", "leave_type_id": "vacation", "start_date": "2025-06-10", "end_date": "2025-06-02"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "weekend-only request is 400", method: "POST", path: "/api/requests",
			body:       `{"requester_id": "emp-1", "leave_type_id": "vacation", "start_date": "2025-06-07", "end_date": "2025-06-08"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "malformed date is 400", method: "POST", path: "/api/requests",
			body:       `{"requester_id": "emp-1", "leave_type_id": "vacation", "start_date": "06/02/2025", "end_date": "2025-06-04"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown request id is 404", method: "GET", path: "/api/requests/nope",
			wantStatus: http.StatusNotFound,
		},
		{
			name: "invalid rule is 400", method: "POST", path: "/api/rules",
			body:       `{"id": "bad", "org_id": "org-1", "approver_type": "astrologer", "level": 1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown holiday region is 400", method: "POST", path: "/api/holidays/german",
			body:       `{"region": "XX", "year": 2025}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp *http.Response
			if tc.method == "GET" {
				resp = get(t, srv, tc.path)
			} else {
				resp = post(t, srv, tc.path, tc.body)
			}
			defer resp.Body.Close()
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestMisconfiguredOrg_Unprocessable(t *testing.T) {
	// GIVEN: An org with no approval rules at all
	// WHEN: Submitting a request
	// THEN: 422, the org configuration is at fault, not the request

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := leave.NewService(store, store, store, store, store)
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(store, svc), api.RouterOptions{}))
	t.Cleanup(srv.Close)

	resp := post(t, srv, "/api/organizations", `{"id": "org-2", "name": "Lonely GmbH"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = post(t, srv, "/api/users", `{"id": "solo", "org_id": "org-2", "name": "Solo"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = post(t, srv, "/api/leave-types", `{"id": "vacation", "org_id": "org-2", "name": "Urlaub", "annual_entitlement": "30"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = post(t, srv, "/api/requests", `{
		"requester_id": "solo",
		"leave_type_id": "vacation",
		"start_date": "2025-06-02",
		"end_date": "2025-06-04"
	}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestListRulesWithConditions(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv, "/api/rules?org=org-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rules []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rules))
	resp.Body.Close()
	require.Len(t, rules, 2)
}
