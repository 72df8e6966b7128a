// ABOUTME: Handler tests for incident intake: validation responses, dispatch wiring, rate limit.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sableridge/watchdesk/internal/notify"
)

func validIntakeBody() map[string]string {
	return map[string]string{
		"contactName":  "Jane Doe",
		"contactEmail": "jane@acme.com",
		"contactPhone": "770-555-1212",
		"description":  "Ransomware note on every workstation.",
		"severity":     "critical",
	}
}

func postIncident(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents", strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateIncident_Success(t *testing.T) {
	d := &fakeDispatcher{results: []notify.Result{
		{Channel: "email", Attempted: true, Sent: true},
		{Channel: "webhook", Attempted: true, Sent: false, Error: "webhook POST: unexpected status 502"},
	}}
	h := newTestServer(&fakeIntel{batch: testBatch()}, d)

	rec := postIncident(t, h, validIntakeBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success    bool            `json:"success"`
		IncidentID string          `json:"incidentId"`
		Status     string          `json:"status"`
		Channels   []notify.Result `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Regexp(t, regexp.MustCompile(`^IR-\d+-[A-Z0-9]{6}$`), body.IncidentID)
	assert.Equal(t, "INITIATED", body.Status)
	// A failed channel is reported, not converted into a request failure.
	require.Len(t, body.Channels, 2)
	assert.True(t, body.Channels[0].Sent)
	assert.False(t, body.Channels[1].Sent)

	require.Len(t, d.reports, 1)
	assert.Equal(t, "critical", d.reports[0].Incident.Severity)
}

func TestCreateIncident_MissingFields(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestServer(&fakeIntel{batch: testBatch()}, d)

	body := validIntakeBody()
	delete(body, "contactEmail")
	delete(body, "description")

	rec := postIncident(t, h, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error    string   `json:"error"`
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "missing required fields", resp.Error)
	assert.Equal(t, []string{"contactEmail", "description"}, resp.Required)
	assert.Empty(t, d.reports, "rejected submissions make zero notification attempts")
}

func TestCreateIncident_BadEmail(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestServer(&fakeIntel{batch: testBatch()}, d)

	body := validIntakeBody()
	body["contactEmail"] = "not-an-email"

	rec := postIncident(t, h, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "contactEmail")
	assert.Empty(t, d.reports)
}

func TestCreateIncident_ShortPhone(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestServer(&fakeIntel{batch: testBatch()}, d)

	body := validIntakeBody()
	body["contactPhone"] = "555-1212"

	rec := postIncident(t, h, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "10 digits")
	assert.Empty(t, d.reports)
}

func TestCreateIncident_MalformedJSON(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestServer(&fakeIntel{batch: testBatch()}, d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, rec.Body.String())
	assert.Empty(t, d.reports)
}

func TestCreateIncident_MethodNotAllowed(t *testing.T) {
	h := newTestServer(&fakeIntel{batch: testBatch()}, &fakeDispatcher{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/incidents", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCreateIncident_Preflight(t *testing.T) {
	h := newTestServer(&fakeIntel{batch: testBatch()}, &fakeDispatcher{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/incidents", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateIncident_RateLimited(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestServer(&fakeIntel{batch: testBatch()}, d)

	// Burst is 10 per source IP; the 11th immediate request must be rejected.
	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		b, _ := json.Marshal(validIntakeBody())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents", strings.NewReader(string(b)))
		req.RemoteAddr = "203.0.113.7:40000"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
		if i < 10 {
			require.Equal(t, http.StatusOK, last.Code, fmt.Sprintf("request %d within burst", i+1))
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
	assert.Len(t, d.reports, 10)
}
