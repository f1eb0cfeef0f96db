package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficshield/internal/models"
	"trafficshield/internal/store"
	"trafficshield/internal/workflow"
)

func TestSubmitReport(t *testing.T) {
	h := newHarness(t)

	var posted map[string]any
	h.handle(http.MethodPost, "/reports", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.Write([]byte(`{"success":true,"data":{"id":"rep-1","vehicle_plate":"ABC123","status":"PENDING"}}`))
	})
	h.handle(http.MethodGet, "/reports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"reports":[{"id":"rep-1","status":"PENDING"}],"total":1,"page":1,"limit":10}}`))
	})
	h.handle(http.MethodGet, "/analytics/summary", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"report_counts":{"PENDING":1}}}`))
	})

	report, err := h.engine.Reports.Submit(context.Background(), Submission{
		VehiclePlate:  "  abc123 ",
		ViolationType: "NO_HELMET",
		Description:   "rider without helmet",
		EvidencePaths: []string{evidenceFile(t)},
		Latitude:      10.77,
		Longitude:     106.69,
	})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, models.ReportStatusPending, report.Status)

	assert.Equal(t, "ABC123", posted["vehicle_plate"], "plate is trimmed and uppercased before the wire")
	assert.NotEmpty(t, posted["idempotency_key"])

	urls, ok := posted["evidence_urls"].([]any)
	require.True(t, ok)
	require.Len(t, urls, 1)
	assert.Equal(t, "https://cdn.example.com/evidence.jpg", urls[0])

	location, ok := posted["location"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "12 Main St, Springfield", location["address"])

	snap := h.engine.Reports.Store.State()
	require.NotNil(t, snap.Data, "submission refetches the list")
	assert.Len(t, snap.Data.Items, 1)
}

func TestSubmitValidationFailsBeforeNetwork(t *testing.T) {
	h := newHarness(t)

	var hit atomic.Bool
	h.handleAll(func(w http.ResponseWriter, r *http.Request) {
		hit.Store(true)
	})

	_, err := h.engine.Reports.Submit(context.Background(), Submission{
		VehiclePlate:  "AB", // too short
		ViolationType: "SPEEDING",
		EvidencePaths: []string{evidenceFile(t)},
	})
	require.Error(t, err)
	assert.False(t, hit.Load(), "invalid submissions never reach the backend")

	_, err = h.engine.Reports.Submit(context.Background(), Submission{
		VehiclePlate:  "ABC123",
		ViolationType: "SPEEDING",
		EvidencePaths: nil, // evidence mandatory
	})
	require.Error(t, err)
	assert.False(t, hit.Load())
}

func TestSubmitSurvivesGeocodeOutage(t *testing.T) {
	h := newHarness(t)
	h.failGeocode()

	var posted map[string]any
	h.handle(http.MethodPost, "/reports", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.Write([]byte(`{"success":true,"data":{"id":"rep-2","status":"PENDING"}}`))
	})
	h.handle(http.MethodGet, "/reports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"reports":[],"total":0,"page":1,"limit":10}}`))
	})
	h.handle(http.MethodGet, "/analytics/summary", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{}}`))
	})

	_, err := h.engine.Reports.Submit(context.Background(), Submission{
		VehiclePlate:  "XYZ789",
		ViolationType: "SPEEDING",
		EvidencePaths: []string{evidenceFile(t)},
		Latitude:      10.77,
		Longitude:     106.69,
	})
	require.NoError(t, err, "geocoding outages must not block the submission")

	location, ok := posted["location"].(map[string]any)
	require.True(t, ok)
	_, hasAddress := location["address"]
	assert.False(t, hasAddress, "address stays empty, coordinates remain usable")
	assert.Equal(t, 10.77, location["latitude"])
}

func TestReviewRequiresNotes(t *testing.T) {
	h := newHarness(t)

	var hit atomic.Bool
	h.handleAll(func(w http.ResponseWriter, r *http.Request) {
		hit.Store(true)
	})

	_, err := h.engine.Reports.Review(context.Background(), "rep-1", workflow.Decision{Approve: true})
	assert.ErrorIs(t, err, workflow.ErrNotesRequired)
	assert.False(t, hit.Load(), "guard fires before any network call")
}

func TestReviewPatchesStoreInPlace(t *testing.T) {
	h := newHarness(t)

	h.handle(http.MethodGet, "/reports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"reports":[{"id":"rep-1","status":"PENDING"}],"total":1,"page":1,"limit":10}}`))
	})
	h.handle(http.MethodPost, "/reports/rep-1/approve", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"id":"rep-1","status":"APPROVED","review_notes":"clear footage","reward_amount":50000}}`))
	})
	h.handle(http.MethodGet, "/analytics/summary", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"report_counts":{"APPROVED":1}}}`))
	})

	require.NoError(t, h.engine.Reports.Refresh(context.Background()))

	updated, err := h.engine.Reports.Review(context.Background(), "rep-1", workflow.Decision{
		Approve: true,
		Notes:   "clear footage",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusApproved, updated.Status)
	assert.Equal(t, 50000.0, updated.RewardAmount)

	cached, found := h.engine.Reports.Store.Find("rep-1")
	require.True(t, found)
	assert.Equal(t, models.ReportStatusApproved, cached.Status, "server record reconciles the cache in place")

	// The stats view is refetched alongside the verdict.
	require.Eventually(t, func() bool {
		value, _, _ := h.engine.Stats.Store.Value()
		return value != nil && value.ReportCounts["APPROVED"] == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestReviewBlocksSettledRecords(t *testing.T) {
	h := newHarness(t)

	h.handle(http.MethodGet, "/reports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"reports":[{"id":"rep-1","status":"APPROVED"}],"total":1,"page":1,"limit":10}}`))
	})
	require.NoError(t, h.engine.Reports.Refresh(context.Background()))

	_, err := h.engine.Reports.Review(context.Background(), "rep-1", workflow.Decision{
		Approve: false,
		Notes:   "changed my mind",
	})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestAppealOncePerReport(t *testing.T) {
	h := newHarness(t)

	var appealHits atomic.Int32
	h.handle(http.MethodGet, "/reports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"reports":[
			{"id":"rep-1","status":"REJECTED","appeal_submitted":false},
			{"id":"rep-2","status":"REJECTED","appeal_submitted":true}
		],"total":2,"page":1,"limit":10}}`))
	})
	h.handle(http.MethodPost, "/reports/rep-1/appeal", func(w http.ResponseWriter, r *http.Request) {
		appealHits.Add(1)
		w.Write([]byte(`{"success":true,"data":{"id":"rep-1","status":"REJECTED","appeal_submitted":true,"appeal_status":"PENDING_APPEAL"}}`))
	})

	require.NoError(t, h.engine.Reports.Refresh(context.Background()))

	updated, err := h.engine.Reports.Appeal(context.Background(), "rep-1", "wrong vehicle identified", []string{evidenceFile(t)})
	require.NoError(t, err)
	assert.True(t, updated.AppealSubmitted)
	assert.Equal(t, int32(1), appealHits.Load())

	// Second appeal is blocked locally; the patched record now carries
	// appeal_submitted=true.
	_, err = h.engine.Reports.Appeal(context.Background(), "rep-1", "try again", []string{evidenceFile(t)})
	assert.ErrorIs(t, err, workflow.ErrAppealAlreadySubmitted)
	assert.Equal(t, int32(1), appealHits.Load(), "blocked appeal never reaches the network")

	// A record that already appealed is blocked outright.
	_, err = h.engine.Reports.Appeal(context.Background(), "rep-2", "reason", []string{evidenceFile(t)})
	assert.ErrorIs(t, err, workflow.ErrAppealAlreadySubmitted)
}

func TestAppealWarningMentionsCompoundingPenalty(t *testing.T) {
	h := newHarness(t)
	warning := h.engine.Reports.AppealWarning()
	assert.Contains(t, warning, "additional penalty")
	assert.Contains(t, warning, "one appeal")
}

func TestRefreshWithFilters(t *testing.T) {
	h := newHarness(t)

	var gotQuery map[string][]string
	h.handle(http.MethodGet, "/reports", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"success":true,"data":{"reports":[],"total":0,"page":1,"limit":10}}`))
	})

	h.engine.Reports.Store.SetPage(5)
	h.engine.Reports.Store.SetFilters(store.Filters{"status": "PENDING"})
	require.NoError(t, h.engine.Reports.Refresh(context.Background()))

	assert.Equal(t, []string{"PENDING"}, gotQuery["status"])
	assert.Equal(t, []string{"1"}, gotQuery["page"], "filter change rewinds the cursor before the fetch")
}
