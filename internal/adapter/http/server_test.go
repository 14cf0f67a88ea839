package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/air-quality-service/internal/adapter/http"
	"github.com/couchcryptid/air-quality-service/internal/advice"
	"github.com/couchcryptid/air-quality-service/internal/alerts"
	"github.com/couchcryptid/air-quality-service/internal/dataset"
	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/model"
	"github.com/couchcryptid/air-quality-service/internal/observability"
	"github.com/couchcryptid/air-quality-service/internal/pipeline"
	"github.com/couchcryptid/air-quality-service/internal/prediction"
)

// --- mocks ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type fixedSnapshots struct {
	snap *pipeline.Snapshot
}

func (f fixedSnapshots) Snapshot() (*pipeline.Snapshot, bool) { return f.snap, f.snap != nil }

type stubAdvisor struct{ reply string }

func (a stubAdvisor) Generate(context.Context, string) (string, error) { return a.reply, nil }

type stubSender struct {
	mu   sync.Mutex
	fail string
	msgs []alerts.Message
}

func (s *stubSender) Send(_ context.Context, to string, msg alerts.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to == s.fail {
		return errors.New("mailbox unavailable")
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

type stubLog struct {
	entries []domain.PredictionResult
	limit   int
}

func (l *stubLog) Recent(_ context.Context, limit int) ([]domain.PredictionResult, error) {
	l.limit = limit
	return l.entries, nil
}

// --- fixture ---

var (
	snapOnce sync.Once
	snapVal  *pipeline.Snapshot
	snapErr  error
)

// trainedSnapshot trains a small model once for the whole package.
func trainedSnapshot(t *testing.T) *pipeline.Snapshot {
	t.Helper()
	snapOnce.Do(func() {
		var b strings.Builder
		b.WriteString("Date,State,County,City," + strings.Join(domain.MetricColumns(), ",") + "\n")
		for day := 1; day <= 20; day++ {
			fmt.Fprintf(&b, "2022-05-%02d,CA,Los Angeles,Los Angeles,0.04,0.05,%d,0.3,0.4,5,1,2,3,10,20,15\n", day, 30+day)
			fmt.Fprintf(&b, "2022-05-%02d,NY,Kings,Brooklyn,0.03,0.04,%d,0.2,0.3,4,1,2,2,12,22,18\n", day, 20+day)
		}
		var ds *dataset.Dataset
		ds, snapErr = dataset.Read(strings.NewReader(b.String()), 2015)
		if snapErr != nil {
			return
		}
		cfg := model.DefaultConfig()
		cfg.Forest.Trees = 5
		var m *model.Model
		m, snapErr = model.NewTrainer(cfg, discardLogger()).Train(context.Background(), ds)
		if snapErr != nil {
			return
		}
		snapVal = &pipeline.Snapshot{Model: m, Dataset: ds, Locations: dataset.NewLocations(ds.Records)}
	})
	require.NoError(t, snapErr)
	return snapVal
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	snap    *pipeline.Snapshot
	advisor advice.Advisor
	sender  alerts.Sender
	log     httpadapter.PredictionLog
	ready   error
}

func (f fixture) server(t *testing.T) *httpadapter.Server {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	source := prediction.ModelSourceFunc(func() (prediction.Model, error) {
		if f.snap == nil {
			return nil, domain.ErrModelNotTrained
		}
		return f.snap.Model, nil
	})
	return httpadapter.NewServer(":0", httpadapter.Deps{
		Ready:            &mockReadiness{err: f.ready},
		Snapshots:        fixedSnapshots{snap: f.snap},
		Predictions:      prediction.NewService(source, prediction.NewSession(), discardLogger(), metrics),
		Advice:           advice.NewService(f.advisor, discardLogger(), metrics),
		Alerts:           alerts.NewBroadcaster(f.sender, discardLogger(), metrics),
		Log:              f.log,
		HistoryStartYear: 2015,
	}, discardLogger())
}

func do(srv *httpadapter.Server, method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		r = bytes.NewReader(data)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var laRequest = map[string]string{
	"state": "CA", "county": "Los Angeles County", "city": "Los Angeles City", "date": "2023-06-01",
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := do(fixture{}.server(t), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	assert.Equal(t, http.StatusOK, do(fixture{}.server(t), http.MethodGet, "/readyz", nil).Code)

	notReady := fixture{ready: domain.ErrModelNotTrained}.server(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(notReady, http.MethodGet, "/readyz", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(fixture{}.server(t), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- model and locations ---

func TestModel(t *testing.T) {
	rec := do(fixture{}.server(t), http.MethodGet, "/api/v1/model", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(fixture{snap: trainedSnapshot(t)}.server(t), http.MethodGet, "/api/v1/model", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.InDelta(t, 40, body["dataset_rows"], 0)
	assert.Contains(t, body, "evaluation")
}

func TestLocations(t *testing.T) {
	srv := fixture{snap: trainedSnapshot(t)}.server(t)

	states := decode[map[string][]string](t, do(srv, http.MethodGet, "/api/v1/locations", nil))
	assert.Equal(t, []string{"CA", "NY"}, states["states"])

	counties := decode[map[string][]string](t, do(srv, http.MethodGet, "/api/v1/locations?state=NY", nil))
	assert.Equal(t, []string{"Kings"}, counties["counties"])
	assert.Equal(t, []string{"Kings County"}, counties["labels"])

	cities := decode[map[string][]string](t, do(srv, http.MethodGet, "/api/v1/locations?state=CA&county=Los+Angeles+County", nil))
	assert.Equal(t, []string{"Los Angeles"}, cities["cities"])
	assert.Equal(t, []string{"Los Angeles City"}, cities["labels"])
}

// --- predictions ---

func TestPredictFlow(t *testing.T) {
	srv := fixture{snap: trainedSnapshot(t)}.server(t)

	rec := do(srv, http.MethodGet, "/api/v1/predictions/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(srv, http.MethodPost, "/api/v1/predictions", laRequest)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[domain.PredictionResult](t, rec)
	assert.Equal(t, domain.Location{State: "CA", County: "Los Angeles", City: "Los Angeles"}, res.Location)
	assert.Equal(t, domain.Categorize(res.OverallAQI), res.Category)

	cur := decode[domain.PredictionResult](t, do(srv, http.MethodGet, "/api/v1/predictions/current", nil))
	assert.Equal(t, res.ID, cur.ID)

	rec = do(srv, http.MethodGet, "/api/v1/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[map[string]any](t, rec)
	assert.Equal(t, "Low", summary["risk_level"])
	assert.Len(t, summary["breakdown"], domain.NumMetrics)

	rec = do(srv, http.MethodGet, "/api/v1/analytics/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[struct {
		City   string                 `json:"city"`
		Points []dataset.HistoryPoint `json:"points"`
	}](t, rec)
	assert.Equal(t, "Los Angeles", history.City)
	assert.Len(t, history.Points, 20)

	rec = do(srv, http.MethodGet, "/api/v1/analytics/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "air_quality_report_")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = do(srv, http.MethodGet, "/api/v1/analytics/report?format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".txt")
	assert.Contains(t, rec.Body.String(), "AIR QUALITY ANALYTICS REPORT")

	rec = do(srv, http.MethodGet, "/api/v1/advice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sheet := decode[advice.Sheet](t, rec)
	assert.Equal(t, res.Category, sheet.Category)
	assert.Len(t, sheet.QuickActions, 3)
}

func TestPredictErrors(t *testing.T) {
	trained := fixture{snap: trainedSnapshot(t)}.server(t)

	rec := do(trained, http.MethodPost, "/api/v1/predictions", `{"state":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := map[string]string{"state": "CA", "county": "Kern", "city": "Bakersfield", "date": "June 1st"}
	rec = do(trained, http.MethodPost, "/api/v1/predictions", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "invalid date")

	rec = do(trained, http.MethodPost, "/api/v1/predictions", map[string]string{"state": "CA", "date": "2023-06-01"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(fixture{}.server(t), http.MethodPost, "/api/v1/predictions", laRequest)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyticsWithoutPrediction(t *testing.T) {
	srv := fixture{snap: trainedSnapshot(t)}.server(t)

	for _, path := range []string{"/api/v1/analytics", "/api/v1/analytics/report", "/api/v1/advice", "/api/v1/analytics/history"} {
		assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, path, nil).Code, path)
	}

	rec := do(srv, http.MethodGet, "/api/v1/analytics/history?state=NY&city=Brooklyn+City", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"city":"Brooklyn"`)
}

func TestPredictionLog(t *testing.T) {
	rec := do(fixture{}.server(t), http.MethodGet, "/api/v1/predictions/log", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	log := &stubLog{entries: []domain.PredictionResult{{ID: "a"}, {ID: "b"}}}
	srv := fixture{log: log}.server(t)

	rec = do(srv, http.MethodGet, "/api/v1/predictions/log?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, log.limit)
	body := decode[map[string][]domain.PredictionResult](t, rec)
	assert.Len(t, body["predictions"], 2)

	rec = do(srv, http.MethodGet, "/api/v1/predictions/log?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- advice and alerts ---

func TestAsk(t *testing.T) {
	srv := fixture{snap: trainedSnapshot(t), advisor: stubAdvisor{reply: "Run before 9am."}}.server(t)

	rec := do(srv, http.MethodPost, "/api/v1/advice/ask", map[string]string{"question": "Can I run?"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "no prediction yet")

	require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/api/v1/predictions", laRequest).Code)

	rec = do(srv, http.MethodPost, "/api/v1/advice/ask", map[string]string{"question": "Can I run?"})
	require.Equal(t, http.StatusOK, rec.Code)
	ans := decode[advice.Answer](t, rec)
	assert.Equal(t, "Run before 9am.", ans.Text)

	rec = do(srv, http.MethodPost, "/api/v1/advice/ask", map[string]string{"question": " "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	unconfigured := fixture{snap: trainedSnapshot(t)}.server(t)
	require.Equal(t, http.StatusOK, do(unconfigured, http.MethodPost, "/api/v1/predictions", laRequest).Code)
	rec = do(unconfigured, http.MethodPost, "/api/v1/advice/ask", map[string]string{"question": "Can I run?"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAlerts(t *testing.T) {
	sender := &stubSender{fail: "bad@example.com"}
	srv := fixture{snap: trainedSnapshot(t), sender: sender}.server(t)

	rec := do(srv, http.MethodPost, "/api/v1/alerts", map[string]any{
		"message":        "Smoke expected tomorrow.",
		"recipients_csv": "name,email\nAna,ana@example.com\nBad,bad@example.com\n",
		"recipients":     []string{" cy@example.com "},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[struct {
		Recipients int               `json:"recipients"`
		Sent       int               `json:"sent"`
		Deliveries []alerts.Delivery `json:"deliveries"`
	}](t, rec)
	assert.Equal(t, 3, body.Recipients)
	assert.Equal(t, 2, body.Sent)
	assert.Equal(t, "cy@example.com", body.Deliveries[0].Email)
	assert.Equal(t, "FAILED (mailbox unavailable)", body.Deliveries[2].Status)
	assert.Equal(t, alerts.DefaultSubject, sender.msgs[0].Subject)
}

func TestAlerts_Advisory(t *testing.T) {
	sender := &stubSender{}
	srv := fixture{snap: trainedSnapshot(t), sender: sender}.server(t)
	require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/api/v1/predictions", laRequest).Code)

	rec := do(srv, http.MethodPost, "/api/v1/alerts", map[string]any{
		"advisory":   true,
		"recipients": []string{"ana@example.com"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, sender.msgs, 1)
	assert.True(t, strings.HasPrefix(sender.msgs[0].Subject, "Air Quality Advisory: "))
	assert.Contains(t, sender.msgs[0].Body, "Los Angeles City, CA")
}

func TestAlerts_Errors(t *testing.T) {
	srv := fixture{sender: &stubSender{}}.server(t)

	rec := do(srv, http.MethodPost, "/api/v1/alerts", map[string]any{"message": "hi", "recipients_csv": "mail\na@x.io\n"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(srv, http.MethodPost, "/api/v1/alerts", map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(srv, http.MethodPost, "/api/v1/alerts", map[string]any{"message": "", "recipients": []string{"a@x.io"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	noSMTP := fixture{}.server(t)
	rec = do(noSMTP, http.MethodPost, "/api/v1/alerts", map[string]any{"message": "hi", "recipients": []string{"a@x.io"}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
