package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/air-quality-service/internal/advice"
	"github.com/couchcryptid/air-quality-service/internal/alerts"
	"github.com/couchcryptid/air-quality-service/internal/analytics"
	"github.com/couchcryptid/air-quality-service/internal/dataset"
	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/pipeline"
	"github.com/couchcryptid/air-quality-service/internal/prediction"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

func (s *Server) snapshot() (*pipeline.Snapshot, error) {
	snap, ok := s.deps.Snapshots.Snapshot()
	if !ok {
		return nil, domain.ErrModelNotTrained
	}
	return snap, nil
}

func (s *Server) current() (domain.PredictionResult, error) {
	return s.deps.Predictions.Session().Current()
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"evaluation":   snap.Model.Evaluation(),
		"dataset_rows": snap.Dataset.Len(),
		"stats":        snap.Dataset.Stats,
		"start_year":   snap.Dataset.StartYear,
	})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state := strings.TrimSpace(r.URL.Query().Get("state"))
	county := r.URL.Query().Get("county")

	// "labels" carries the suffixed names shown to users, index-aligned.
	switch {
	case state == "":
		writeJSON(w, http.StatusOK, map[string][]string{"states": snap.Locations.States()})
	case strings.TrimSpace(county) == "":
		counties := snap.Locations.Counties(state)
		writeJSON(w, http.StatusOK, map[string][]string{
			"counties": counties,
			"labels":   displayNames(counties, domain.CountyDisplayName),
		})
	default:
		cities := snap.Locations.Cities(state, county)
		writeJSON(w, http.StatusOK, map[string][]string{
			"cities": cities,
			"labels": displayNames(cities, domain.CityDisplayName),
		})
	}
}

func displayNames(names []string, label func(string) string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = label(n)
	}
	return out
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req prediction.Request
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Predictions.Predict(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	res, err := s.current()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if s.deps.Log == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prediction log disabled"})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	entries, err := s.deps.Log.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": entries})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	res, err := s.current()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(res))
}

// handleHistory serves the daily mean AQI of a city. Without query
// parameters it uses the location of the current prediction.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state := strings.TrimSpace(r.URL.Query().Get("state"))
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if state == "" || city == "" {
		res, err := s.current()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		state, city = res.Location.State, res.Location.City
	}

	points := snap.Dataset.History(state, city, s.deps.HistoryStartYear)
	if points == nil {
		points = []dataset.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":     state,
		"city":      domain.NormalizeCity(city),
		"from_year": s.deps.HistoryStartYear,
		"points":    points,
	})
}

// handleReport serves the analytics report as a PDF download, or as plain
// text with ?format=text.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.current()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary := analytics.Summarize(res)
	guidance := advice.For(res.Category).Precautions
	name := "air_quality_report_" + domain.Now().Format("20060102_150405")

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.txt"`, name))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, summary.Report(guidance)) //nolint:errcheck // client may have gone away
		return
	}

	var buf bytes.Buffer
	if err := summary.PDF(&buf, guidance); err != nil {
		s.writeError(w, r, fmt.Errorf("render report: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client may have gone away
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	res, err := s.current()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, advice.SheetFor(res))
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.current()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ans, err := s.deps.Advice.Ask(r.Context(), advice.ContextFor(res), req.Question)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

// alertRequest carries recipients as CSV text, as a list, or both. With
// Advisory set and a blank message, the body is drafted from the current
// prediction.
type alertRequest struct {
	Subject       string   `json:"subject"`
	Message       string   `json:"message"`
	RecipientsCSV string   `json:"recipients_csv"`
	Recipients    []string `json:"recipients"`
	Advisory      bool     `json:"advisory"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var recipients []string
	for _, e := range req.Recipients {
		if e = strings.TrimSpace(e); e != "" {
			recipients = append(recipients, e)
		}
	}
	if req.RecipientsCSV != "" {
		parsed, err := alerts.ParseRecipients(strings.NewReader(req.RecipientsCSV))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		recipients = append(recipients, parsed...)
	}

	msg := alerts.Message{Subject: req.Subject, Body: req.Message}
	if req.Advisory && strings.TrimSpace(msg.Body) == "" {
		res, err := s.current()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		drafted := alerts.ComposeAdvisory(res, advice.For(res.Category).Precautions)
		msg.Body = drafted.Body
		if strings.TrimSpace(msg.Subject) == "" {
			msg.Subject = drafted.Subject
		}
	}

	deliveries, err := s.deps.Alerts.Broadcast(r.Context(), msg, recipients)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sent := 0
	for _, d := range deliveries {
		if d.Sent() {
			sent++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recipients": len(deliveries),
		"sent":       sent,
		"deliveries": deliveries,
	})
}
