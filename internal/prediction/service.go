// Package prediction answers "what will air quality be at this place on this
// day" from the trained model and keeps the latest answer for the analytics,
// advice and alert features.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/model"
	"github.com/couchcryptid/air-quality-service/internal/observability"
)

// Model is the trained estimator as the service uses it.
type Model interface {
	Predict(row model.FeatureRow) domain.Readings
	Known(row model.FeatureRow) bool
}

// ModelSource hands out the trained model, or [domain.ErrModelNotTrained].
type ModelSource interface {
	CurrentModel() (Model, error)
}

// ModelSourceFunc adapts a function to [ModelSource].
type ModelSourceFunc func() (Model, error)

// CurrentModel calls f.
func (f ModelSourceFunc) CurrentModel() (Model, error) { return f() }

// Publisher forwards successful predictions, e.g. to Kafka.
type Publisher interface {
	Publish(ctx context.Context, result domain.PredictionResult) error
}

// Recorder appends successful predictions to an audit log.
type Recorder interface {
	Record(ctx context.Context, result domain.PredictionResult) error
}

// Request is a prediction request. County and City may carry their
// " County" / " City" suffixes; Date accepts the layouts of [domain.ParseDate].
type Request struct {
	State  string `json:"state"`
	County string `json:"county"`
	City   string `json:"city"`
	Date   string `json:"date"`
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sends every successful prediction to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRecorder appends every successful prediction to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// Service computes predictions and stores the latest one in its session.
type Service struct {
	models    ModelSource
	session   *Session
	publisher Publisher
	recorder  Recorder
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates a Service.
func NewService(models ModelSource, session *Session, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		models:  models,
		session: session,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the slot holding the latest prediction.
func (s *Service) Session() *Session { return s.session }

// Predict validates req, runs the model and stores the result in the session,
// replacing the previous one. Failures are [*domain.PredictionError]s and
// leave the session untouched. Sink failures are logged and counted only.
func (s *Service) Predict(ctx context.Context, req Request) (domain.PredictionResult, error) {
	start := time.Now()
	result, err := s.predict(req)
	if err != nil {
		s.metrics.PredictionErrors.WithLabelValues(errorKind(err)).Inc()
		return domain.PredictionResult{}, err
	}
	s.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	s.metrics.Predictions.WithLabelValues(string(result.Category)).Inc()

	s.session.Store(result)
	s.forward(ctx, result)

	s.logger.Debug("prediction computed",
		"location", result.Location.Key(),
		"date", result.Date.Format(domain.DateLayout),
		"overall_aqi", result.OverallAQI,
		"category", result.Category,
	)
	return result, nil
}

func (s *Service) predict(req Request) (domain.PredictionResult, error) {
	loc := domain.Location{State: req.State, County: req.County, City: req.City}.Normalize()
	var missing []string
	if loc.State == "" {
		missing = append(missing, "state")
	}
	if loc.County == "" {
		missing = append(missing, "county")
	}
	if loc.City == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return domain.PredictionResult{}, &domain.PredictionError{
			Err: fmt.Errorf("%w: %s required", domain.ErrInvalidLocation, strings.Join(missing, ", ")),
		}
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return domain.PredictionResult{}, &domain.PredictionError{Err: err}
	}

	m, err := s.models.CurrentModel()
	if err != nil {
		return domain.PredictionResult{}, &domain.PredictionError{Err: err}
	}

	row := model.NewFeatureRow(loc, date)
	if !m.Known(row) {
		s.logger.Debug("location not seen in training", "location", loc.Key())
	}
	return domain.NewPredictionResult(uuid.NewString(), loc, date, m.Predict(row)), nil
}

func (s *Service) forward(ctx context.Context, result domain.PredictionResult) {
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, result); err != nil {
			s.metrics.SinkFailures.WithLabelValues("kafka").Inc()
			s.logger.Warn("publish prediction failed", "id", result.ID, "error", err)
		}
	}
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, result); err != nil {
			s.metrics.SinkFailures.WithLabelValues("sqlite").Inc()
			s.logger.Warn("record prediction failed", "id", result.ID, "error", err)
		}
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrModelNotTrained):
		return "not_trained"
	case errors.Is(err, domain.ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, domain.ErrInvalidLocation):
		return "invalid_location"
	default:
		return "other"
	}
}
