// Package model trains and serves the pollutant regression model.
//
// A [Model] is the fitted pipeline: a one-hot encoder over state, county and
// city in front of a multi-output random forest that also sees year, month
// and day. It is immutable once trained and safe for concurrent use.
package model

import (
	"time"

	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/forest"
)

// Model is a trained pipeline.
type Model struct {
	encoder *OneHotEncoder
	forest  *forest.Forest
	eval    Evaluation
}

// Predict returns the twelve pollutant metrics for row. Locations unseen in
// training are encoded as all-zero indicators and still produce a prediction.
func (m *Model) Predict(row FeatureRow) domain.Readings {
	var out domain.Readings
	copy(out[:], m.forest.Predict(m.sample(row)))
	return out
}

func (m *Model) sample(row FeatureRow) forest.Sample {
	return forest.Sample{Numeric: row.numeric(), Codes: m.encoder.Encode(row.categorical())}
}

// Known reports whether every categorical field of row was seen in training.
func (m *Model) Known(row FeatureRow) bool {
	for _, c := range m.encoder.Encode(row.categorical()) {
		if c < 0 {
			return false
		}
	}
	return true
}

// Evaluation returns the hold-out scores computed when the model was trained.
func (m *Model) Evaluation() Evaluation { return m.eval }

// Evaluation summarizes a training run. Errors are uniform averages over the
// twelve targets, computed on the held-out rows.
type Evaluation struct {
	MAE        float64        `json:"mae"`
	MSE        float64        `json:"mse"`
	RMSE       float64        `json:"rmse"`
	R2         float64        `json:"r2"`
	Targets    []TargetScore  `json:"targets"`
	TrainRows  int            `json:"train_rows"`
	TestRows   int            `json:"test_rows"`
	Trees      int            `json:"trees"`
	Features   int            `json:"features"`
	Duration   time.Duration  `json:"duration_ns"`
	TrainedAt  time.Time      `json:"trained_at"`
	Categories map[string]int `json:"categories"`
}

// TargetScore is the hold-out score of a single target.
type TargetScore struct {
	Column string  `json:"column"`
	MAE    float64 `json:"mae"`
	RMSE   float64 `json:"rmse"`
	R2     float64 `json:"r2"`
}
