package advice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/observability"
)

var (
	// ErrAdvisorNotConfigured is returned by Ask when no API key was provided.
	ErrAdvisorNotConfigured = errors.New("advisor not configured: set GEMINI_API_KEY")
	// ErrEmptyQuestion is returned by Ask for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")

	errEmptyReply = errors.New("empty reply")
)

// Advisor generates free-text answers for a prompt.
type Advisor interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Context is the prediction the question is asked about.
type Context struct {
	Category   domain.AQICategory
	OverallAQI float64
	Pollutants domain.Readings
}

// ContextFor builds a question context from a prediction.
func ContextFor(r domain.PredictionResult) Context {
	return Context{Category: r.Category, OverallAQI: r.OverallAQI, Pollutants: r.Metrics}
}

// Answer is the advisor's reply. Fallback marks a reply taken from the static
// guidance because the advisor failed.
type Answer struct {
	Question string `json:"question"`
	Text     string `json:"answer"`
	Fallback bool   `json:"fallback"`
}

// Service answers questions about the current prediction.
type Service struct {
	advisor Advisor
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates an advice service. advisor may be nil, in which case
// Ask reports ErrAdvisorNotConfigured.
func NewService(advisor Advisor, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{advisor: advisor, logger: logger, metrics: metrics}
}

// Ask forwards the question to the advisor. Upstream failures are not
// returned; the category's government-actions guidance is used instead.
func (s *Service) Ask(ctx context.Context, c Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	if s.advisor == nil {
		s.metrics.AdviceRequests.WithLabelValues("unconfigured").Inc()
		return Answer{}, ErrAdvisorNotConfigured
	}

	start := time.Now()
	text, err := s.advisor.Generate(ctx, Prompt(c, question))
	s.metrics.AdviceAPIDuration.Observe(time.Since(start).Seconds())

	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = errEmptyReply
	}
	if err != nil {
		s.logger.Warn("advisor unavailable, using fallback", "category", c.Category, "error", err)
		s.metrics.AdviceRequests.WithLabelValues("fallback").Inc()
		return Answer{
			Question: question,
			Text:     "AI service unavailable, showing fallback advice:\n\n" + For(c.Category).GovernmentActions,
			Fallback: true,
		}, nil
	}

	s.metrics.AdviceRequests.WithLabelValues("answered").Inc()
	return Answer{Question: question, Text: text}, nil
}

// Prompt builds the advisor prompt for a question.
func Prompt(c Context, question string) string {
	var levels []string
	for i, m := range domain.Metrics {
		levels = append(levels, fmt.Sprintf("%s: %.1f", m.Column(), c.Pollutants[i]))
	}

	var b strings.Builder
	b.WriteString("You are an air quality expert providing advice based on EPA standards.\n\n")
	b.WriteString("Current Air Quality Prediction:\n")
	fmt.Fprintf(&b, "- Category: %s\n", c.Category)
	fmt.Fprintf(&b, "- Overall AQI: %.1f\n", c.OverallAQI)
	fmt.Fprintf(&b, "- Pollutant Levels: %s\n\n", strings.Join(levels, ", "))
	fmt.Fprintf(&b, "User Question: %s\n\n", question)
	b.WriteString("Please provide specific, actionable advice related to air quality, health precautions, ")
	b.WriteString("government actions, or environmental recommendations. Focus only on air quality-related topics. ")
	b.WriteString("If the question is not related to air quality, politely decline to answer.\n\n")
	b.WriteString("Keep your response concise and practical, under 200 words.\n")
	return b.String()
}
