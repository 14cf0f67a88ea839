// Package alerts broadcasts an advisory email to a recipient list uploaded
// as CSV and reports the delivery status of every address.
package alerts

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/observability"
)

// DefaultSubject is used when a broadcast has a blank subject.
const DefaultSubject = "Air Quality Alert"

const emailColumn = "email"

var (
	ErrNotConfigured      = errors.New("missing SMTP credentials")
	ErrMissingEmailColumn = errors.New("CSV must have a column named 'email'")
	ErrNoRecipients       = errors.New("no emails found")
	ErrEmptyMessage       = errors.New("message cannot be empty")
)

// Message is one advisory email.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"message"`
}

// Sender delivers a message to one address.
type Sender interface {
	Send(ctx context.Context, to string, msg Message) error
}

// Delivery is the outcome for one recipient.
type Delivery struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

// Sent reports whether the delivery succeeded.
func (d Delivery) Sent() bool { return d.Status == "SENT" }

// ParseRecipients reads the email column of a CSV. Values are trimmed and
// blank cells skipped; order and duplicates are preserved.
func ParseRecipients(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingEmailColumn
	}
	if err != nil {
		return nil, fmt.Errorf("could not read CSV: %w", err)
	}

	col := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == emailColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrMissingEmailColumn
	}

	var emails []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read CSV: %w", err)
		}
		if col >= len(rec) {
			continue
		}
		if e := strings.TrimSpace(rec[col]); e != "" {
			emails = append(emails, e)
		}
	}
	return emails, nil
}

// Broadcaster sends a message to every recipient in turn.
type Broadcaster struct {
	sender  Sender
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewBroadcaster creates a broadcaster. A nil sender means SMTP credentials
// were not configured and every Broadcast fails with ErrNotConfigured.
func NewBroadcaster(sender Sender, logger *slog.Logger, metrics *observability.Metrics) *Broadcaster {
	return &Broadcaster{sender: sender, logger: logger, metrics: metrics}
}

// Broadcast validates the request and sends msg to each recipient. A failed
// delivery does not stop the rest; its error is reported in the status.
func (b *Broadcaster) Broadcast(ctx context.Context, msg Message, recipients []string) ([]Delivery, error) {
	if b.sender == nil {
		return nil, ErrNotConfigured
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	msg.Body = strings.TrimSpace(msg.Body)
	if msg.Body == "" {
		return nil, ErrEmptyMessage
	}
	msg.Subject = strings.TrimSpace(msg.Subject)
	if msg.Subject == "" {
		msg.Subject = DefaultSubject
	}

	out := make([]Delivery, 0, len(recipients))
	sent := 0
	for _, to := range recipients {
		d := Delivery{Email: to, Status: "SENT"}
		if err := b.sender.Send(ctx, to, msg); err != nil {
			d.Status = fmt.Sprintf("FAILED (%v)", err)
			b.metrics.AlertDeliveries.WithLabelValues("failed").Inc()
			b.logger.Warn("alert delivery failed", "to", to, "error", err)
		} else {
			sent++
			b.metrics.AlertDeliveries.WithLabelValues("sent").Inc()
		}
		out = append(out, d)
	}

	b.logger.Info("alert broadcast finished", "recipients", len(recipients), "sent", sent)
	return out, nil
}

// ComposeAdvisory drafts a message from a prediction for callers that do not
// supply their own text.
func ComposeAdvisory(r domain.PredictionResult, guidance string) Message {
	var body strings.Builder
	fmt.Fprintf(&body, "Air quality forecast for %s, %s (%s County) on %s.\n\n",
		domain.CityDisplayName(r.Location.City), r.Location.State, r.Location.County,
		r.Date.Format(domain.DateLayout))
	fmt.Fprintf(&body, "Predicted category: %s\nOverall AQI: %.0f\n", r.Category.DisplayName(), r.OverallAQI)
	if guidance != "" {
		fmt.Fprintf(&body, "\n%s\n", guidance)
	}
	return Message{
		Subject: fmt.Sprintf("Air Quality Advisory: %s", r.Category.DisplayName()),
		Body:    body.String(),
	}
}
