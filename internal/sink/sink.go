// Package sink appends merged card records to a tabular store, at most once
// per capture session.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
	"github.com/lehigh-university-libraries/cardscanner/internal/models"
)

// Outcome reports what a Persist call did
type Outcome int

const (
	// OutcomeSkipped means the session already attempted a save; nothing was sent
	OutcomeSkipped Outcome = iota
	// OutcomeDispatched means the row was handed to the store without a
	// transport error. It does not imply the store confirmed the write.
	OutcomeDispatched
	// OutcomeFailed means the append could not be dispatched
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Guard is the per-session "already attempted" flag. The zero value is armed.
type Guard struct {
	attempted atomic.Bool
}

// Claim sets the flag and reports whether the caller is the first to do so
func (g *Guard) Claim() bool {
	return g.attempted.CompareAndSwap(false, true)
}

// Attempted reports whether a save was already started for the session
func (g *Guard) Attempted() bool {
	return g.attempted.Load()
}

// Release re-arms the guard. Only call it for an explicit user retry after a
// failed save.
func (g *Guard) Release() {
	g.attempted.Store(false)
}

// Payload is the body sent to the tabular append endpoint. The store assigns
// the timestamp.
type Payload struct {
	Name      string `json:"name"`
	JobTitle  string `json:"jobTitle"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Website   string `json:"website"`
	Address   string `json:"address"`
	ImageURL1 string `json:"imageUrl1"`
	ImageURL2 string `json:"imageUrl2"`
}

// NewPayload flattens a record and its image URLs
func NewPayload(rec models.MergedRecord, urls models.PublishedImageSet) Payload {
	return Payload{
		Name:      rec.Name,
		JobTitle:  rec.JobTitle,
		Company:   rec.Company,
		Email:     rec.Email,
		Phone:     rec.Phone,
		Website:   rec.Website,
		Address:   rec.Address,
		ImageURL1: urls.URLs[0],
		ImageURL2: urls.URLs[1],
	}
}

// Record returns the merged record carried by the payload
func (p Payload) Record() models.MergedRecord {
	return models.MergedRecord{
		Name:     p.Name,
		JobTitle: p.JobTitle,
		Company:  p.Company,
		Email:    p.Email,
		Phone:    p.Phone,
		Website:  p.Website,
		Address:  p.Address,
	}
}

// Appender writes one row to a tabular store
type Appender interface {
	Name() string
	Append(ctx context.Context, p Payload) error
}

// Sink guards an Appender so each session appends at most once
type Sink struct {
	appender Appender
	logger   *slog.Logger
}

// New wraps appender
func New(appender Appender) *Sink {
	return &Sink{appender: appender, logger: slog.Default()}
}

// NewFromConfig builds the appender selected by cfg.Kind
func NewFromConfig(ctx context.Context, cfg config.SinkConfig) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case "webhook":
		return New(NewWebhookAppender(cfg.ScriptURL)), nil
	case "sheets":
		a, err := NewSheetsAppender(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return New(a), nil
	case "workbook":
		return New(NewWorkbookAppender(cfg.WorkbookPath)), nil
	}
	return nil, failures.Wrap(failures.ErrConfiguration, "", fmt.Sprintf("unsupported sink: %s", cfg.Kind), nil)
}

// Appender returns the wrapped backend
func (s *Sink) Appender() Appender {
	return s.appender
}

// Persist appends one row for the session owning guard. The guard is claimed
// before any I/O so a second call, concurrent or not, is skipped.
func (s *Sink) Persist(ctx context.Context, guard *Guard, rec models.MergedRecord, urls models.PublishedImageSet) (Outcome, error) {
	if !guard.Claim() {
		s.logger.Debug("Save already attempted for session, skipping")
		return OutcomeSkipped, nil
	}

	if err := s.appender.Append(ctx, NewPayload(rec, urls)); err != nil {
		s.logger.Error("Failed to append row", "sink", s.appender.Name(), "err", err)
		return OutcomeFailed, failures.Wrap(failures.ErrPersist, "persist", s.appender.Name(), err)
	}

	s.logger.Info("Row dispatched", "sink", s.appender.Name(), "name", rec.Name, "company", rec.Company)
	return OutcomeDispatched, nil
}

// unavailable stands in for a sink whose configuration is missing, so the
// problem is reported when a save is attempted rather than at startup.
type unavailable struct {
	err error
}

// Unavailable returns an appender that always fails with err
func Unavailable(err error) Appender {
	return unavailable{err: err}
}

func (u unavailable) Name() string {
	return "unconfigured"
}

func (u unavailable) Append(context.Context, Payload) error {
	return u.err
}
