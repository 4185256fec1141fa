// Package disposition persists the terminal status implied by a classification.
package disposition

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

// Outcome is the result of applying one classification.
type Outcome string

const (
	OutcomeKept    Outcome = "kept"
	OutcomeDeleted Outcome = "deleted"
	OutcomeSkipped Outcome = "skipped" // zero rows affected
	OutcomeError   Outcome = "error"
)

// Decision pairs a token with its classification.
type Decision struct {
	CA     string
	Result domain.ClassificationResult
}

// Writer applies classifications to the token store.
type Writer struct {
	store storage.TokenStore
	log   logrus.FieldLogger
	now   func() time.Time
}

// Options for creating Writer.
type Options struct {
	Store  storage.TokenStore
	Logger logrus.FieldLogger
}

// New creates a new Writer.
func New(opts Options) *Writer {
	return &Writer{
		store: opts.Store,
		log:   observability.OrNop(opts.Logger),
		now:   time.Now,
	}
}

// Apply writes the status implied by result for ca together with the result itself.
// Only a token still in status new is updated; zero affected rows yields OutcomeSkipped.
// A store error is returned with OutcomeError.
func (w *Writer) Apply(ctx context.Context, ca string, result domain.ClassificationResult) (Outcome, error) {
	status := result.Disposition()

	rows, err := w.store.UpdateDisposition(ctx, ca, status, result, w.now().UnixMilli())
	if err != nil {
		observability.RecordDisposition(string(OutcomeError))
		w.log.WithField("ca", ca).WithError(err).Error("disposition update failed")
		return OutcomeError, err
	}
	if rows == 0 {
		observability.RecordDisposition(string(OutcomeSkipped))
		w.log.WithFields(logrus.Fields{
			"ca":     ca,
			"status": status,
		}).Info("disposition skipped: token missing or already terminal")
		return OutcomeSkipped, nil
	}

	outcome := OutcomeDeleted
	if status == domain.StatusKept {
		outcome = OutcomeKept
	}
	observability.RecordDisposition(string(outcome))
	return outcome, nil
}

// Record folds one outcome into s.
func Record(s *domain.DispositionSummary, ca string, outcome Outcome, err error) {
	s.Processed++
	switch outcome {
	case OutcomeKept:
		s.Kept++
	case OutcomeDeleted:
		s.Deleted++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeError:
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		s.Errors = append(s.Errors, domain.RecordError{CA: ca, Message: msg})
	}
}

// ApplyAll applies decisions in order. A failed update is recorded in the
// summary and does not stop the remaining decisions.
func (w *Writer) ApplyAll(ctx context.Context, decisions []Decision) domain.DispositionSummary {
	var summary domain.DispositionSummary
	for _, d := range decisions {
		outcome, err := w.Apply(ctx, d.CA, d.Result)
		Record(&summary, d.CA, outcome, err)
	}
	return summary
}
