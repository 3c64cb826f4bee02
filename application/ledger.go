package application

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"postulaciones/domain"
)

// Ledger records verification attempts. Recording never fails the caller.
type Ledger struct {
	sink    domain.LedgerSink
	reader  domain.LedgerReader
	timeout time.Duration
	metrics Metrics
	now     func() time.Time
	log     zerolog.Logger
}

func NewLedger(sink domain.LedgerSink, reader domain.LedgerReader, timeout time.Duration, metrics Metrics, log zerolog.Logger) *Ledger {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Ledger{
		sink:    sink,
		reader:  reader,
		timeout: timeout,
		metrics: metrics,
		now:     time.Now,
		log:     log.With().Str("component", "ledger").Logger(),
	}
}

// Record appends entry and reports whether the sink accepted it. The append
// outlives request cancellation but is bounded by the ledger timeout.
func (l *Ledger) Record(ctx context.Context, entry domain.Verification) (ok bool) {
	if entry.VerifiedAt.IsZero() {
		entry.VerifiedAt = l.now().UTC()
	}

	defer func() {
		if r := recover(); r != nil {
			l.fail(entry, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	if err := l.sink.Append(ctx, &entry); err != nil {
		l.fail(entry, err)
		return false
	}
	l.log.Debug().Str("code", entry.Code).Str("channel", entry.Channel).Msg("verification recorded")
	return true
}

func (l *Ledger) fail(entry domain.Verification, err error) {
	l.metrics.LedgerAppendFailed(entry.Channel)
	l.log.Error().Err(err).
		Str("code", entry.Code).
		Str("channel", entry.Channel).
		Msg("failed to record verification")
}

// List returns ledger entries newest first with their JSON columns decoded.
func (l *Ledger) List(ctx context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, domain.InvalidInput("El rango de fechas no es válido.")
	}
	rows, err := l.reader.List(ctx, filter.Normalize())
	if err != nil {
		return nil, domain.StorageFailure("Error al obtener verificaciones.", errors.Wrap(err, "ledger.List"))
	}
	entries := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.Entry())
	}
	return entries, nil
}
