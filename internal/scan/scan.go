// Package scan runs one report scan: resolve the range, query a message
// source, filter, aggregate and record the result.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pledgetally/internal/aggregate"
	"pledgetally/internal/daterange"
	"pledgetally/internal/eligibility"
	"pledgetally/internal/extract"
	"pledgetally/internal/model"
	"pledgetally/internal/util"
)

// ErrRecipientRequired is returned when no recipient was given.
var ErrRecipientRequired = errors.New("recipient is required")

// Phases reported in Error.
const (
	PhaseValidate = "validate"
	PhaseSearch   = "search"
)

// Settings keys remembered between runs.
const (
	SettingLastRecipient = "last_recipient"
	SettingLastRange     = "last_range"
)

// Error wraps a scan failure with the phase it occurred in.
type Error struct {
	Phase string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Source supplies candidate messages and the operator's own address.
type Source interface {
	Name() string
	Search(ctx context.Context, q model.Query) ([]model.RawMessage, error)
	OperatorAddress(ctx context.Context) (string, error)
}

// ReportStore persists finished reports and remembered inputs.
type ReportStore interface {
	SaveReport(ctx context.Context, r *model.Report) error
	SetSetting(ctx context.Context, key, value string) error
}

// Request is one scan's input.
type Request struct {
	Recipient string
	Range     string
}

// Options tune a Service.
type Options struct {
	// Operator overrides the address reported by the source.
	Operator string
	// LenientRange turns unknown range units into an immediate cutoff
	// instead of an error.
	LenientRange bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service runs scans against one source.
type Service struct {
	source Source
	store  ReportStore
	log    zerolog.Logger
	opts   Options
}

// NewService creates a Service. store may be nil.
func NewService(source Source, store ReportStore, log zerolog.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{source: source, store: store, log: log, opts: opts}
}

// SourceName names the configured source.
func (s *Service) SourceName() string { return s.source.Name() }

// Run executes a scan and returns its report.
func (s *Service) Run(ctx context.Context, req Request) (*model.Report, error) {
	recipient := util.NormalizeRecipient(req.Recipient)
	if recipient == "" {
		return nil, &Error{Phase: PhaseValidate, Err: ErrRecipientRequired}
	}
	rng, err := s.parseRange(req.Range)
	if err != nil {
		return nil, &Error{Phase: PhaseValidate, Err: err}
	}

	now := s.opts.Now()
	cutoff := rng.Cutoff(now)
	log := s.log.With().Str("source", s.source.Name()).Str("recipient", recipient).Str("range", rng.String()).Logger()

	candidates, err := s.source.Search(ctx, model.Query{Recipient: recipient, Range: rng, Cutoff: cutoff})
	if err != nil {
		return nil, &Error{Phase: PhaseSearch, Err: err}
	}
	operator := s.operator(ctx, log)

	eligible := eligibility.Filter(candidates, recipient, cutoff, operator)
	res := aggregate.Aggregate(eligible, extract.Parse)

	report := &model.Report{
		ID:                uuid.NewString(),
		Source:            s.source.Name(),
		Recipient:         recipient,
		RangeToken:        rng.String(),
		Cutoff:            cutoff,
		GeneratedAt:       now,
		EmailsFound:       res.EmailsFound,
		EmailsWithMetrics: res.EmailsWithMetrics,
		Totals:            res.Totals,
		Derived:           res.Derived,
		Rows:              res.Rows,
	}
	log.Info().
		Int("candidates", len(candidates)).
		Int("emails_found", report.EmailsFound).
		Int("emails_with_metrics", report.EmailsWithMetrics).
		Msg("scan complete")

	s.persist(ctx, log, report, req.Range)
	return report, nil
}

func (s *Service) parseRange(token string) (daterange.Range, error) {
	if s.opts.LenientRange {
		return daterange.ParseLenient(token)
	}
	return daterange.Parse(token)
}

// operator resolves the operator address once per scan. A lookup failure
// degrades to the weaker sender heuristic.
func (s *Service) operator(ctx context.Context, log zerolog.Logger) string {
	if s.opts.Operator != "" {
		return s.opts.Operator
	}
	op, err := s.source.OperatorAddress(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("operator address unavailable; rejecting replies by sender instead")
		return ""
	}
	if op == "" {
		log.Debug().Msg("operator address unknown; rejecting replies by sender instead")
	}
	return op
}

// persist records the report and the inputs that produced it. Failures are
// logged; the report is still returned to the caller.
func (s *Service) persist(ctx context.Context, log zerolog.Logger, r *model.Report, rangeInput string) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveReport(ctx, r); err != nil {
		log.Warn().Err(err).Str("report_id", r.ID).Msg("save report failed")
	}
	if err := s.store.SetSetting(ctx, SettingLastRecipient, r.Recipient); err != nil {
		log.Warn().Err(err).Msg("remember recipient failed")
	}
	if err := s.store.SetSetting(ctx, SettingLastRange, rangeInput); err != nil {
		log.Warn().Err(err).Msg("remember range failed")
	}
}
