// Package service orchestrates the registration write path: authenticate the
// caller, consult the duplicate matcher, persist through the record store.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"rollcall/internal/audit"
	"rollcall/internal/registration/dedupe"
	regmetrics "rollcall/internal/registration/metrics"
	"rollcall/internal/registration/models"
	"rollcall/internal/registration/store"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

// ProofVerifier validates an opaque proof string and returns the principal it
// asserts. Failure means "untrusted caller", never a system fault.
type ProofVerifier interface {
	Verify(proof string) (models.Principal, error)
}

// Config collapses the behavioral switches the deployment variants differ on.
type Config struct {
	// StrictAuth hard-rejects submissions whose proof fails verification
	// instead of storing them as unverified.
	StrictAuth bool
	// AllowUpdate exposes the update operation to the transport layer.
	AllowUpdate bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAudit(publisher *audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service is the single registration service; deployment variants configure
// it through Config instead of forking code paths.
type Service struct {
	records  store.RecordStore
	verifier ProofVerifier
	cfg      Config
	logger   *slog.Logger
	audit    *audit.Publisher
	metrics  *regmetrics.Metrics
}

func New(records store.RecordStore, verifier ProofVerifier, cfg Config, opts ...Option) *Service {
	s := &Service{
		records:  records,
		verifier: verifier,
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate resolves a proof into an explicit outcome. It never fails:
// a bad proof yields the unverified outcome, and the attempt is recorded.
// The proof itself is never logged.
func (s *Service) Authenticate(ctx context.Context, proof string) models.AuthOutcome {
	principal, err := s.verifier.Verify(proof)
	if err != nil {
		if s.metrics != nil {
			s.metrics.VerificationFailures.Inc()
		}
		s.logger.WarnContext(ctx, "proof verification failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.emit(ctx, audit.Event{
			Actor:   models.UnverifiedPrincipal,
			Action:  audit.ActionProofRejected,
			Outcome: "unverified",
			Reason:  err.Error(),
		})
		return models.AuthOutcome{}
	}
	return models.AuthOutcome{Principal: principal, Verified: true}
}

// Submit stores a new record. Under StrictAuth an unverified caller is
// rejected with a forbidden error; otherwise the record is stamped with the
// unverified sentinel and accepted.
func (s *Service) Submit(ctx context.Context, proof string, sub models.Submission) (*models.Receipt, error) {
	outcome := s.Authenticate(ctx, proof)
	if s.cfg.StrictAuth && !outcome.Verified {
		return nil, dErrors.New(dErrors.CodeForbidden, "submission requires a verified proof")
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.records.Insert(ctx, sub, outcome.ActorID())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store record")
	}

	if s.metrics != nil {
		s.metrics.RecordsCreated.Inc()
	}
	s.emit(ctx, audit.Event{
		Actor:    outcome.ActorID(),
		Action:   audit.ActionRecordSubmitted,
		RecordID: rec.ID,
		Outcome:  outcomeLabel(outcome),
	})
	s.logger.InfoContext(ctx, "record created",
		"record_id", rec.ID,
		"verified", outcome.Verified,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.Receipt{ID: rec.ID, CreatedAt: rec.CreatedAt}, nil
}

// CheckDuplicates runs a duplicate scan. Read-only and low-sensitivity, so no
// authentication is required.
func (s *Service) CheckDuplicates(ctx context.Context, q dedupe.Query) (*models.DuplicateResult, error) {
	candidates, err := dedupe.FindCandidates(ctx, q, s.records)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "duplicate scan failed")
	}

	if s.metrics != nil {
		s.metrics.DuplicateChecks.Inc()
		if len(candidates) > 0 {
			s.metrics.DuplicateCandidatesHit.Inc()
		}
	}
	if candidates == nil {
		candidates = []*models.Record{}
	}
	return &models.DuplicateResult{Found: len(candidates) > 0, Candidates: candidates}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Record, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, wrapRecordErr(err)
	}
	return rec, nil
}

// List returns all records, optionally filtered by a case-insensitive
// substring match over the full name.
func (s *Service) List(ctx context.Context, query string) ([]*models.Record, error) {
	records, err := s.records.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		if records == nil {
			records = []*models.Record{}
		}
		return records, nil
	}

	out := []*models.Record{}
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.FullName), query) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id int64, upd models.Update) (*models.Record, error) {
	if !s.cfg.AllowUpdate {
		return nil, dErrors.New(dErrors.CodeForbidden, "updates are disabled")
	}

	rec, err := s.records.Update(ctx, id, upd)
	if err != nil {
		return nil, wrapRecordErr(err)
	}
	return rec, nil
}

// Delete removes a record. Absence is not an error; the operation is
// idempotent by contract.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existed, err := s.records.Delete(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete record")
	}
	if existed {
		if s.metrics != nil {
			s.metrics.RecordsDeleted.Inc()
		}
		s.emit(ctx, audit.Event{
			Action:   audit.ActionRecordDeleted,
			RecordID: id,
			Outcome:  "deleted",
		})
	}
	return nil
}

// emit records an audit event. The trail is advisory, so a sink failure is
// logged and swallowed rather than failing the business operation.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to append audit event", "error", err)
	}
}

func wrapRecordErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "record not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "record store failure")
}

func outcomeLabel(outcome models.AuthOutcome) string {
	if outcome.Verified {
		return "verified"
	}
	return "unverified"
}
