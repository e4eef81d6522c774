package validation

import (
	"context"
	"errors"
	"time"

	"hvac_crm_backend/platform/apperr"
	"hvac_crm_backend/platform/db"
	"hvac_crm_backend/platform/logger"
	"hvac_crm_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultStoreTimeout = 5 * time.Second

// Store resolves the records rules depend on. Both methods return
// ErrNotFound when nothing matches.
type Store interface {
	GetQuotation(ctx context.Context, id uuid.UUID) (Quotation, error)
	GetProjectByQuotation(ctx context.Context, quotationID uuid.UUID) (Project, error)
}

type Engine struct {
	store   Store
	rules   []Rule
	metrics *metrics.Metrics
	log     *logger.Logger
	timeout time.Duration
}

func NewEngine(store Store, rules []Rule, m *metrics.Metrics, log *logger.Logger, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{store: store, rules: rules, metrics: m, log: log, timeout: timeout}
}

// Validate resolves the quotation and any existing project for it, then
// evaluates every rule. A failing rule is part of the Result; only store
// failures are returned as errors.
func (e *Engine) Validate(ctx context.Context, req Request) (Result, error) {
	const op = "projects.Validate"

	subject, err := e.resolve(ctx, req)
	if err != nil {
		e.metrics.RecordValidation("error")
		return Result{}, e.storeError(op, err)
	}

	result := Evaluate(e.rules, subject)
	if result.IsValid {
		e.metrics.RecordValidation("valid")
	} else {
		e.metrics.RecordValidation("invalid")
	}
	return result, nil
}

func (e *Engine) resolve(ctx context.Context, req Request) (Subject, error) {
	subject := Subject{Request: req}
	if req.QuotationID == nil {
		return subject, nil
	}
	quotationID := *req.QuotationID

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := e.store.GetQuotation(gctx, quotationID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		subject.Quotation = &q
		return nil
	})
	g.Go(func() error {
		p, err := e.store.GetProjectByQuotation(gctx, quotationID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		subject.Duplicate = &p
		return nil
	})

	if err := g.Wait(); err != nil {
		return Subject{}, err
	}
	return subject, nil
}

func (e *Engine) storeError(op string, err error) error {
	e.log.DatabaseError(op, err)
	if db.IsTransient(err) {
		return apperr.Unavailable(err).WithOp(op)
	}
	return apperr.Wrap(apperr.KindInternal, "project validation store error", err).WithOp(op)
}
