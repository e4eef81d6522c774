// Package service projects a customer's records onto the sales pipeline.
package service

import (
	"context"
	"time"

	"hvac_crm_backend/platform/apperr"
	"hvac_crm_backend/platform/db"
	"hvac_crm_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultStoreTimeout = 5 * time.Second

type Store interface {
	CustomerExists(ctx context.Context, customerID uuid.UUID) (bool, error)
	ListLeads(ctx context.Context, customerID uuid.UUID) ([]LeadRef, error)
	ListQuotations(ctx context.Context, customerID uuid.UUID) ([]QuotationRef, error)
	ListProjects(ctx context.Context, customerID uuid.UUID) ([]ProjectRef, error)
	ListInvoices(ctx context.Context, customerID uuid.UUID) ([]InvoiceRef, error)
	ListPayments(ctx context.Context, customerID uuid.UUID) ([]PaymentRef, error)
}

type Service struct {
	store   Store
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func New(store Store, log *logger.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: store, log: log, timeout: timeout, now: time.Now}
}

// GetWorkflowStatus loads the customer's records concurrently and projects
// them onto the pipeline stages.
func (s *Service) GetWorkflowStatus(ctx context.Context, customerID uuid.UUID) (WorkflowStatus, error) {
	const op = "pipeline.GetWorkflowStatus"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.store.CustomerExists(ctx, customerID)
	if err != nil {
		return WorkflowStatus{}, s.storeError(op, err)
	}
	if !exists {
		return WorkflowStatus{}, apperr.NotFound("customer not found").WithOp(op)
	}

	var records Records
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		records.Leads, err = s.store.ListLeads(gctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		records.Quotations, err = s.store.ListQuotations(gctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		records.Projects, err = s.store.ListProjects(gctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		records.Invoices, err = s.store.ListInvoices(gctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		records.Payments, err = s.store.ListPayments(gctx, customerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return WorkflowStatus{}, s.storeError(op, err)
	}

	status := Project(records, s.now())
	status.CustomerID = customerID
	return status, nil
}

func (s *Service) storeError(op string, err error) error {
	s.log.DatabaseError(op, err)
	if db.IsTransient(err) {
		return apperr.Unavailable(err).WithOp(op)
	}
	return apperr.Wrap(apperr.KindInternal, "pipeline store error", err).WithOp(op)
}
