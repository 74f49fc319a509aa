package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/audit/domain"
	clientdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/client/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/clock"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/config"
	invoicedomain "github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/format"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/observability/metrics"
	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/providers/email"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/providers/pdf"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/providers/storage"
	requestdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db/option"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db/pagination"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/repository"
)

type Params struct {
	fx.In

	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Allocator invoicedomain.Allocator
	Ledger    paymentdomain.Ledger
	PDF       pdf.Provider
	Email     email.Provider
	Storage   storage.Provider
	AuditSvc  auditdomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	cfg       config.Config
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	allocator invoicedomain.Allocator
	ledger    paymentdomain.Ledger
	pdf       pdf.Provider
	email     email.Provider
	storage   storage.Provider
	repo      repository.Repository[invoicedomain.Invoice]
	auditSvc  auditdomain.Service
	metrics   *metrics.Metrics
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		cfg:       p.Config,
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		allocator: p.Allocator,
		ledger:    p.Ledger,
		pdf:       p.PDF,
		email:     p.Email,
		storage:   p.Storage,
		repo:      repository.ProvideStore[invoicedomain.Invoice](p.DB),
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
	}
}

// Prepare builds the invoice for a settled payment, or a draft against a
// request's approved final cost when no payment is named. Calling it again
// for the same payment returns the invoice already on file, settling it if
// the payment confirmed since. Rendering and delivery failures never lose
// the invoice row; the document can be re-rendered and re-sent later.
func (s *Service) Prepare(ctx context.Context, req invoicedomain.PrepareInvoiceRequest) (*invoicedomain.Invoice, error) {
	var payment *paymentdomain.Payment
	requestID := req.RequestID

	if req.PaymentID != nil {
		var err error
		payment, err = s.ledger.GetByID(ctx, *req.PaymentID)
		if err != nil {
			if errors.Is(err, paymentdomain.ErrNotFound) {
				return nil, invoicedomain.ErrPaymentNotFound
			}
			return nil, err
		}
		if payment.Status != paymentdomain.StatusConfirmed && payment.Status != paymentdomain.StatusRefunded {
			return nil, invoicedomain.ErrPaymentNotFinal
		}
		if requestID != 0 && requestID != payment.RequestID {
			return nil, invoicedomain.ErrPaymentNotFound
		}
		requestID = payment.RequestID

		existing, err := s.repo.FindOne(ctx, &invoicedomain.Invoice{PaymentID: req.PaymentID})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			// A replay after a late confirmation still settles the row.
			if payment.Status == paymentdomain.StatusConfirmed &&
				existing.Status != invoicedomain.StatusPaid &&
				existing.Status != invoicedomain.StatusCancelled {
				if err := s.markPaid(ctx, existing, payment); err != nil {
					return nil, err
				}
			}
			return existing, nil
		}
	}

	request, client, err := s.loadBillingParties(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var subtotal int64
	currency := request.Currency
	if payment != nil {
		subtotal = payment.Amount
		currency = payment.Currency
	} else {
		if request.FinalCost == nil || *request.FinalCost <= 0 {
			return nil, invoicedomain.ErrNoBillableAmount
		}
		subtotal = *request.FinalCost
	}

	now := s.clock.Now()
	sequence, err := s.allocator.Allocate(ctx, now.Year())
	if err != nil {
		return nil, err
	}
	number := format.FormatInvoiceNumber(s.cfg.InvoicePrefix, now.Year(), sequence)

	taxAmount := subtotal * s.cfg.InvoiceTaxRate / 10000
	total := subtotal + taxAmount

	invoice := invoicedomain.Invoice{
		ID:        s.genID.Generate(),
		Number:    number,
		PaymentID: req.PaymentID,
		RequestID: request.ID,
		ClientID:  client.ID,
		Status:    invoicedomain.StatusDraft,
		Currency:  currency,
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     total,
		IssuedAt:  now,
		DueAt:     now.AddDate(0, 0, s.cfg.InvoiceDueDays),
		CreatedAt: now,
		UpdatedAt: now,
	}

	item := invoicedomain.InvoiceItem{
		ID:          s.genID.Generate(),
		InvoiceID:   invoice.ID,
		Description: lineDescription(payment, request),
		Quantity:    1,
		UnitAmount:  subtotal,
		Amount:      subtotal,
		CreatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		if req.PaymentID != nil && db.IsDuplicateKeyErr(err) {
			return nil, invoicedomain.ErrAlreadyInvoiced
		}
		return nil, err
	}
	invoice.Items = []invoicedomain.InvoiceItem{item}

	if payment != nil && payment.Status == paymentdomain.StatusConfirmed {
		if err := s.markPaid(ctx, &invoice, payment); err != nil {
			return nil, err
		}
	}

	s.metrics.RecordInvoiceIssued(ctx, string(invoice.Status))
	s.log.Info("invoice prepared",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("request_id", request.ID.String()))

	metadata := map[string]any{
		"number":     invoice.Number,
		"request_id": request.ID.String(),
		"total":      total,
	}
	if payment != nil {
		metadata["payment_id"] = payment.ID.String()
	}
	targetID := invoice.ID.String()
	_ = s.auditSvc.Record(ctx, "system", "invoice.prepared", "invoice", &targetID, metadata)

	document := s.render(ctx, &invoice, request, client)
	if req.AutoSend {
		s.deliver(ctx, &invoice, client, document)
	}
	return &invoice, nil
}

// markPaid settles the stored row. The paid timestamp is the payment's
// confirmation time, so the books match the ledger.
func (s *Service) markPaid(ctx context.Context, invoice *invoicedomain.Invoice, payment *paymentdomain.Payment) error {
	now := s.clock.Now()
	paidAt := now
	if payment.ConfirmedAt != nil {
		paidAt = *payment.ConfirmedAt
	}
	if err := s.repo.Update(ctx, invoice.ID.String(), map[string]any{
		"status":     invoicedomain.StatusPaid,
		"paid_at":    paidAt,
		"updated_at": now,
	}); err != nil {
		return err
	}
	invoice.Status = invoicedomain.StatusPaid
	invoice.PaidAt = &paidAt
	invoice.UpdatedAt = now
	return nil
}

// Rerender regenerates and re-archives the document for an existing invoice.
func (s *Service) Rerender(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	request, client, err := s.loadBillingParties(ctx, invoice.RequestID)
	if err != nil {
		return nil, err
	}

	if doc := s.render(ctx, invoice, request, client); doc == nil {
		return nil, invoicedomain.ErrNotRendered
	}
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicedomain.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("number = ?", strings.TrimSpace(number)).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicedomain.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (*invoicedomain.ListInvoiceResponse, error) {
	filter := &invoicedomain.Invoice{}
	if req.ClientID != nil {
		filter.ClientID = *req.ClientID
	}
	if req.RequestID != nil {
		filter.RequestID = *req.RequestID
	}
	if req.Status != nil {
		filter.Status = *req.Status
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 25
	}

	opts := []option.QueryOption{
		option.WithOrder("created_at DESC, id DESC"),
		option.WithLimit(limit + 1),
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, invoicedomain.ErrInvalidPageToken
		}
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "id",
			Operator: option.LT,
			Value:    cursor.ID,
		}))
	}

	rows, err := s.repo.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	rows, pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(row *invoicedomain.Invoice) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: row.ID.String()})
		return token
	})

	invoices := make([]invoicedomain.Invoice, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		invoices = append(invoices, *row)
	}

	return &invoicedomain.ListInvoiceResponse{Invoices: invoices, PageInfo: pageInfo}, nil
}

func (s *Service) Send(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == invoicedomain.StatusCancelled {
		return nil, invoicedomain.ErrInvalidStatus
	}

	request, client, err := s.loadBillingParties(ctx, invoice.RequestID)
	if err != nil {
		return nil, err
	}

	document := s.render(ctx, invoice, request, client)
	s.deliver(ctx, invoice, client, document)
	return invoice, nil
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID, actor string) (*invoicedomain.Invoice, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == invoicedomain.StatusCancelled {
		return invoice, nil
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, id.String(), map[string]any{
		"status":     invoicedomain.StatusCancelled,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	invoice.Status = invoicedomain.StatusCancelled
	invoice.UpdatedAt = now

	targetID := id.String()
	_ = s.auditSvc.Record(ctx, actor, "invoice.cancelled", "invoice", &targetID, map[string]any{
		"number": invoice.Number,
	})
	return invoice, nil
}

// MarkOverdue flips sent invoices past their due date to overdue.
func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("status = ? AND due_at <= ?", invoicedomain.StatusSent, now).
		Updates(map[string]any{
			"status":     invoicedomain.StatusOverdue,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *Service) CountOverdueCandidates(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("status = ? AND due_at <= ?", invoicedomain.StatusSent, now).
		Count(&count).Error
	return count, err
}

func (s *Service) loadBillingParties(ctx context.Context, requestID snowflake.ID) (*requestdomain.ServiceRequest, *clientdomain.Client, error) {
	var request requestdomain.ServiceRequest
	err := s.db.WithContext(ctx).Where("id = ?", requestID).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, requestdomain.ErrNotFound
		}
		return nil, nil, err
	}

	var client clientdomain.Client
	err = s.db.WithContext(ctx).Where("id = ?", request.ClientID).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, requestdomain.ErrClientNotFound
		}
		return nil, nil, err
	}
	return &request, &client, nil
}

// render produces the PDF and archives it. A storage failure only costs
// the archive copy; the rendered bytes are still returned for delivery.
func (s *Service) render(ctx context.Context, invoice *invoicedomain.Invoice, request *requestdomain.ServiceRequest, client *clientdomain.Client) []byte {
	reader, err := s.pdf.GenerateInvoice(ctx, s.documentData(invoice, request, client))
	if err != nil || reader == nil {
		s.log.Error("invoice rendering failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
		return nil
	}
	document, err := io.ReadAll(reader)
	if err != nil {
		s.log.Error("invoice rendering failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
		return nil
	}

	key := fmt.Sprintf("invoices/%d/%s.pdf", invoice.IssuedAt.Year(), invoice.Number)
	url, err := s.storage.Put(ctx, key, bytes.NewReader(document), "application/pdf")
	if err != nil {
		s.log.Warn("invoice archive failed, document not stored",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("key", key),
			zap.Error(err))
		return document
	}
	if url == "" {
		return document
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, invoice.ID.String(), map[string]any{
		"document_url": url,
		"updated_at":   now,
	}); err != nil {
		s.log.Warn("failed to record document url",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
		return document
	}
	invoice.DocumentURL = &url
	invoice.UpdatedAt = now
	return document
}

// deliver emails the invoice. Delivery failure is logged and the invoice
// stays in its current status so a later Send can retry.
func (s *Service) deliver(ctx context.Context, invoice *invoicedomain.Invoice, client *clientdomain.Client, document []byte) {
	subject := fmt.Sprintf("Invoice %s from %s", invoice.Number, s.cfg.AppName)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your invoice <strong>%s</strong> for %s is attached.</p>",
		client.Name, invoice.Number, formatAmount(invoice.Total, invoice.Currency),
	)

	var attachments []email.Attachment
	if len(document) > 0 {
		attachments = append(attachments, email.Attachment{
			Filename:    invoice.Number + ".pdf",
			ContentType: "application/pdf",
			Body:        bytes.NewReader(document),
		})
	}

	if err := s.email.Send(ctx, []string{client.Email}, subject, body, attachments...); err != nil {
		s.log.Error("invoice delivery failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("to", client.Email),
			zap.Error(err))
		return
	}

	now := s.clock.Now()
	updates := map[string]any{
		"sent_at":    now,
		"updated_at": now,
	}
	if invoice.Status == invoicedomain.StatusDraft {
		updates["status"] = invoicedomain.StatusSent
	}
	if err := s.repo.Update(ctx, invoice.ID.String(), updates); err != nil {
		s.log.Warn("failed to record invoice delivery",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
		return
	}
	invoice.SentAt = &now
	if invoice.Status == invoicedomain.StatusDraft {
		invoice.Status = invoicedomain.StatusSent
	}
	invoice.UpdatedAt = now
}

func (s *Service) documentData(invoice *invoicedomain.Invoice, request *requestdomain.ServiceRequest, client *clientdomain.Client) pdf.InvoiceData {
	items := make([]pdf.InvoiceItem, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		items = append(items, pdf.InvoiceItem{
			Description: item.Description,
			Qty:         item.Quantity,
			UnitPrice:   formatAmount(item.UnitAmount, invoice.Currency),
			Amount:      formatAmount(item.Amount, invoice.Currency),
		})
	}

	return pdf.InvoiceData{
		OrgName:       s.cfg.AppName,
		OrgEmail:      s.cfg.Email.SMTPFrom,
		InvoiceNumber: invoice.Number,
		IssueDate:     invoice.IssuedAt.Format("Jan 2, 2006"),
		DueDate:       invoice.DueAt.Format("Jan 2, 2006"),
		Status:        string(invoice.Status),
		BillToName:    client.Name,
		BillToEmail:   client.Email,
		BillToCompany: client.Company,
		RequestTitle:  request.Title,
		Items:         items,
		Subtotal:      formatAmount(invoice.Subtotal, invoice.Currency),
		Tax:           formatAmount(invoice.TaxAmount, invoice.Currency),
		Total:         formatAmount(invoice.Total, invoice.Currency),
	}
}

func lineDescription(payment *paymentdomain.Payment, request *requestdomain.ServiceRequest) string {
	if payment == nil {
		return fmt.Sprintf("Agreed cost for %s", request.Title)
	}
	switch payment.Type {
	case paymentdomain.TypeSplitUpfront:
		return fmt.Sprintf("Upfront deposit for %s", request.Title)
	default:
		return fmt.Sprintf("Full payment for %s", request.Title)
	}
}

// formatAmount renders minor units as a decimal string, e.g. 125000 USD
// becomes "1250.00 USD".
func formatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}
