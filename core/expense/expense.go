package expense

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/developer0000009-hue/schoolportal/core"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
	StatusPaid     Status = "Paid"
)

var (
	ErrNotFound      = errors.New("expense not found")
	ErrUnknownStatus = errors.New("unknown expense status")
)

// Statuses lists the known statuses.
func Statuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusRejected, StatusPaid}
}

// ParseStatus returns the known status matching s (case insensitive).
func ParseStatus(s string) (Status, error) {
	s = core.CleanString(s)
	for _, st := range Statuses() {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
}

type (
	Expense struct {
		ID          string          `json:"id"`
		Title       string          `json:"title"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Status      Status          `json:"status"`
		InvoicePath null.String     `json:"invoice_path"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	// Listing is an expense with the public URL of its invoice.
	Listing struct {
		Expense
		InvoiceURL string `json:"invoice_url,omitempty"`
	}

	NewExpense struct {
		Title    string          `json:"title" validate:"required,max=200"`
		Category string          `json:"category" validate:"required,max=80"`
		Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
	}

	// Invoice is an uploaded invoice file.
	Invoice struct {
		Filename    string
		ContentType string
		Content     io.Reader
	}

	Repository interface {
		List(ctx context.Context) ([]Expense, error)
		Create(ctx context.Context, e Expense) (Expense, error)
		UpdateStatus(ctx context.Context, id string, status Status) error
	}

	Service struct {
		repo     Repository
		invoices core.Bucket
		validate *validator.Validate
	}
)

func NewService(repo Repository, invoices core.Bucket, validate *validator.Validate) *Service {
	return &Service{repo: repo, invoices: invoices, validate: validate}
}

func (svc *Service) List(ctx context.Context) ([]Listing, error) {
	expenses, err := svc.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing expenses")
	}
	list := make([]Listing, 0, len(expenses))
	for _, e := range expenses {
		l := Listing{Expense: e}
		if e.InvoicePath.Valid && e.InvoicePath.String != "" {
			l.InvoiceURL = svc.invoices.PublicURL(e.InvoicePath.String)
		}
		list = append(list, l)
	}
	return list, nil
}

// Create records a Pending expense. The invoice, when given, is uploaded first and referenced
// by its bucket path.
func (svc *Service) Create(ctx context.Context, in NewExpense, invoice *Invoice) (Listing, error) {
	in.Title = core.CleanString(in.Title)
	in.Category = core.CleanString(in.Category)
	if err := svc.validate.Struct(in); err != nil {
		return Listing{}, err
	}

	e := Expense{Title: in.Title, Category: in.Category, Amount: in.Amount, Status: StatusPending}
	if invoice != nil {
		p := InvoicePath(invoice.Filename)
		if err := svc.invoices.Upload(ctx, p, invoice.Content, invoice.ContentType); err != nil {
			return Listing{}, errors.Wrap(err, "uploading invoice")
		}
		e.InvoicePath = null.StringFrom(p)
	}

	created, err := svc.repo.Create(ctx, e)
	if err != nil {
		return Listing{}, errors.Wrap(err, "creating expense")
	}
	l := Listing{Expense: created}
	if created.InvoicePath.Valid {
		l.InvoiceURL = svc.invoices.PublicURL(created.InvoicePath.String)
	}
	return l, nil
}

// UpdateStatus only accepts known statuses.
func (svc *Service) UpdateStatus(ctx context.Context, id, status string) error {
	st, err := ParseStatus(status)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "status", Error: ErrUnknownStatus.Error()})
	}
	return errors.Wrap(svc.repo.UpdateStatus(ctx, id, st), "updating expense status")
}

// InvoicePath is a unique bucket path keeping the file extension: "2025/03/<uuid>.pdf".
func InvoicePath(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	now := core.NowFunc().UTC()
	return now.Format("2006/01/") + uuid.NewString() + ext
}
