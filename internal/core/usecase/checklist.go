package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"caseflow/internal/core/domain"
	"caseflow/internal/core/ports"
)

// passportTypeName is matched exactly against document-type names for the
// auto-import shortcut.
const passportTypeName = "Passport"

// ChecklistBuilder generates a new application's document checklist from the
// product's required/optional document-type lists. A "Passport" type is
// skipped, and considered pre-satisfied, when the customer profile already
// holds both a passport file and a passport number.
type ChecklistBuilder struct {
	backend ports.CaseBackend
	logger  *slog.Logger
}

func NewChecklistBuilder(backend ports.CaseBackend, logger *slog.Logger) *ChecklistBuilder {
	return &ChecklistBuilder{backend: backend, logger: logger}
}

func (b *ChecklistBuilder) Build(ctx context.Context, productID, customerID string) (*domain.Checklist, error) {
	template, err := b.backend.ProductDocuments(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product documents: %w", err)
	}
	customer, err := b.backend.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}

	hasStoredPassport := customer.PassportFileLink != "" && customer.PassportNumber != ""

	checklist := &domain.Checklist{Documents: []domain.Document{}}
	appendTypes := func(types []domain.DocType, required bool) {
		for _, dt := range types {
			if dt.Name == passportTypeName && hasStoredPassport {
				checklist.PassportAutoImported = true
				continue
			}
			checklist.Documents = append(checklist.Documents, domain.Document{
				ID:       uuid.NewString(),
				DocType:  dt,
				Required: required,
			})
		}
	}
	appendTypes(template.RequiredDocuments, true)
	appendTypes(template.OptionalDocuments, false)

	if checklist.PassportAutoImported {
		b.logger.Info("passport pre-satisfied from customer profile",
			"customer_id", customerID,
			"product_id", productID,
		)
	}
	return checklist, nil
}
