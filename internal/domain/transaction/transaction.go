package transaction

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidSource = errors.New("invalid transaction source")
)

// Type defines the accounting classification of a transaction
type Type string

const (
	TypeInvoice     Type = "invoice"
	TypePayment     Type = "payment"
	TypeFee         Type = "fee"
	TypeExpense     Type = "expense"
	TypeMaintenance Type = "maintenance"
	TypeAdjustment  Type = "adjustment"
	TypeDeposit     Type = "deposit"
	TypeWithdrawal  Type = "withdrawal"
)

// ParseType maps a raw type string onto the closed Type enum.
// Common free-text variants seen in bank exports are folded into
// their canonical type before the strict enum check.
func ParseType(raw string) (Type, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", ErrInvalidType
	}

	// Maintenance and repair wording is folded into expense, matching
	// how the ledger schema stores contractor costs.
	for _, kw := range []string{"maintenance", "repair", "contractor", "upkeep", "expense"} {
		if strings.Contains(normalized, kw) {
			return TypeExpense, nil
		}
	}

	switch normalized {
	case "payment_to_contractor", "contractor_payment", "service_payment", "cost", "expenditure":
		return TypeExpense, nil
	case "rent", "rental", "rental_payment", "parking", "owner_payment", "payment_to_beneficiary":
		return TypePayment, nil
	case "management_fee", "commission", "service_fee":
		return TypeFee, nil
	}

	t := Type(normalized)
	switch t {
	case TypeInvoice, TypePayment, TypeFee, TypeExpense, TypeMaintenance, TypeAdjustment, TypeDeposit, TypeWithdrawal:
		return t, nil
	}
	return "", ErrInvalidType
}

// Source identifies where a transaction record originated
type Source string

const (
	SourceHistoricalImport  Source = "historical_import"
	SourceSpreadsheetImport Source = "spreadsheet_import"
	SourceBankImport        Source = "bank_import"
	SourceManualEntry       Source = "manual_entry"
)

// ParseSource maps a raw source string onto the Source enum, falling back
// to historical_import for unrecognized values
func ParseSource(raw string) Source {
	s := Source(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case SourceHistoricalImport, SourceSpreadsheetImport, SourceBankImport, SourceManualEntry:
		return s
	}
	return SourceHistoricalImport
}

// PaymentSourceKind constrains the payment_source input column
type PaymentSourceKind string

const (
	PaymentSourceOldAccount PaymentSourceKind = "OLD_ACCOUNT"
	PaymentSourcePayProp    PaymentSourceKind = "PAYPROP"
	PaymentSourceBoth       PaymentSourceKind = "BOTH"
)

// ValidatePaymentSource checks a payment_source column value. Empty input
// is allowed, the column is optional.
func ValidatePaymentSource(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	switch PaymentSourceKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case PaymentSourceOldAccount, PaymentSourcePayProp, PaymentSourceBoth:
		return nil
	}
	return errors.New("invalid payment source: " + raw + " (valid: OLD_ACCOUNT, PAYPROP, BOTH)")
}

// PayPropRefs carries the external PayProp identifiers attached to imported
// rows. They are passed through verbatim, never interpreted.
type PayPropRefs struct {
	TransactionID string `json:"payprop_transaction_id,omitempty"`
	PropertyID    string `json:"payprop_property_id,omitempty"`
	TenantID      string `json:"payprop_tenant_id,omitempty"`
	BeneficiaryID string `json:"payprop_beneficiary_id,omitempty"`
	CategoryID    string `json:"payprop_category_id,omitempty"`
	BatchID       string `json:"payprop_batch_id,omitempty"`
}

// StoredTransaction is a committed historical transaction record.
// Amount is sign-significant: negative values are outflows.
type StoredTransaction struct {
	ID               uuid.UUID       `json:"id"`
	TransactionDate  time.Time       `json:"transaction_date"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	Type             Type            `json:"transaction_type"`
	Category         string          `json:"category,omitempty"`
	Subcategory      string          `json:"subcategory,omitempty"`
	BankReference    string          `json:"bank_reference,omitempty"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	CounterpartyName string          `json:"counterparty_name,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	Source           Source          `json:"source"`
	PropertyID       *int64          `json:"property_id,omitempty"`
	CustomerID       *int64          `json:"customer_id,omitempty"`
	PaymentSourceID  *int64          `json:"payment_source_id,omitempty"`
	ImportBatchID    string          `json:"import_batch_id"`
	PayProp          PayPropRefs     `json:"payprop,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}
