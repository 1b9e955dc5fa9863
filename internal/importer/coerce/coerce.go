// Package coerce converts the string fields of a RawRow into typed values.
// Failures accumulate per field instead of aborting the row; only the two
// required fields (transaction date and amount) are hard errors.
package coerce

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propcrm-transaction-import/internal/domain/review"
	"github.com/propcrm-transaction-import/internal/domain/transaction"
)

// dateFormats is tried in order; first match wins, no ambiguity resolution
// beyond ordering
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
}

// amountCleaner strips currency symbols and thousands separators before
// decimal parsing
var amountCleaner = strings.NewReplacer(",", "", "$", "", "£", "", "€", "")

// Coerce produces the typed projection of a raw row. The returned error
// slice holds human-readable messages for the required fields that failed;
// a non-empty slice means the row must enter ERROR status. Optional fields
// degrade silently.
func Coerce(row review.RawRow) (*review.ParsedFields, []string) {
	var fieldErrors []string

	parsed := &review.ParsedFields{
		Category:         row.Field("category"),
		Subcategory:      row.Field("subcategory"),
		BeneficiaryType:  row.Field("beneficiary_type"),
		PropertySource:   row.Field("property_source"),
		BankReference:    row.Field("bank_reference"),
		PaymentMethod:    row.Field("payment_method"),
		CounterpartyName: row.Field("counterparty_name"),
		Notes:            row.Field("notes"),
		PropertyRef:      row.Field("property_reference"),
		CustomerRef:      row.Field("customer_reference"),
		PaymentSource:    row.Field("payment_source"),
		PayProp: transaction.PayPropRefs{
			TransactionID: row.Field("payprop_transaction_id"),
			PropertyID:    row.Field("payprop_property_id"),
			TenantID:      row.Field("payprop_tenant_id"),
			BeneficiaryID: row.Field("payprop_beneficiary_id"),
			CategoryID:    row.Field("payprop_category_id"),
			BatchID:       row.Field("payprop_batch_id"),
		},
	}

	date, err := ParseDate(row.Field("transaction_date"))
	if err != nil {
		fieldErrors = append(fieldErrors, err.Error())
	} else {
		parsed.Date = date
	}

	amount, err := ParseAmount(row.Field("amount"))
	if err != nil {
		fieldErrors = append(fieldErrors, err.Error())
	} else {
		parsed.Amount = amount
	}

	if err := transaction.ValidatePaymentSource(parsed.PaymentSource); err != nil {
		fieldErrors = append(fieldErrors, err.Error())
	}

	// The explicit source column wins over the format default; the caller
	// fills the default in when the column is blank.
	if src := row.Field("source"); src != "" {
		parsed.Source = transaction.ParseSource(src)
	}

	// Transaction type: explicit value first, keyword inference second.
	// The inference is heuristic and the operator can override it at
	// confirmation, it is never silently final.
	typeStr := row.Field("transaction_type")
	if typeStr != "" {
		t, err := transaction.ParseType(typeStr)
		if err != nil {
			fieldErrors = append(fieldErrors, "invalid transaction_type: "+typeStr)
		} else {
			parsed.Type = t
		}
	} else {
		parsed.Type = InferType(parsed.Category, parsed.BeneficiaryType)
		parsed.TypeInferred = true
	}

	parsed.Description = row.Field("description")
	if parsed.Description == "" {
		parsed.Description = SynthesizeDescription(parsed.CounterpartyName, parsed.Category, parsed.Date)
		parsed.DescSynthesized = true
	}

	return parsed, fieldErrors
}

// ParseDate tries each supported layout in order
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &FieldError{Field: "transaction_date", Message: "transaction_date is required"}
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &FieldError{
		Field:   "transaction_date",
		Message: "invalid date format: " + raw + " (supported: yyyy-MM-dd, dd/MM/yyyy, MM/dd/yyyy, dd-MM-yyyy, yyyy/MM/dd)",
	}
}

// ParseAmount parses a signed decimal, tolerating currency symbols and
// thousands separators. Sign is preserved: outflows are negative. Amounts
// are normalized to two decimal places so the in-memory fingerprint and
// the stored column agree on sub-cent inputs.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(amountCleaner.Replace(raw))
	if cleaned == "" {
		return decimal.Decimal{}, &FieldError{Field: "amount", Message: "amount is required"}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, &FieldError{Field: "amount", Message: "invalid amount: " + raw}
	}
	return d.Round(2), nil
}

// InferType guesses a transaction type from category and beneficiary
// wording when the column is blank. Pure; no I/O.
func InferType(category, beneficiaryType string) transaction.Type {
	haystack := strings.ToLower(category + " " + beneficiaryType)

	switch {
	case strings.Contains(haystack, "rent"), strings.Contains(haystack, "parking"):
		return transaction.TypePayment
	case strings.Contains(haystack, "commission"), strings.Contains(haystack, "fee"):
		return transaction.TypeFee
	case strings.Contains(haystack, "maintenance"), strings.Contains(haystack, "repair"),
		strings.Contains(haystack, "contractor"), strings.Contains(haystack, "upkeep"),
		strings.Contains(haystack, "expense"):
		return transaction.TypeExpense
	case strings.Contains(haystack, "deposit"):
		return transaction.TypeDeposit
	case strings.Contains(haystack, "invoice"):
		return transaction.TypeInvoice
	case strings.Contains(haystack, "beneficiary"), strings.Contains(haystack, "owner"):
		return transaction.TypePayment
	}
	return transaction.TypeAdjustment
}

// SynthesizeDescription builds a readable description from whatever
// counterparty and category detail the row carries
func SynthesizeDescription(counterparty, category string, date time.Time) string {
	var parts []string
	if counterparty != "" {
		parts = append(parts, counterparty)
	}
	if category != "" {
		parts = append(parts, category)
	}
	if len(parts) == 0 {
		parts = append(parts, "Imported transaction")
	}
	if !date.IsZero() {
		parts = append(parts, date.Format("2006-01-02"))
	}
	return strings.Join(parts, " - ")
}

// FieldError describes a single unparsable required field
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}
