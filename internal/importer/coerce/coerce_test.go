package coerce

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propcrm-transaction-import/internal/domain/review"
	"github.com/propcrm-transaction-import/internal/domain/transaction"
)

func TestParseDate(t *testing.T) {
	expected := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "ISO", input: "2023-06-15", want: expected},
		{name: "UK slash", input: "15/06/2023", want: expected},
		{name: "UK dash", input: "15-06-2023", want: expected},
		{name: "ISO slash", input: "2023/06/15", want: expected},
		{name: "US slash when day out of range", input: "06/15/2023", want: expected},
		{name: "whitespace trimmed", input: "  2023-06-15  ", want: expected},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "June 15th", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v", got)
		})
	}
}

func TestParseDate_AmbiguousPrefersDayFirst(t *testing.T) {
	// 03/04/2023 parses with both day-first and month-first layouts;
	// the day-first layout comes earlier in the list and wins.
	got, err := ParseDate("03/04/2023")
	require.NoError(t, err)
	assert.Equal(t, time.April, got.Month())
	assert.Equal(t, 3, got.Day())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "795.00", want: "795"},
		{name: "pound symbol", input: "£1,250.50", want: "1250.5"},
		{name: "dollar symbol", input: "$99.99", want: "99.99"},
		{name: "negative outflow", input: "-1200.00", want: "-1200"},
		{name: "thousands separators", input: "1,000,000", want: "1000000"},
		{name: "sub-cent rounds half up", input: "10.005", want: "10.01"},
		{name: "sub-cent rounds down", input: "10.0041", want: "10"},
		{name: "empty", input: "", wantErr: true},
		{name: "symbols only", input: "£", wantErr: true},
		{name: "words", input: "ten pounds", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name            string
		category        string
		beneficiaryType string
		want            transaction.Type
	}{
		{name: "rent is payment", category: "Rent", want: transaction.TypePayment},
		{name: "parking is payment", category: "Parking Income", want: transaction.TypePayment},
		{name: "commission is fee", category: "Commission", want: transaction.TypeFee},
		{name: "management fee", category: "Management_Fee", want: transaction.TypeFee},
		{name: "maintenance is expense", category: "Maintenance", want: transaction.TypeExpense},
		{name: "contractor beneficiary", beneficiaryType: "contractor", want: transaction.TypeExpense},
		{name: "owner beneficiary", beneficiaryType: "beneficiary", want: transaction.TypePayment},
		{name: "no signal falls back", category: "Misc", want: transaction.TypeAdjustment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.category, tt.beneficiaryType))
		})
	}
}

func TestSynthesizeDescription(t *testing.T) {
	date := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "Smith Ltd - Rent - 2023-06-15", SynthesizeDescription("Smith Ltd", "Rent", date))
	assert.Equal(t, "Rent - 2023-06-15", SynthesizeDescription("", "Rent", date))
	assert.Equal(t, "Imported transaction - 2023-06-15", SynthesizeDescription("", "", date))
	assert.Equal(t, "Imported transaction", SynthesizeDescription("", "", time.Time{}))
}

func TestCoerce_FullRow(t *testing.T) {
	row := review.RawRow{
		LineNumber: 2,
		Fields: map[string]string{
			"transaction_date":  "15/06/2023",
			"amount":            "£795.00",
			"description":       "Monthly rent",
			"transaction_type":  "payment",
			"category":          "rent",
			"property_reference": "Flat 2, 12 High St",
			"payment_source":    "OLD_ACCOUNT",
		},
	}

	parsed, fieldErrors := Coerce(row)
	require.Empty(t, fieldErrors)
	assert.Equal(t, transaction.TypePayment, parsed.Type)
	assert.False(t, parsed.TypeInferred)
	assert.Equal(t, "Monthly rent", parsed.Description)
	assert.False(t, parsed.DescSynthesized)
	assert.True(t, parsed.Amount.Equal(decimal.RequireFromString("795")))
	assert.Equal(t, "Flat 2, 12 High St", parsed.PropertyRef)
}

func TestCoerce_InferenceAndSynthesis(t *testing.T) {
	row := review.RawRow{
		LineNumber: 3,
		Fields: map[string]string{
			"transaction_date":  "2023-06-15",
			"amount":            "120",
			"category":          "maintenance",
			"counterparty_name": "Ace Plumbing",
		},
	}

	parsed, fieldErrors := Coerce(row)
	require.Empty(t, fieldErrors)
	assert.Equal(t, transaction.TypeExpense, parsed.Type)
	assert.True(t, parsed.TypeInferred)
	assert.Equal(t, "Ace Plumbing - maintenance - 2023-06-15", parsed.Description)
	assert.True(t, parsed.DescSynthesized)
}

func TestCoerce_RequiredFieldErrors(t *testing.T) {
	row := review.RawRow{
		LineNumber: 4,
		Fields: map[string]string{
			"transaction_date": "not a date",
			"amount":           "",
			"description":      "broken row",
		},
	}

	_, fieldErrors := Coerce(row)
	require.Len(t, fieldErrors, 2)
	assert.Contains(t, fieldErrors[0], "invalid date format")
	assert.Contains(t, fieldErrors[1], "amount is required")
}

func TestCoerce_InvalidOptionalValues(t *testing.T) {
	row := review.RawRow{
		Fields: map[string]string{
			"transaction_date": "2023-06-15",
			"amount":           "10",
			"transaction_type": "lottery",
			"payment_source":   "CASH_UNDER_MATTRESS",
		},
	}

	_, fieldErrors := Coerce(row)
	require.Len(t, fieldErrors, 2)
	assert.Contains(t, fieldErrors[0], "invalid payment source")
	assert.Contains(t, fieldErrors[1], "invalid transaction_type")
}

func TestCoerce_PaypropPassthrough(t *testing.T) {
	row := review.RawRow{
		Fields: map[string]string{
			"transaction_date":       "2023-06-15",
			"amount":                 "10",
			"description":            "x",
			"payprop_transaction_id": "PP-TX-1",
			"payprop_property_id":    "PP-PROP-9",
		},
	}

	parsed, fieldErrors := Coerce(row)
	require.Empty(t, fieldErrors)
	assert.Equal(t, "PP-TX-1", parsed.PayProp.TransactionID)
	assert.Equal(t, "PP-PROP-9", parsed.PayProp.PropertyID)
}
