package match

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propcrm-transaction-import/internal/domain/directory"
)

var testOpts = Options{FuzzyThreshold: 0.55, MaxCandidates: 5}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePropertyReader struct {
	properties []*directory.Property
}

func (f *fakePropertyReader) GetByPaypropID(_ context.Context, paypropID string) (*directory.Property, error) {
	for _, p := range f.properties {
		if p.PaypropID != "" && p.PaypropID == paypropID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePropertyReader) ListByNameIgnoreCase(_ context.Context, name string) ([]*directory.Property, error) {
	var matches []*directory.Property
	for _, p := range f.properties {
		if strings.EqualFold(p.PropertyName, name) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func (f *fakePropertyReader) ListAll(_ context.Context) ([]*directory.Property, error) {
	return f.properties, nil
}

func (f *fakePropertyReader) Exists(_ context.Context, id int64) (bool, error) {
	for _, p := range f.properties {
		if p.ID == id {
			return true, nil
		}
	}
	return false, nil
}

type fakeCustomerReader struct {
	customers []*directory.Customer
}

func (f *fakeCustomerReader) GetByPaypropID(_ context.Context, paypropID string) (*directory.Customer, error) {
	for _, c := range f.customers {
		if c.PaypropID != "" && c.PaypropID == paypropID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCustomerReader) GetByEmail(_ context.Context, email string) (*directory.Customer, error) {
	for _, c := range f.customers {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCustomerReader) ListAll(_ context.Context) ([]*directory.Customer, error) {
	return f.customers, nil
}

func (f *fakeCustomerReader) Exists(_ context.Context, id int64) (bool, error) {
	for _, c := range f.customers {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("flat 2", "flat 2"))
	assert.Equal(t, 0.0, similarity("", "abc"))
	assert.InDelta(t, 0.8, similarity("house", "mouse"), 0.001)
	assert.Less(t, similarity("flat 2", "warehouse nine"), 0.3)
}

func TestFuzzyScore_Containment(t *testing.T) {
	assert.Equal(t, containmentConfidence, fuzzyScore("high st", "12 high st, oldtown"))
	assert.Equal(t, containmentConfidence, fuzzyScore("12 high st extra words", "12 high st"))
	assert.Equal(t, 1.0, fuzzyScore("12 high st", "12 high st"))
}

func TestPropertyResolver_ExactTiers(t *testing.T) {
	reader := &fakePropertyReader{properties: []*directory.Property{
		{ID: 1, PropertyName: "Flat 2, 12 High Street", Postcode: "AB1 2CD", PaypropID: "PP-100"},
		{ID: 2, PropertyName: "Flat 3, 12 High Street", Postcode: "AB1 2CD"},
	}}
	resolver := NewPropertyResolver(reader, testOpts, testLogger())

	got, err := resolver.FindCandidates(context.Background(), "PP-100")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].EntityID)
	assert.Equal(t, directory.MatchReasonExactID, got[0].Reason)
	assert.True(t, got[0].Exact())

	got, err = resolver.FindCandidates(context.Background(), "flat 3, 12 high street")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].EntityID)
	assert.Equal(t, directory.MatchReasonExactName, got[0].Reason)
	assert.Equal(t, 1.0, got[0].Confidence)
}

func TestPropertyResolver_DuplicateExactNamesStayAmbiguous(t *testing.T) {
	resolver := NewPropertyResolver(&fakePropertyReader{properties: []*directory.Property{
		{ID: 1, PropertyName: "The Old Mill", Postcode: "AB1 2CD"},
		{ID: 2, PropertyName: "The Old Mill", Postcode: "ZZ9 9ZZ"},
	}}, testOpts, testLogger())

	got, err := resolver.FindCandidates(context.Background(), "The Old Mill")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, 1.0, got[1].Confidence)
	assert.Equal(t, directory.MatchReasonExactName, got[0].Reason)
	assert.Equal(t, int64(1), got[0].EntityID)
}

func TestPropertyResolver_FuzzyRankedAndCapped(t *testing.T) {
	properties := []*directory.Property{
		{ID: 1, PropertyName: "Flat 2, 12 High Street"},
		{ID: 2, PropertyName: "Flat 2, 14 High Street"},
		{ID: 3, PropertyName: "Riverside Warehouse"},
	}
	resolver := NewPropertyResolver(&fakePropertyReader{properties: properties}, testOpts, testLogger())

	got, err := resolver.FindCandidates(context.Background(), "Flat 2, 12 High St")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, int64(1), got[0].EntityID)
	for _, c := range got {
		assert.NotEqual(t, int64(3), c.EntityID)
		assert.False(t, c.Exact())
		assert.GreaterOrEqual(t, c.Confidence, testOpts.FuzzyThreshold)
	}

	capped := NewPropertyResolver(&fakePropertyReader{properties: properties}, Options{FuzzyThreshold: 0.55, MaxCandidates: 1}, testLogger())
	got, err = capped.FindCandidates(context.Background(), "Flat 2, 12 High St")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPropertyResolver_PostcodeDisambiguates(t *testing.T) {
	resolver := NewPropertyResolver(&fakePropertyReader{properties: []*directory.Property{
		{ID: 1, PropertyName: "Flat 2, 12 High Street", Postcode: "AB1 2CD"},
		{ID: 2, PropertyName: "Flat 2, 12 High Street North", Postcode: "ZZ9 9ZZ"},
	}}, testOpts, testLogger())

	got, err := resolver.FindCandidates(context.Background(), "Flat 2 High Street AB1 2CD")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, int64(1), got[0].EntityID)
}

func TestPropertyResolver_EmptyReference(t *testing.T) {
	resolver := NewPropertyResolver(&fakePropertyReader{}, testOpts, testLogger())

	got, err := resolver.FindCandidates(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCustomerResolver_EmailIsExact(t *testing.T) {
	resolver := NewCustomerResolver(&fakeCustomerReader{customers: []*directory.Customer{
		{ID: 7, FirstName: "Jane", LastName: "Smith", Email: "jane@example.com"},
	}}, testOpts, testLogger())

	got, err := resolver.FindCandidates(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].EntityID)
	assert.True(t, got[0].Exact())
	assert.Contains(t, got[0].DisplayLabel, "jane@example.com")
}

func TestCustomerResolver_SingleExactNameWins(t *testing.T) {
	resolver := NewCustomerResolver(&fakeCustomerReader{customers: []*directory.Customer{
		{ID: 1, FirstName: "Jane", LastName: "Smith"},
		{ID: 2, FirstName: "Janet", LastName: "Smithson"},
	}}, testOpts, testLogger())

	got, err := resolver.FindCandidates(context.Background(), "Jane Smith")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].EntityID)
	assert.Equal(t, 1.0, got[0].Confidence)
}

func TestCustomerResolver_DuplicateExactNamesStayAmbiguous(t *testing.T) {
	resolver := NewCustomerResolver(&fakeCustomerReader{customers: []*directory.Customer{
		{ID: 1, FirstName: "John", LastName: "Brown"},
		{ID: 2, FirstName: "John", LastName: "Brown"},
	}}, testOpts, testLogger())

	got, err := resolver.FindCandidates(context.Background(), "John Brown")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, 1.0, got[1].Confidence)
}

func TestCustomerResolver_FuzzySurname(t *testing.T) {
	resolver := NewCustomerResolver(&fakeCustomerReader{customers: []*directory.Customer{
		{ID: 1, FirstName: "Jane", LastName: "Smith"},
		{ID: 2, FirstName: "Arnold", LastName: "Zucker"},
	}}, testOpts, testLogger())

	got, err := resolver.FindCandidates(context.Background(), "Jane Smyth")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].EntityID)
	assert.Equal(t, directory.MatchReasonFuzzyName, got[0].Reason)
	assert.Less(t, got[0].Confidence, 1.0)
}
