// Package directory defines the property, customer, and payment source
// records the importer matches free-text references against, together with
// the narrow read contracts the pipeline consumes.
package directory

import (
	"context"
	"strings"
)

// Property is a managed property as the resolver sees it
type Property struct {
	ID           int64  `json:"id"`
	PropertyName string `json:"property_name"`
	AddressLine1 string `json:"address_line1,omitempty"`
	Postcode     string `json:"postcode,omitempty"`
	PaypropID    string `json:"payprop_id,omitempty"`
}

// Customer is a tenant or beneficiary as the resolver sees it
type Customer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PaypropID string `json:"payprop_id,omitempty"`
}

// FullName joins first and last name the way candidate labels display them
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// PaymentSource is a configured source account transactions can be booked to
type PaymentSource struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MatchReason explains which tier produced a candidate
type MatchReason string

const (
	MatchReasonExactID   MatchReason = "exact-id"
	MatchReasonExactName MatchReason = "exact-name"
	MatchReasonFuzzyName MatchReason = "fuzzy-name"
	MatchReasonPostcode  MatchReason = "postcode"
)

// MatchCandidate is one ranked resolver result. Confidence is 0-1 with 1
// reserved for exact matches; only exact matches may satisfy a dimension
// without human selection.
type MatchCandidate struct {
	EntityID     int64       `json:"entity_id"`
	DisplayLabel string      `json:"display_label"`
	Confidence   float64     `json:"confidence"`
	Reason       MatchReason `json:"reason"`
}

// Exact reports whether this candidate alone can settle a dimension
func (m MatchCandidate) Exact() bool {
	return m.Reason == MatchReasonExactID || m.Reason == MatchReasonExactName
}

// PropertyDirectory is the resolver-facing contract the pipeline consumes
type PropertyDirectory interface {
	FindCandidates(ctx context.Context, text string) ([]MatchCandidate, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// CustomerDirectory is the customer counterpart of PropertyDirectory
type CustomerDirectory interface {
	FindCandidates(ctx context.Context, text string) ([]MatchCandidate, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// PaymentSourceDirectory validates operator-selected payment sources
type PaymentSourceDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// PropertyReader is the storage-level contract the property resolver is
// built on. Implementations live in the data layer.
type PropertyReader interface {
	GetByPaypropID(ctx context.Context, paypropID string) (*Property, error)
	ListByNameIgnoreCase(ctx context.Context, name string) ([]*Property, error)
	ListAll(ctx context.Context) ([]*Property, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// CustomerReader is the storage-level contract the customer resolver is
// built on
type CustomerReader interface {
	GetByPaypropID(ctx context.Context, paypropID string) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	ListAll(ctx context.Context) ([]*Customer, error)
	Exists(ctx context.Context, id int64) (bool, error)
}
