package profiles

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Lead is the applicant record mirrored from the CRM.
type Lead struct {
	ID              int64     `json:"id"`
	CRMID           string    `json:"crmId"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone,omitempty"`
	DocumentNumber  string    `json:"documentNumber"`
	FinancingAmount float64   `json:"financingAmount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CreditProfile holds the statements and payment capacity of a lead.
type CreditProfile struct {
	ID                 int64     `json:"id"`
	LeadID             int64     `json:"leadId"`
	FirstStatementKey  string    `json:"firstStatementKey"`
	SecondStatementKey string    `json:"secondStatementKey"`
	ThirdStatementKey  string    `json:"thirdStatementKey"`
	MinPayment         *float64  `json:"minPayment,omitempty"`
	MaxPayment         *float64  `json:"maxPayment,omitempty"`
	MaxAdjustedPayment *float64  `json:"maxAdjustedPayment,omitempty"`
	MaximumCredit      *float64  `json:"maximumCredit,omitempty"`
	NeedsReview        bool      `json:"needsReview"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Underwriting is the computed payment capacity written into a profile.
type Underwriting struct {
	MinPayment         float64
	MaxPayment         float64
	MaxAdjustedPayment float64
	MaximumCredit      float64
	NeedsReview        bool
	UpdatedAt          time.Time
}
