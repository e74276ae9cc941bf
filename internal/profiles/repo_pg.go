package profiles

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const leadColumns = `id, crm_id, name, phone, document_number, financing_amount, created_at, updated_at`

const profileColumns = `id, lead_id, first_statement_key, second_statement_key, third_statement_key,
       min_payment, max_payment, max_adjusted_payment, maximum_credit, needs_review, created_at, updated_at`

// GetLead returns a lead by ID.
func (r *PGRepo) GetLead(ctx context.Context, leadID int64) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 LIMIT 1`
	return scanLead(r.DB.QueryRowContext(ctx, query, leadID))
}

// GetLeadByCRMID returns a lead by its CRM identifier.
func (r *PGRepo) GetLeadByCRMID(ctx context.Context, crmID string) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE crm_id = $1 LIMIT 1`
	return scanLead(r.DB.QueryRowContext(ctx, query, crmID))
}

// CreateProfile inserts the statement keys of a lead or replaces earlier ones.
func (r *PGRepo) CreateProfile(ctx context.Context, profile CreditProfile) (CreditProfile, error) {
	query := `
INSERT INTO credit_profiles (lead_id, first_statement_key, second_statement_key, third_statement_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
ON CONFLICT (lead_id) DO UPDATE
SET first_statement_key = EXCLUDED.first_statement_key,
    second_statement_key = EXCLUDED.second_statement_key,
    third_statement_key = EXCLUDED.third_statement_key,
    updated_at = NOW()
RETURNING ` + profileColumns
	return scanProfile(r.DB.QueryRowContext(ctx, query,
		profile.LeadID,
		profile.FirstStatementKey,
		profile.SecondStatementKey,
		profile.ThirdStatementKey,
	))
}

// GetProfileByLead returns the credit profile of a lead.
func (r *PGRepo) GetProfileByLead(ctx context.Context, leadID int64) (CreditProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM credit_profiles WHERE lead_id = $1 LIMIT 1`
	return scanProfile(r.DB.QueryRowContext(ctx, query, leadID))
}

// UpsertUnderwriting overwrites the payment figures of a lead's profile.
func (r *PGRepo) UpsertUnderwriting(ctx context.Context, leadID int64, u Underwriting) error {
	const query = `
INSERT INTO credit_profiles (lead_id, min_payment, max_payment, max_adjusted_payment, maximum_credit, needs_review, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (lead_id) DO UPDATE
SET min_payment = EXCLUDED.min_payment,
    max_payment = EXCLUDED.max_payment,
    max_adjusted_payment = EXCLUDED.max_adjusted_payment,
    maximum_credit = EXCLUDED.maximum_credit,
    needs_review = EXCLUDED.needs_review,
    updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query,
		leadID,
		toMoney(u.MinPayment),
		toMoney(u.MaxPayment),
		toMoney(u.MaxAdjustedPayment),
		toMoney(u.MaximumCredit),
		u.NeedsReview,
		u.UpdatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var lead Lead
	var phone, documentNumber sql.NullString
	var amount decimal.NullDecimal
	err := row.Scan(
		&lead.ID,
		&lead.CRMID,
		&lead.Name,
		&phone,
		&documentNumber,
		&amount,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	lead.Phone = nullString(phone)
	lead.DocumentNumber = nullString(documentNumber)
	if amount.Valid {
		lead.FinancingAmount = amount.Decimal.InexactFloat64()
	}
	return lead, nil
}

func scanProfile(row rowScanner) (CreditProfile, error) {
	var p CreditProfile
	var first, second, third sql.NullString
	var minPayment, maxPayment, adjusted, credit decimal.NullDecimal
	err := row.Scan(
		&p.ID,
		&p.LeadID,
		&first,
		&second,
		&third,
		&minPayment,
		&maxPayment,
		&adjusted,
		&credit,
		&p.NeedsReview,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return CreditProfile{}, ErrNotFound
	}
	if err != nil {
		return CreditProfile{}, err
	}
	p.FirstStatementKey = nullString(first)
	p.SecondStatementKey = nullString(second)
	p.ThirdStatementKey = nullString(third)
	p.MinPayment = nullMoney(minPayment)
	p.MaxPayment = nullMoney(maxPayment)
	p.MaxAdjustedPayment = nullMoney(adjusted)
	p.MaximumCredit = nullMoney(credit)
	return p, nil
}
