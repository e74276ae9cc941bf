package profiles

import "context"

// Repo defines persistence operations for leads and credit profiles.
type Repo interface {
	GetLead(ctx context.Context, leadID int64) (Lead, error)
	GetLeadByCRMID(ctx context.Context, crmID string) (Lead, error)
	// CreateProfile stores the statement keys of a lead, replacing earlier keys.
	CreateProfile(ctx context.Context, profile CreditProfile) (CreditProfile, error)
	GetProfileByLead(ctx context.Context, leadID int64) (CreditProfile, error)
	// UpsertUnderwriting overwrites the payment figures of a lead's profile.
	UpsertUnderwriting(ctx context.Context, leadID int64, u Underwriting) error
}
