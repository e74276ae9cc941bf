package profiles

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores leads and profiles in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	leads    map[int64]Lead
	profiles map[int64]CreditProfile
	nextID   int64
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		leads:    make(map[int64]Lead),
		profiles: make(map[int64]CreditProfile),
	}
}

// PutLead stores a lead. Leads are created by the CRM intake, so only memory mode needs this.
func (r *MemoryRepo) PutLead(lead Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[lead.ID] = lead
}

// GetLead returns a lead by ID.
func (r *MemoryRepo) GetLead(ctx context.Context, leadID int64) (Lead, error) {
	if err := ctx.Err(); err != nil {
		return Lead{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	lead, ok := r.leads[leadID]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return lead, nil
}

// GetLeadByCRMID returns a lead by its CRM identifier.
func (r *MemoryRepo) GetLeadByCRMID(ctx context.Context, crmID string) (Lead, error) {
	if err := ctx.Err(); err != nil {
		return Lead{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, lead := range r.leads {
		if lead.CRMID == crmID {
			return lead, nil
		}
	}
	return Lead{}, ErrNotFound
}

// CreateProfile stores statement keys for a lead.
func (r *MemoryRepo) CreateProfile(ctx context.Context, profile CreditProfile) (CreditProfile, error) {
	if err := ctx.Err(); err != nil {
		return CreditProfile{}, err
	}
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.profiles[profile.LeadID]
	if ok {
		existing.FirstStatementKey = profile.FirstStatementKey
		existing.SecondStatementKey = profile.SecondStatementKey
		existing.ThirdStatementKey = profile.ThirdStatementKey
		existing.UpdatedAt = now
		r.profiles[profile.LeadID] = existing
		return existing, nil
	}
	r.nextID++
	profile.ID = r.nextID
	profile.CreatedAt = now
	profile.UpdatedAt = now
	r.profiles[profile.LeadID] = profile
	return profile, nil
}

// GetProfileByLead returns the credit profile of a lead.
func (r *MemoryRepo) GetProfileByLead(ctx context.Context, leadID int64) (CreditProfile, error) {
	if err := ctx.Err(); err != nil {
		return CreditProfile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[leadID]
	if !ok {
		return CreditProfile{}, ErrNotFound
	}
	return profile, nil
}

// UpsertUnderwriting writes payment figures, creating the profile when missing.
func (r *MemoryRepo) UpsertUnderwriting(ctx context.Context, leadID int64, u Underwriting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	updated := u.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[leadID]
	if !ok {
		r.nextID++
		profile = CreditProfile{ID: r.nextID, LeadID: leadID, CreatedAt: updated}
	}
	minPayment, maxPayment := roundMoney(u.MinPayment), roundMoney(u.MaxPayment)
	adjusted, credit := roundMoney(u.MaxAdjustedPayment), roundMoney(u.MaximumCredit)
	profile.MinPayment = &minPayment
	profile.MaxPayment = &maxPayment
	profile.MaxAdjustedPayment = &adjusted
	profile.MaximumCredit = &credit
	profile.NeedsReview = u.NeedsReview
	profile.UpdatedAt = updated
	r.profiles[leadID] = profile
	return nil
}
