package creditanalysis

import (
	"context"
	"fmt"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/crm"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/extraction"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/profiles"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/metrics"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/underwriting"
)

// Propagator computes a lead's payment capacity, stores it on the credit profile
// and opens a CRM opportunity.
type Propagator struct {
	Calculator *underwriting.Calculator
	Profiles   profiles.Repo
	CRM        crm.Gateway
}

// Complete runs the calculation and propagation for one lead.
func (p *Propagator) Complete(ctx context.Context, leadID int64, ex extraction.StatementExtraction) error {
	if err := p.complete(ctx, leadID, ex); err != nil {
		metrics.IncPropagationFailure()
		return &PropagationError{LeadID: leadID, Err: err}
	}
	metrics.IncPropagation()
	return nil
}

func (p *Propagator) complete(ctx context.Context, leadID int64, ex extraction.StatementExtraction) error {
	calc := p.Calculator
	if calc == nil {
		calc = underwriting.NewCalculator(underwriting.DefaultConfig())
	}
	res, err := calc.Calculate(ex)
	if err != nil {
		return fmt.Errorf("calculate: %w", err)
	}
	telemetry.Info("underwriting.calculated", map[string]any{
		"lead_id":        leadID,
		"tier":           string(res.Tier),
		"free_flux_pct":  res.PercentageOfFreeFlux,
		"min_payment":    res.MinPayment,
		"max_payment":    res.MaxPayment,
		"maximum_credit": res.MaximumCredit,
		"manual_review":  res.ManualReview,
	})

	if err := p.Profiles.UpsertUnderwriting(ctx, leadID, profiles.Underwriting{
		MinPayment:         res.MinPayment,
		MaxPayment:         res.MaxPayment,
		MaxAdjustedPayment: res.MaxAdjustedPayment,
		MaximumCredit:      res.MaximumCredit,
		NeedsReview:        res.ManualReview,
		UpdatedAt:          res.ComputedAt,
	}); err != nil {
		return fmt.Errorf("save underwriting: %w", err)
	}

	if res.ManualReview {
		telemetry.Warn("underwriting.manual_review", map[string]any{"lead_id": leadID})
		return nil
	}
	if p.CRM == nil {
		telemetry.Info("crm.opportunity.skipped", map[string]any{"lead_id": leadID})
		return nil
	}

	lead, err := p.Profiles.GetLead(ctx, leadID)
	if err != nil {
		return fmt.Errorf("load lead: %w", err)
	}
	if err := p.CRM.CreateOpportunity(ctx, crm.NewOpportunity(lead.CRMID, lead.FinancingAmount, lead.Name)); err != nil {
		return fmt.Errorf("create opportunity: %w", err)
	}
	telemetry.Info("crm.opportunity.created", map[string]any{"lead_id": leadID, "crm_id": lead.CRMID})
	return nil
}
