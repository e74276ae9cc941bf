package profiles

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/crm"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/storage/object"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/statements"
)

const attachmentType = "TextDocument"

// AnalysisQueue queues statements for asynchronous analysis.
type AnalysisQueue interface {
	Queue(ctx context.Context, leadID int64, docs []statements.Document) error
}

// Service completes credit profiles from statement URLs.
type Service struct {
	Repo       Repo
	Store      object.ObjectStore
	CRM        crm.Gateway
	Queue      AnalysisQueue
	HTTPClient *http.Client
	// AuthorID is the CRM workspace member recorded as attachment author.
	AuthorID string
}

// CompleteInput identifies the lead by CRM id and lists its statement URLs in order.
type CompleteInput struct {
	LeadCRMID     string
	StatementURLs []string
}

// CompleteProfile copies the statements into the object store, attaches them to the
// CRM person, records the profile and queues the analysis.
func (s *Service) CompleteProfile(ctx context.Context, in CompleteInput) (CreditProfile, error) {
	crmID := strings.TrimSpace(in.LeadCRMID)
	if crmID == "" {
		return CreditProfile{}, fmt.Errorf("%w: leadId is required", ErrInvalidInput)
	}
	if len(in.StatementURLs) != statements.Count {
		return CreditProfile{}, fmt.Errorf("%w: %d statements are required", ErrInvalidInput, statements.Count)
	}
	for i, u := range in.StatementURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return CreditProfile{}, fmt.Errorf("%w: statement %d must be an http(s) url", ErrInvalidInput, i+1)
		}
	}

	lead, err := s.Repo.GetLeadByCRMID(ctx, crmID)
	if err != nil {
		return CreditProfile{}, fmt.Errorf("get lead: %w", err)
	}

	docs := make([]statements.Document, statements.Count)
	keys := make([]string, statements.Count)
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range in.StatementURLs {
		i, u := i, u
		g.Go(func() error {
			doc, err := statements.Download(gctx, s.HTTPClient, u)
			if err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
			if _, err := statements.Inspect(gctx, doc.Data, doc.ContentType); err != nil {
				return fmt.Errorf("%w: statement %d: %v", ErrInvalidInput, i+1, err)
			}
			key, _, _, err := s.Store.Save(gctx, lead.CRMID, fmt.Sprintf("statement_%d.pdf", i+1), doc.Reader())
			if err != nil {
				return fmt.Errorf("store statement %d: %w", i+1, err)
			}
			docs[i] = doc
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(ctx, keys)
		return CreditProfile{}, err
	}

	if err := s.attach(ctx, lead, keys); err != nil {
		s.discard(ctx, keys)
		return CreditProfile{}, err
	}

	profile, err := s.Repo.CreateProfile(ctx, CreditProfile{
		LeadID:             lead.ID,
		FirstStatementKey:  keys[0],
		SecondStatementKey: keys[1],
		ThirdStatementKey:  keys[2],
	})
	if err != nil {
		return CreditProfile{}, fmt.Errorf("create profile: %w", err)
	}

	if err := s.Queue.Queue(ctx, lead.ID, docs); err != nil {
		return CreditProfile{}, fmt.Errorf("queue analysis: %w", err)
	}

	telemetry.Info("profile.completed", map[string]any{
		"lead_id":    lead.ID,
		"profile_id": profile.ID,
	})
	return profile, nil
}

// attach creates one CRM attachment per statement; all must succeed.
func (s *Service) attach(ctx context.Context, lead Lead, keys []string) error {
	if s.CRM == nil {
		return nil
	}
	errs := make([]error, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			errs[i] = s.CRM.CreateAttachment(gctx, crm.Attachment{
				Name:      fmt.Sprintf("estado_de_cuenta_%d_%s", i+1, lead.DocumentNumber),
				FullPath:  key,
				Type:      attachmentType,
				AuthorID:  s.AuthorID,
				PersonaID: lead.CRMID,
			})
			return nil
		})
	}
	_ = g.Wait()
	if err := errors.Join(errs...); err != nil {
		telemetry.Error("profile.attachments.failed", map[string]any{
			"lead_id": lead.ID,
			"error":   err.Error(),
		})
		return fmt.Errorf("create crm attachments: %w", err)
	}
	return nil
}

// discard removes statements stored before a failed completion.
func (s *Service) discard(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.Store.Delete(ctx, key); err != nil {
			telemetry.Warn("profile.statement.discard_failed", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
}
