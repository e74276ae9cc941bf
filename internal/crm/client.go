package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrUnexpectedStatus is wrapped by every non-success CRM response.
var ErrUnexpectedStatus = errors.New("crm unexpected status")

// Opportunity is the sales opportunity created once a lead has a payment capacity.
type Opportunity struct {
	LeadID    string    `json:"leadId"`
	Amount    float64   `json:"amount"`
	Name      string    `json:"name"`
	Stage     string    `json:"stage"`
	CreatedBy CreatedBy `json:"createdBy"`
}

// CreatedBy identifies the actor that created a CRM record.
type CreatedBy struct {
	Source string `json:"source"`
}

// Attachment links a stored file to a CRM person.
type Attachment struct {
	Name      string `json:"name"`
	FullPath  string `json:"fullPath"`
	Type      string `json:"type"`
	AuthorID  string `json:"authorId,omitempty"`
	PersonaID string `json:"personaId"`
}

// Gateway is the subset of the CRM REST API the backend uses.
type Gateway interface {
	CreateOpportunity(ctx context.Context, opp Opportunity) error
	CreateAttachment(ctx context.Context, att Attachment) error
}

// StatusError carries the status and body of a rejected CRM request.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("crm %s: status %d: %s", e.Path, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client implements Gateway over the CRM REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client authenticated with a static bearer API key.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("CRM_BASE_URL is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("CRM_API_KEY is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
		},
	}, nil
}

// NewOpportunity builds the opportunity body for a lead.
func NewOpportunity(leadCRMID string, amount float64, leadName string) Opportunity {
	return Opportunity{
		LeadID:    leadCRMID,
		Amount:    amount,
		Name:      "Nueva Oportunidad: " + leadName,
		Stage:     "NEW",
		CreatedBy: CreatedBy{Source: "API"},
	}
}

// CreateOpportunity posts a new opportunity.
func (c *Client) CreateOpportunity(ctx context.Context, opp Opportunity) error {
	return c.post(ctx, "/rest/opportunities", opp)
}

// CreateAttachment posts a new attachment.
func (c *Client) CreateAttachment(ctx context.Context, att Attachment) error {
	return c.post(ctx, "/rest/attachments", att)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode > 399 {
		return &StatusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return nil
}

var _ Gateway = (*Client)(nil)
