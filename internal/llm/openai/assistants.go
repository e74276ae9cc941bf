package openai

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/llm"
)

type idObject struct {
	ID string `json:"id"`
}

type assistantList struct {
	Data []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"data"`
}

type toolRef struct {
	Type string `json:"type"`
}

type attachment struct {
	FileID string    `json:"file_id"`
	Tools  []toolRef `json:"tools"`
}

type messageRequest struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type runRequest struct {
	AssistantID string `json:"assistant_id"`
}

type runObject struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

type messageList struct {
	Data []struct {
		ID      string `json:"id"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text *struct {
				Value string `json:"value"`
			} `json:"text,omitempty"`
		} `json:"content"`
	} `json:"data"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type assistantRequest struct {
	Model          string         `json:"model"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Instructions   string         `json:"instructions"`
	Tools          []toolRef      `json:"tools"`
	ResponseFormat responseFormat `json:"response_format"`
}

var fileSearch = toolRef{Type: "file_search"}

// UploadFile uploads a document with purpose "assistants".
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := mw.WriteField("purpose", "assistants")
		if err == nil {
			var part io.Writer
			part, err = mw.CreateFormFile("file", name)
			if err == nil {
				_, err = io.Copy(part, r)
			}
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", pr)
	if err != nil {
		_ = pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out idObject
	if err := c.do(req, &out); err != nil {
		_ = pr.Close()
		return "", fmt.Errorf("upload file %s: %w", name, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("upload file %s: response missing id", name)
	}
	return out.ID, nil
}

// CreateThread creates an empty conversation thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var out idObject
	if err := c.doJSON(ctx, http.MethodPost, "/threads", map[string]any{}, &out); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return out.ID, nil
}

// PostMessage adds a user message with the given files attached for file search.
func (c *Client) PostMessage(ctx context.Context, threadID, text string, fileIDs []string) error {
	body := messageRequest{Role: "user", Content: text}
	for _, id := range fileIDs {
		body.Attachments = append(body.Attachments, attachment{FileID: id, Tools: []toolRef{fileSearch}})
	}
	path := "/threads/" + url.PathEscape(threadID) + "/messages"
	if err := c.doJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("post message thread=%s: %w", threadID, err)
	}
	return nil
}

// CreateRun starts the assistant on a thread.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (string, error) {
	var out idObject
	path := "/threads/" + url.PathEscape(threadID) + "/runs"
	if err := c.doJSON(ctx, http.MethodPost, path, runRequest{AssistantID: assistantID}, &out); err != nil {
		return "", fmt.Errorf("create run thread=%s: %w", threadID, err)
	}
	return out.ID, nil
}

// GetRunStatus retrieves the current status of a run.
func (c *Client) GetRunStatus(ctx context.Context, threadID, runID string) (llm.RunStatus, error) {
	var out runObject
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return llm.RunStatus{}, fmt.Errorf("get run thread=%s run=%s: %w", threadID, runID, err)
	}
	status := llm.RunStatus{ID: out.ID, Status: out.Status}
	if out.LastError != nil {
		status.LastError = strings.TrimSpace(out.LastError.Code + " " + out.LastError.Message)
	}
	return status, nil
}

// LatestMessage returns the newest message of a thread.
func (c *Client) LatestMessage(ctx context.Context, threadID string) (llm.Message, error) {
	var out messageList
	path := "/threads/" + url.PathEscape(threadID) + "/messages?limit=1&order=desc"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return llm.Message{}, fmt.Errorf("list messages thread=%s: %w", threadID, err)
	}
	if len(out.Data) == 0 {
		return llm.Message{}, llm.ErrNoMessages
	}
	m := out.Data[0]
	msg := llm.Message{ID: m.ID, Role: m.Role}
	if len(m.Content) > 0 {
		msg.Type = m.Content[0].Type
		if m.Content[0].Text != nil {
			msg.Text = m.Content[0].Text.Value
		}
	}
	return msg, nil
}

// EnsureAssistant returns the id of an existing assistant with the same name and
// model, registering a new one only when none is found.
func (c *Client) EnsureAssistant(ctx context.Context, spec llm.AssistantSpec) (string, error) {
	id, err := c.findAssistant(ctx, spec.Name, spec.Model)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return c.createAssistant(ctx, spec)
}

func (c *Client) findAssistant(ctx context.Context, name, model string) (string, error) {
	var out assistantList
	if err := c.doJSON(ctx, http.MethodGet, "/assistants?limit=100&order=desc", nil, &out); err != nil {
		return "", fmt.Errorf("list assistants: %w", err)
	}
	for _, a := range out.Data {
		if a.ID != "" && a.Name == name && a.Model == model {
			return a.ID, nil
		}
	}
	return "", nil
}

func (c *Client) createAssistant(ctx context.Context, spec llm.AssistantSpec) (string, error) {
	body := assistantRequest{
		Model:        spec.Model,
		Name:         spec.Name,
		Description:  spec.Description,
		Instructions: spec.Instructions,
		Tools:        []toolRef{fileSearch},
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   spec.SchemaName,
				Strict: true,
				Schema: spec.Schema,
			},
		},
	}
	var out idObject
	if err := c.doJSON(ctx, http.MethodPost, "/assistants", body, &out); err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create assistant: response missing id")
	}
	return out.ID, nil
}
