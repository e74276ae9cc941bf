package statements

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Count is the number of statements an analysis requires.
const Count = 3

// Document is one bank statement held in memory.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Download fetches a statement from url.
func Download(ctx context.Context, client *http.Client, url string) (Document, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("download statement: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Document{}, fmt.Errorf("download statement: status %d", resp.StatusCode)
	}
	data, err := ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("download statement: read: %w", err)
	}
	return Document{
		Name:        nameFromURL(url),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func nameFromURL(raw string) string {
	clean := strings.SplitN(raw, "?", 2)[0]
	if i := strings.LastIndex(clean, "/"); i >= 0 {
		clean = clean[i+1:]
	}
	if clean == "" {
		return "statement.pdf"
	}
	return clean
}

// Reader returns a fresh reader over the document bytes.
func (d Document) Reader() io.Reader {
	return bytes.NewReader(d.Data)
}
