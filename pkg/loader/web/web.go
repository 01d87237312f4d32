// Package web loads documents over HTTP. HTML pages are reduced to their
// readable article text.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/loader"
)

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 16 << 20

// WebLoader fetches http and https URLs.
type WebLoader struct {
	client *http.Client
	cache  *loader.Cache[loader.Document]
}

// NewWebLoader uses client, or http.DefaultClient when nil.
func NewWebLoader(client *http.Client) *WebLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebLoader{client: client, cache: loader.NewCache[loader.Document]()}
}

type fetched struct {
	contentType string
	body        []byte
}

func (l *WebLoader) fetch(ctx context.Context, uri string) (fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fetched{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return fetched{}, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fetched{}, fmt.Errorf("failed to fetch url: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fetched{}, err
	}
	return fetched{contentType: resp.Header.Get("Content-Type"), body: body}, nil
}

func (l *WebLoader) Load(ctx context.Context, uri string) (loader.Document, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return loader.Document{}, fmt.Errorf("failed to parse url: %w", err)
	}

	return l.cache.Do(uri, func() (loader.Document, error) {
		f, err := l.fetch(ctx, uri)
		if err != nil {
			return loader.Document{}, err
		}
		ct := f.contentType
		if ct == "" {
			ct = loader.ContentTypeFor(u.Path)
		}
		text, err := loader.ToText(f.body, ct, u)
		if err != nil {
			return loader.Document{}, err
		}
		name := path.Base(u.Path)
		if name == "/" || name == "." || name == "" {
			name = u.Host
		}
		return loader.Document{URI: uri, Name: name, ContentType: ct, Text: text}, nil
	})
}
