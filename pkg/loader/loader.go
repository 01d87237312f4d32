// Package loader turns document references into plain text ready for line
// splitting. References are local paths, http(s) URLs or s3://bucket/key
// URIs; HTML is reduced to its readable article text.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"sync"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported document scheme")
	ErrNotText           = errors.New("document is not text")
)

// Document is the loaded text of a single source.
type Document struct {
	URI         string
	Name        string
	ContentType string
	Text        string
}

// Loader fetches one document by reference.
type Loader interface {
	Load(ctx context.Context, uri string) (Document, error)
}

// Router picks a Loader by URI scheme. References without a scheme go to the
// fallback loader.
type Router struct {
	loaders  map[string]Loader
	fallback Loader
}

func NewRouter(fallback Loader) *Router {
	return &Router{loaders: map[string]Loader{}, fallback: fallback}
}

// Register binds scheme (e.g. "s3", "https") to l.
func (r *Router) Register(scheme string, l Loader) *Router {
	r.loaders[strings.ToLower(scheme)] = l
	return r
}

func (r *Router) Load(ctx context.Context, uri string) (Document, error) {
	scheme := Scheme(uri)
	if scheme == "" {
		if r.fallback == nil {
			return Document{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, uri)
		}
		return r.fallback.Load(ctx, uri)
	}
	l, ok := r.loaders[scheme]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	return l.Load(ctx, uri)
}

// Scheme returns the lower-cased URI scheme, or "" for plain paths.
// Single-letter schemes are treated as Windows drive letters.
func Scheme(uri string) string {
	idx := strings.Index(uri, "://")
	if idx <= 1 {
		return ""
	}
	return strings.ToLower(uri[:idx])
}

const plainText = "text/plain; charset=utf-8"

// ContentTypeFor guesses a content type from a file name. Unknown and text
// extensions map to UTF-8 plain text.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case "", ".txt", ".text", ".md":
		return plainText
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return plainText
}

// IsHTML reports whether contentType names an HTML document.
func IsHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "html")
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// ToText converts raw bytes to text. HTML runs through readability with
// pageURL as the base for relative links; anything else must be UTF-8.
func ToText(raw []byte, contentType string, pageURL *url.URL) (string, error) {
	if IsHTML(contentType) {
		if pageURL == nil {
			pageURL = &url.URL{Scheme: "file", Path: "/"}
		}
		article, err := readability.FromReader(bytes.NewReader(raw), pageURL)
		if err != nil {
			return "", fmt.Errorf("failed to parse html: %w", err)
		}
		var b strings.Builder
		if err := article.RenderText(&b); err != nil {
			return "", fmt.Errorf("failed to render article text: %w", err)
		}
		return strings.TrimSpace(b.String()), nil
	}

	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: %s", ErrNotText, contentType)
	}
	return string(raw), nil
}

// Cache memoises loaded values per key and collapses concurrent loads of
// the same key into one.
type Cache[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	group singleflight.Group
}

func NewCache[T any]() *Cache[T] {
	return &Cache[T]{items: make(map[string]T)}
}

func (c *Cache[T]) get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

// Do returns the cached value for key or calls fetch once to fill it.
// Failed fetches are not cached.
func (c *Cache[T]) Do(key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}
	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Forget drops key from the cache.
func (c *Cache[T]) Forget(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}
