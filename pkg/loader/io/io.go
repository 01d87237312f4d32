// Package io loads documents from the local filesystem.
package io

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/loader"
)

// FileLoader reads documents from disk. Results are cached per absolute
// path; call Forget after a file changes.
type FileLoader struct {
	cache *loader.Cache[loader.Document]
}

func NewFileLoader() *FileLoader {
	return &FileLoader{cache: loader.NewCache[loader.Document]()}
}

// Load accepts a plain path or a file:// URI.
func (l *FileLoader) Load(ctx context.Context, uri string) (loader.Document, error) {
	abs, err := filepath.Abs(strings.TrimPrefix(uri, "file://"))
	if err != nil {
		return loader.Document{}, err
	}

	doc, err := l.cache.Do(abs, func() (loader.Document, error) {
		if err := ctx.Err(); err != nil {
			return loader.Document{}, err
		}
		raw, err := os.ReadFile(abs)
		if err != nil {
			return loader.Document{}, err
		}
		ct := loader.ContentTypeFor(abs)
		text, err := loader.ToText(raw, ct, &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)})
		if err != nil {
			return loader.Document{}, err
		}
		return loader.Document{Name: filepath.Base(abs), ContentType: ct, Text: text}, nil
	})
	doc.URI = uri
	return doc, err
}

func (l *FileLoader) Forget(uri string) {
	if abs, err := filepath.Abs(strings.TrimPrefix(uri, "file://")); err == nil {
		l.cache.Forget(abs)
	}
}
