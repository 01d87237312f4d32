// Package s3 loads source documents from S3 compatible object storage
// using s3://bucket/key references.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/loader"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrInvalidURI = errors.New("invalid s3 uri")

// ObjectGetter is the part of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader fetches objects and converts them to text. References without
// a bucket fall back to the default bucket.
type S3Loader struct {
	client        ObjectGetter
	defaultBucket string
	cache         *loader.Cache[loader.Document]
}

func NewS3Loader(client ObjectGetter, defaultBucket string) *S3Loader {
	return &S3Loader{
		client:        client,
		defaultBucket: defaultBucket,
		cache:         loader.NewCache[loader.Document](),
	}
}

// ParseURI splits "s3://bucket/key" into its parts. A bare key is returned
// with an empty bucket.
func ParseURI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		key = strings.TrimPrefix(uri, "/")
		if key == "" {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
		}
		return "", key, nil
	}
	rest := strings.TrimPrefix(uri, "s3://")
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return bucket, key, nil
}

func (l *S3Loader) Load(ctx context.Context, uri string) (loader.Document, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return loader.Document{}, err
	}
	if bucket == "" {
		bucket = l.defaultBucket
	}
	if bucket == "" {
		return loader.Document{}, fmt.Errorf("%w: no bucket for %q", ErrInvalidURI, uri)
	}

	return l.cache.Do(bucket+"/"+key, func() (loader.Document, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return loader.Document{}, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
		}
		defer out.Body.Close()

		raw, err := io.ReadAll(out.Body)
		if err != nil {
			return loader.Document{}, err
		}

		ct := aws.ToString(out.ContentType)
		if ct == "" || ct == "application/octet-stream" || ct == "binary/octet-stream" {
			ct = loader.ContentTypeFor(key)
		}
		text, err := loader.ToText(raw, ct, &url.URL{Scheme: "s3", Host: bucket, Path: "/" + key})
		if err != nil {
			return loader.Document{}, err
		}
		return loader.Document{
			URI:         uri,
			Name:        path.Base(key),
			ContentType: ct,
			Text:        text,
		}, nil
	})
}
