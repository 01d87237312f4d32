// Package storage keeps processed documents in S3 compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/config"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/graph"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/singleflight"
)

const documentPrefix = "documents/"

// NewS3Client creates a path-style client for the configured endpoint.
// Static credentials are used when an access key is set, otherwise the
// default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg config.AWSConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// s3API is the subset of the S3 client the document store uses.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3DocumentStore implements graph.DocumentStore with one JSON object per
// document under documents/{id}.json. Concurrent reads of the same
// document share one request.
type S3DocumentStore struct {
	client s3API
	bucket string
	group  singleflight.Group
}

var _ graph.DocumentStore = (*S3DocumentStore)(nil)

func NewS3DocumentStore(client s3API, bucket string) *S3DocumentStore {
	return &S3DocumentStore{client: client, bucket: bucket}
}

func documentKey(documentID string) string {
	return documentPrefix + documentID + ".json"
}

func (s *S3DocumentStore) PutDocument(ctx context.Context, doc graph.DocumentRecord) error {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	key := documentKey(doc.DocumentID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload document to S3: %w", err)
	}
	logger.Info("[Storage] Document stored", "bucket", s.bucket, "key", key)
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}

func (s *S3DocumentStore) GetDocument(ctx context.Context, documentID string) (*graph.DocumentRecord, error) {
	v, err, _ := s.group.Do(documentID, func() (any, error) {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(documentKey(documentID)),
		})
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: %s", graph.ErrDocumentNotFound, documentID)
			}
			return nil, fmt.Errorf("failed to get document from S3: %w", err)
		}
		defer out.Body.Close()

		data, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		var doc graph.DocumentRecord
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", documentID, err)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	doc := v.(graph.DocumentRecord)
	return &doc, nil
}

// ListDocuments reads every stored document to build its summary.
func (s *S3DocumentStore) ListDocuments(ctx context.Context) ([]graph.DocumentSummary, error) {
	var (
		out   []graph.DocumentSummary
		token *string
	)
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(documentPrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			id := strings.TrimSuffix(path.Base(key), ".json")
			doc, err := s.GetDocument(ctx, id)
			if err != nil {
				logger.Warn("[Storage] Skipping unreadable document", "key", key, "err", err)
				continue
			}
			out = append(out, graph.Summarize(*doc))
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		token = page.NextContinuationToken
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

func (s *S3DocumentStore) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(documentKey(documentID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document from S3: %w", err)
	}
	return nil
}
