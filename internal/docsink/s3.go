package docsink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sdgplan/collab/internal/storage"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 archives rendered forms as plain text objects.
type S3 struct {
	client objectPutter
	bucket string
	region string
}

func NewS3(ctx context.Context, bucket, region string) (*S3, error) {
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3{client: s3.NewFromConfig(cfg), bucket: bucket, region: region}, nil
}

func (s *S3) CreateDocument(ctx context.Context, form storage.Form) (string, error) {
	key := fmt.Sprintf("action-plans/%d.txt", form.ID)
	if err := s.ReplaceContent(ctx, key, form); err != nil {
		return "", err
	}
	return key, nil
}

// ReplaceContent overwrites the object at key; PutObject is a full replace.
func (s *S3) ReplaceContent(ctx context.Context, key string, form storage.Form) error {
	if key == "" {
		return errors.New("object key is required")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(Render(form).Text),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}

func (s *S3) DocumentURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
