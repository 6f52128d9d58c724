package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3API is the subset of *s3.Client used by S3.
type S3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds the settings for an S3 compatible bucket.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3 serves items from an S3 compatible bucket. A root is a key prefix.
type S3 struct {
	Client S3API
	Bucket string
}

// NewS3 constructs an S3 storage and checks that the bucket is reachable.
func NewS3(ctx context.Context, config S3Config) (*S3, error) {
	client := newS3Client(config)
	storage := &S3{Client: client, Bucket: config.Bucket}
	_, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  &storage.Bucket,
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: s3 bucket %s: %w", config.Bucket, err)
	}
	return storage, nil
}

// newS3Client uses the AWS endpoint for the region unless Endpoint names an
// S3 compatible service.
func newS3Client(config S3Config) *s3.Client {
	options := s3.Options{
		Region:      config.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, "")),
	}
	if config.Endpoint != "" {
		options.BaseEndpoint = aws.String(config.Endpoint)
		options.UsePathStyle = true
	}
	return s3.New(options)
}

func prefix(root string) string {
	root = strings.Trim(root, "/")
	if root == "" {
		return ""
	}
	return root + "/"
}

func (s *S3) key(root, id string) string {
	return prefix(root) + id
}

// List returns the objects directly under the root prefix, in key order. A
// prefix with no objects at all is reported as a missing root.
func (s *S3) List(ctx context.Context, root string) ([]string, error) {
	p := prefix(root)
	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket:    &s.Bucket,
		Prefix:    aws.String(p),
		Delimiter: aws.String("/"),
	})
	var ids []string
	found := false
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: s3 list %s: %w", p, err)
		}
		if len(page.Contents) > 0 || len(page.CommonPrefixes) > 0 {
			found = true
		}
		for _, obj := range page.Contents {
			id := strings.TrimPrefix(aws.ToString(obj.Key), p)
			if ValidID(id) {
				ids = append(ids, id)
			}
		}
	}
	if !found && p != "" {
		return nil, notExist("list", p)
	}
	return ids, nil
}

func (s *S3) Exists(ctx context.Context, root, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	_, err := s.head(ctx, root, id)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3) Open(ctx context.Context, root, id string) (io.ReadCloser, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	output, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.Bucket,
		Key:    aws.String(s.key(root, id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, notExist("open", path.Join(root, id))
		}
		return nil, fmt.Errorf("storage: s3 get %s: %w", s.key(root, id), err)
	}
	return output.Body, nil
}

func (s *S3) Size(ctx context.Context, root, id string) (int64, error) {
	if !ValidID(id) {
		return 0, ErrInvalidID
	}
	output, err := s.head(ctx, root, id)
	if err != nil {
		if isNotFound(err) {
			return 0, notExist("stat", path.Join(root, id))
		}
		return 0, err
	}
	return aws.ToInt64(output.ContentLength), nil
}

func (s *S3) head(ctx context.Context, root, id string) (*s3.HeadObjectOutput, error) {
	return s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.Bucket,
		Key:    aws.String(s.key(root, id)),
	})
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
