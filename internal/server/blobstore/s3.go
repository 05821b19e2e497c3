// Package blobstore stores sealed snippet payloads too large for a text
// column in S3-compatible object storage. Payloads are encrypted with the
// chunked stream cipher on the way in and decrypted on the way out, so the
// bucket only ever holds ciphertext.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/snipvault/snipvault/internal/cryptox"
)

// Config names the S3-compatible endpoint and bucket.
type Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
}

// Seams for testing the AWS client plumbing without a live endpoint.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return c.GetObject(ctx, in)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Store is a sealed-payload store over one bucket.
type S3Store struct {
	cfg Config
}

func New(cfg Config) *S3Store {
	return &S3Store{cfg: cfg}
}

// RandomStorageKey returns a date-partitioned object key for a new payload.
func RandomStorageKey(ownerID string) string {
	d := time.Now()
	return fmt.Sprintf("snippets/%s/%d/%d/%d/%v", ownerID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *S3Store) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKey,
			s.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// UploadSealed encrypts plaintext with the stream cipher under contentKey
// and stores the sealed bytes at key.
func (s *S3Store) UploadSealed(ctx context.Context, key string, plaintext io.Reader, contentKey []byte) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	var sealed bytes.Buffer
	if err := cryptox.EncryptStream(&sealed, plaintext, contentKey); err != nil {
		return fmt.Errorf("seal payload: %w", err)
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(sealed.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// DownloadSealed fetches the object at key and streams the decrypted
// plaintext into dst. Tampered objects fail authentication; nothing is
// written to dst past the point of failure.
func (s *S3Store) DownloadSealed(ctx context.Context, key string, dst io.Writer, contentKey []byte) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	out, err := getObject(client, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	return cryptox.DecryptStream(dst, out.Body, contentKey)
}

// PresignGet issues a time-limited download URL for the sealed object.
// The caller still needs the content key to read the payload.
func (s *S3Store) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	client, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
