package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrymomot/certkit/core/store"
)

// Compile-time checks that Backend plugs into the fan-out store.
var (
	_ store.CertBackend      = (*Backend)(nil)
	_ store.ChallengeBackend = (*Backend)(nil)
)

// Client defines the S3 operations the backend uses. *s3.Client from the
// AWS SDK satisfies it; tests substitute a mock.
type Client interface {
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3aws.DeleteObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectOutput, error)
}

// Config contains S3 backend settings, populated from the environment in
// deployments.
type Config struct {
	Bucket         string `env:"CERT_S3_BUCKET"`
	Region         string `env:"CERT_S3_REGION"`
	AccessKeyID    string `env:"CERT_S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"CERT_S3_SECRET_KEY"`
	Endpoint       string `env:"CERT_S3_ENDPOINT"`
	Prefix         string `env:"CERT_S3_PREFIX" envDefault:"certkit"`
	ForcePathStyle bool   `env:"CERT_S3_FORCE_PATH_STYLE" envDefault:"false"`
}

// ErrInvalidConfig indicates a missing bucket or region.
var ErrInvalidConfig = errors.New("s3: bucket and region are required")

// Backend stores PEM, PFX, and challenge artifacts as bucket objects.
type Backend struct {
	client Client
	bucket string
	prefix string
}

// Option configures a Backend.
type Option func(*options)

type options struct {
	client          Client
	s3ConfigOptions []func(*config.LoadOptions) error
	s3ClientOptions []func(*s3aws.Options)
}

// WithClient sets a pre-configured S3 client, primarily for testing.
func WithClient(client Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithConfigOption adds a custom AWS config option.
func WithConfigOption(option func(*config.LoadOptions) error) Option {
	return func(o *options) {
		o.s3ConfigOptions = append(o.s3ConfigOptions, option)
	}
}

// WithClientOption adds a custom S3 client option.
func WithClientOption(option func(*s3aws.Options)) Option {
	return func(o *options) {
		o.s3ClientOptions = append(o.s3ClientOptions, option)
	}
}

// New creates an S3 backend. Static credentials are used when provided,
// otherwise the SDK falls back to IAM roles and environment variables.
func New(ctx context.Context, cfg Config, opts ...Option) (*Backend, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	options := &options{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}
		awsOptions = append(awsOptions, options.s3ConfigOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}

		client = s3aws.NewFromConfig(awsConfig, func(o *s3aws.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle

			for _, opt := range options.s3ClientOptions {
				opt(o)
			}
		})
	}

	return &Backend{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

const challengesObject = "challenges.json"

func (b *Backend) objectKey(name string) string {
	return path.Join(b.prefix, name)
}

func certObject(kind store.CertKind) (name, contentType string, err error) {
	switch kind {
	case store.KindAccountKey:
		return "account-key.pem", "application/x-pem-file", nil
	case store.KindSiteBundle:
		return "site.pfx", "application/x-pkcs12", nil
	}
	return "", "", fmt.Errorf("%w: %s", store.ErrUnknownCertKind, kind)
}

func (b *Backend) SaveCert(ctx context.Context, kind store.CertKind, data []byte) error {
	name, contentType, err := certObject(kind)
	if err != nil {
		return err
	}
	return b.put(ctx, b.objectKey(name), contentType, data)
}

func (b *Backend) LoadCert(ctx context.Context, kind store.CertKind) ([]byte, error) {
	name, _, err := certObject(kind)
	if err != nil {
		return nil, err
	}
	return b.get(ctx, b.objectKey(name))
}

func (b *Backend) SaveChallenges(ctx context.Context, challenges []store.ChallengeInfo) error {
	data, err := json.Marshal(challenges)
	if err != nil {
		return fmt.Errorf("encode challenges: %w", err)
	}
	return b.put(ctx, b.objectKey(challengesObject), "application/json", data)
}

func (b *Backend) LoadChallenges(ctx context.Context) ([]store.ChallengeInfo, error) {
	data, err := b.get(ctx, b.objectKey(challengesObject))
	if err != nil || data == nil {
		return nil, err
	}

	var challenges []store.ChallengeInfo
	if err := json.Unmarshal(data, &challenges); err != nil {
		return nil, fmt.Errorf("decode challenges: %w", err)
	}
	return challenges, nil
}

func (b *Backend) DeleteChallenges(ctx context.Context, challenges []store.ChallengeInfo) error {
	stored, err := b.LoadChallenges(ctx)
	if err != nil {
		return err
	}

	kept := store.RemoveByToken(stored, challenges)
	if len(kept) == 0 {
		_, err := b.client.DeleteObject(ctx, &s3aws.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.objectKey(challengesObject)),
		})
		return classifyError(err, "delete challenges")
	}
	return b.SaveChallenges(ctx, kept)
}

func (b *Backend) put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3aws.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return classifyError(err, "put "+key)
}

// get returns nil data without error for missing objects, matching the
// store contract where absence is not a failure.
func (b *Backend) get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3aws.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classifyError(err, "get "+key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
