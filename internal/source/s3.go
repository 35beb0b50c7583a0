package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/secrets"
)

const defaultS3Region = "auto"

// S3Config configures access to S3 compatible storage (AWS, R2, MinIO).
type S3Config struct {
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKeyFile string `mapstructure:"access-key-file"`
	SecretKeyFile string `mapstructure:"secret-key-file"`
	UsePathStyle  bool   `mapstructure:"use-path-style"`
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Object reads the CSV dataset from a single object.
type S3Object struct {
	Bucket string
	Key    string
	client objectGetter
}

// NewS3Object builds a reader for an s3://bucket/key location.
func NewS3Object(ctx context.Context, location string, cfg S3Config) (*S3Object, error) {
	bucket, key, err := parseS3Location(location)
	if err != nil {
		return nil, err
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultS3Region
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}

	if cfg.AccessKeyFile != "" || cfg.SecretKeyFile != "" {
		accessKey, err := secrets.Load(secrets.Source{Name: "s3 access key", File: cfg.AccessKeyFile})
		if err != nil {
			return nil, err
		}
		secretKey, err := secrets.Load(secrets.Source{Name: "s3 secret key", File: cfg.SecretKeyFile})
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Object{Bucket: bucket, Key: key, client: client}, nil
}

func (o *S3Object) Read(ctx context.Context) ([]catalog.RawRow, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.Bucket),
		Key:    aws.String(o.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", o.Bucket, o.Key, err)
	}
	defer out.Body.Close()

	rows, err := ParseCSV(out.Body)
	if err != nil {
		return nil, fmt.Errorf("parse s3://%s/%s: %w", o.Bucket, o.Key, err)
	}
	return rows, nil
}

func parseS3Location(location string) (string, string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 location: %w", err)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 location %q, expected s3://bucket/key", location)
	}

	return u.Host, key, nil
}
