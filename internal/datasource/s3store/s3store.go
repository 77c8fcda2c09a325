// Package s3store implements datasource.Store and datasource.ObjectWriter on
// an S3 compatible bucket (AWS or MinIO).
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"dwetl/internal/datasource"
)

// ErrNotFound is returned by Open and Head for a missing key.
var ErrNotFound = errors.New("s3store: object not found")

// Config holds connection settings. An empty AccessKey falls back to the
// default AWS credential chain.
type Config struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Region     string `yaml:"region" json:"region"`
	AccessKey  string `yaml:"access_key" json:"access_key"`
	SecretKey  string `yaml:"secret_key" json:"secret_key"`
	DisableSSL bool   `yaml:"disable_ssl" json:"disable_ssl"`
}

// NewSession builds an AWS session. Path-style addressing is forced whenever
// a custom endpoint is set, which MinIO requires.
func NewSession(cfg Config) (*session.Session, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	ac := &aws.Config{
		Region:     aws.String(region),
		DisableSSL: aws.Bool(cfg.DisableSSL),
	}
	if cfg.Endpoint != "" {
		ac.Endpoint = aws.String(cfg.Endpoint)
		ac.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		ac.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(ac)
	if err != nil {
		return nil, fmt.Errorf("s3store: create session: %w", err)
	}
	return sess, nil
}

// Bucket is one bucket on an S3 API.
type Bucket struct {
	api      s3iface.S3API
	uploader s3manageriface.UploaderAPI
	name     string
}

var (
	_ datasource.Store        = (*Bucket)(nil)
	_ datasource.ObjectWriter = (*Bucket)(nil)
)

// New returns a Bucket using sess for both requests and multipart uploads.
func New(sess *session.Session, bucket string) *Bucket {
	return &Bucket{api: s3.New(sess), uploader: s3manager.NewUploader(sess), name: bucket}
}

// NewWithAPI wires an existing client and uploader.
func NewWithAPI(api s3iface.S3API, uploader s3manageriface.UploaderAPI, bucket string) *Bucket {
	return &Bucket{api: api, uploader: uploader, name: bucket}
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// List returns every object under prefix, following pagination.
func (b *Bucket) List(ctx context.Context, prefix string) ([]datasource.Object, error) {
	var out []datasource.Object
	in := &s3.ListObjectsV2Input{Bucket: aws.String(b.name), Prefix: aws.String(prefix)}
	err := b.api.ListObjectsV2PagesWithContext(ctx, in, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, o := range page.Contents {
			out = append(out, datasource.Object{Key: aws.StringValue(o.Key), Size: aws.Int64Value(o.Size)})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: list s3://%s/%s: %w", b.name, prefix, err)
	}
	return out, nil
}

// Open fetches key. The caller closes the body.
func (b *Bucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	res, err := b.api.GetObjectWithContext(ctx, &s3.GetObjectInput{Bucket: aws.String(b.name), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3store: get s3://%s/%s: %w", b.name, key, ErrNotFound)
		}
		return nil, fmt.Errorf("s3store: get s3://%s/%s: %w", b.name, key, err)
	}
	return res.Body, nil
}

// Put streams r to key through the multipart uploader, so the length need
// not be known up front.
func (b *Bucket) Put(ctx context.Context, key string, r io.Reader) error {
	_, err := b.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("s3store: upload s3://%s/%s: %w", b.name, key, err)
	}
	return nil
}

// PutEmpty writes a zero-length object at key.
func (b *Bucket) PutEmpty(ctx context.Context, key string) error {
	_, err := b.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.name),
		Key:           aws.String(key),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return fmt.Errorf("s3store: put s3://%s/%s: %w", b.name, key, err)
	}
	return nil
}

// Head reports whether key exists. Only a definite "not found" yields
// (false, nil); any other failure is returned.
func (b *Bucket) Head(ctx context.Context, key string) (bool, error) {
	_, err := b.api.HeadObjectWithContext(ctx, &s3.HeadObjectInput{Bucket: aws.String(b.name), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3store: head s3://%s/%s: %w", b.name, key, err)
}

// Delete removes key. Deleting a missing key succeeds.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.api.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{Bucket: aws.String(b.name), Key: aws.String(key)})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3store: delete s3://%s/%s: %w", b.name, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, "NotFound":
		return true
	}
	return strings.Contains(aerr.Code(), "NotFound")
}
