// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package s3store implements the image backend on top of an S3
// compatible object store. Each image is a single object; what the
// driver knows about it is kept in the object's user metadata.
package s3store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/juju/vixdriver/internal/imagecache"
)

var logger = loggo.GetLogger("vix.imagecache.s3store")

// User metadata keys. S3 folds them to lower case.
const (
	metaName            = "name"
	metaDiskFormat      = "disk-format"
	metaContainerFormat = "container-format"
	metaChecksum        = "checksum"
	metaProperties      = "properties"
)

// S3API is the subset of the S3 client used by the store.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds the settings of a Store.
type Config struct {
	Client S3API
	Bucket string

	// Prefix is prepended to image ids to form object keys.
	Prefix string

	// NewID returns the id of an uploaded image. It defaults to a
	// random UUID.
	NewID func() string
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Client == nil {
		return errors.NotValidf("nil Client")
	}
	if c.Bucket == "" {
		return errors.NotValidf("empty Bucket")
	}
	return nil
}

// Store is an imagecache.Backend backed by an S3 bucket.
type Store struct {
	client S3API
	bucket string
	prefix string
	newID  func() string
}

var _ imagecache.Backend = (*Store)(nil)

// New returns a Store using the given configuration.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Store{
		client: cfg.Client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		newID:  newID,
	}, nil
}

// ClientConfig describes how to reach the object store.
type ClientConfig struct {
	Region string

	// Endpoint selects an S3 compatible service other than AWS. Path
	// style addressing is used when it is set.
	Endpoint string
}

// NewClient builds an S3 client from the default credential chain.
func NewClient(ctx context.Context, cc ClientConfig) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cc.Region))
	if err != nil {
		return nil, errors.Annotate(err, "loading AWS configuration")
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if cc.Endpoint != "" {
			o.BaseEndpoint = aws.String(cc.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *Store) key(id string) string {
	return path.Join(s.prefix, id)
}

// Metadata is part of the imagecache.Backend interface.
func (s *Store) Metadata(ctx context.Context, id string) (imagecache.Metadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if isNotFound(err) {
		return imagecache.Metadata{}, errors.NotFoundf("image %q", id)
	} else if err != nil {
		return imagecache.Metadata{}, errors.Annotatef(err, "reading image %q", id)
	}
	meta := imagecache.Metadata{
		ID:              id,
		Name:            out.Metadata[metaName],
		DiskFormat:      out.Metadata[metaDiskFormat],
		ContainerFormat: out.Metadata[metaContainerFormat],
		Checksum:        out.Metadata[metaChecksum],
		Size:            aws.ToInt64(out.ContentLength),
	}
	if meta.Properties, err = decodeProperties(out.Metadata[metaProperties]); err != nil {
		return imagecache.Metadata{}, errors.Annotatef(err, "image %q", id)
	}
	return meta, nil
}

// Download is part of the imagecache.Backend interface.
func (s *Store) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if isNotFound(err) {
		return 0, errors.NotFoundf("image %q", id)
	} else if err != nil {
		return 0, errors.Annotatef(err, "getting image %q", id)
	}
	defer out.Body.Close()
	n, err := io.Copy(w, out.Body)
	return n, errors.Annotatef(err, "reading image %q", id)
}

// Upload is part of the imagecache.Backend interface. When r can seek
// the contents are hashed first so the checksum is stored alongside the
// object.
func (s *Store) Upload(ctx context.Context, meta imagecache.Metadata, r io.Reader) (imagecache.Metadata, error) {
	meta.ID = s.newID()
	if seeker, ok := r.(io.ReadSeeker); ok && meta.Checksum == "" {
		hash := md5.New()
		if _, err := io.Copy(hash, seeker); err != nil {
			return imagecache.Metadata{}, errors.Trace(err)
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return imagecache.Metadata{}, errors.Trace(err)
		}
		meta.Checksum = hex.EncodeToString(hash.Sum(nil))
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(meta.ID)),
		Body:        r,
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			metaName:            meta.Name,
			metaDiskFormat:      meta.DiskFormat,
			metaContainerFormat: meta.ContainerFormat,
			metaChecksum:        meta.Checksum,
		},
	}
	if meta.Size > 0 {
		input.ContentLength = aws.Int64(meta.Size)
	}
	if len(meta.Properties) > 0 {
		input.Metadata[metaProperties] = encodeProperties(meta.Properties)
	}
	logger.Debugf("putting image %q as s3://%s/%s", meta.Name, s.bucket, s.key(meta.ID))
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return imagecache.Metadata{}, errors.Annotatef(err, "putting image %q", meta.Name)
	}
	return meta, nil
}

func encodeProperties(props map[string]string) string {
	values := make(url.Values, len(props))
	for k, v := range props {
		values.Set(k, v)
	}
	return values.Encode()
}

func decodeProperties(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, errors.NotValidf("properties %q", raw)
	}
	props := make(map[string]string, len(values))
	for k := range values {
		props[k] = values.Get(k)
	}
	return props, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var (
		notFound *types.NotFound
		noKey    *types.NoSuchKey
		respErr  *awshttp.ResponseError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &noKey):
		return true
	case errors.As(err, &respErr):
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
