// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dustin/go-humanize"
)

// ErrVersionExists means the target already holds an artifact under the
// candidate version tag. Published versions are immutable, so the publish
// is refused rather than overwritten.
var ErrVersionExists = errors.New("version already published at target")

// s3API is the slice of the S3 client the publisher uses; tests stub it.
type s3API interface {
	HeadObject(ctx context.Context, in *s3v2.HeadObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
}

// S3Target publishes versioned cache archives to an S3 bucket/prefix.
type S3Target struct {
	client s3API
	bucket string
	prefix string
}

// s3Options holds optional overrides for AWS config loading. Defaults
// inherit the shell environment and shared config chain (AWS_PROFILE,
// ~/.aws/config, ~/.aws/credentials, IMDS, etc.).
type s3Options struct {
	profile string
	region  string
	client  s3API
}

// S3Option customizes how the S3 target is constructed.
type S3Option func(*s3Options)

// WithProfile sets the shared config profile. Defaults to AWS_PROFILE/env chain.
func WithProfile(profile string) S3Option {
	return func(o *s3Options) { o.profile = profile }
}

// WithRegion sets the region override. Defaults to env/profile/metadata chain.
func WithRegion(region string) S3Option {
	return func(o *s3Options) { o.region = region }
}

// WithClient injects a prebuilt client, bypassing AWS config loading.
func WithClient(client s3API) S3Option {
	return func(o *s3Options) { o.client = client }
}

// NewS3Target parses an s3://bucket/prefix URL and builds a publisher for
// it.
func NewS3Target(ctx context.Context, rawURL string, opts ...S3Option) (*S3Target, error) {
	var o s3Options
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid publish target %q: %w", rawURL, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return nil, fmt.Errorf("invalid publish target %q: want s3://bucket[/prefix]", rawURL)
	}

	target := &S3Target{
		client: o.client,
		bucket: u.Host,
		prefix: strings.Trim(u.Path, "/"),
	}

	if target.client == nil {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if o.profile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(o.profile))
		}
		if o.region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(o.region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		target.client = s3v2.NewFromConfig(cfg)
	}

	return target, nil
}

// key is the object key for a version's artifact.
func (t *S3Target) key(version string) string {
	name := fmt.Sprintf("filters-%s.tar.gz", version)
	if t.prefix == "" {
		return name
	}
	return t.prefix + "/" + name
}

// Publish packs genDir and uploads it under the version tag. The upload is
// refused with ErrVersionExists when the key is already present.
func (t *S3Target) Publish(ctx context.Context, version, genDir string) error {
	key := t.key(version)

	_, err := t.client.HeadObject(ctx, &s3v2.HeadObjectInput{
		Bucket: awsv2.String(t.bucket),
		Key:    awsv2.String(key),
	})
	if err == nil {
		return fmt.Errorf("s3://%s/%s: %w", t.bucket, key, ErrVersionExists)
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to probe s3://%s/%s: %w", t.bucket, key, err)
	}

	// Build the archive in a temp file so the upload has a known length
	// and a failed pack never leaves a truncated object behind.
	tmp, err := os.CreateTemp("", "svoctl-publish-*.tar.gz")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := Pack(genDir, tmp); err != nil {
		return fmt.Errorf("failed to pack %s: %w", genDir, err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return err
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return err
	}

	_, err = t.client.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket:        awsv2.String(t.bucket),
		Key:           awsv2.String(key),
		Body:          tmp,
		ContentLength: awsv2.Int64(info.Size()),
		ContentType:   awsv2.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", t.bucket, key, err)
	}

	log.Infof("published s3://%s/%s (%s)", t.bucket, key, humanize.Bytes(uint64(info.Size())))
	return nil
}
