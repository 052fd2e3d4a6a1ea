// Package uploads stores user files in S3.
package uploads

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// ObjectPutter is the slice of the S3 client the uploader uses
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Logger is the logger used by the uploader
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Result is returned for a stored object
type Result struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Upload is a file to store for a user
type Upload struct {
	UserID      string
	Body        io.Reader
	Size        int64
	ContentType string
}

// S3Uploader writes public objects under <userID>/<uuid>
type S3Uploader struct {
	client   ObjectPutter
	bucket   string
	endpoint string
	logger   Logger
	newKey   func(userID string) string
}

// Options configure an S3Uploader
type Options struct {
	Bucket string
	// Endpoint targets an S3 compatible store, objects are then addressed
	// path style as <endpoint>/<bucket>/<key>.
	Endpoint string
	Logger   Logger
}

// NewS3Uploader creates an uploader around client
func NewS3Uploader(client ObjectPutter, opts Options) *S3Uploader {
	return &S3Uploader{
		client:   client,
		bucket:   opts.Bucket,
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		logger:   opts.Logger,
		newKey: func(userID string) string {
			return userID + "/" + uuid.NewString()
		},
	}
}

// NewS3Client builds an S3 client from an SDK configuration
func NewS3Client(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

// Upload stores the file and returns its public URL
func (u *S3Uploader) Upload(ctx context.Context, in Upload) (*Result, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("upload: missing user id")
	}

	key := u.newKey(in.UserID)
	u.info("uploading file to S3", "user_id", in.UserID, "key", key)

	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   in.Body,
		ACL:    types.ObjectCannedACLPublicRead,
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}
	if in.Size > 0 {
		input.ContentLength = aws.Int64(in.Size)
	}

	out, err := u.client.PutObject(ctx, input)
	if err != nil {
		if u.logger != nil {
			u.logger.Error("S3 upload failed", "key", key, "error", err)
		}
		return nil, uploadError(err, u.bucket, key)
	}

	result := &Result{URL: u.objectURL(key), Key: key}
	u.info("file uploaded to S3", "url", result.URL)
	if u.logger != nil && out != nil {
		u.logger.Debug("S3 upload result", "etag", aws.ToString(out.ETag))
	}

	return result, nil
}

func (u *S3Uploader) objectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if u.endpoint != "" {
		return u.endpoint + "/" + u.bucket + "/" + escaped
	}
	return "https://" + u.bucket + ".s3.amazonaws.com/" + escaped
}

func (u *S3Uploader) info(msg string, args ...any) {
	if u.logger != nil {
		u.logger.Info(msg, args...)
	}
}
