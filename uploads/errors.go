package uploads

import (
	"errors"

	"github.com/aws/smithy-go"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNoFile        = "NO_FILE"
	TextCodeUploadFailed  = "UPLOAD_FAILED"
	TextCodeS3Credentials = "S3_INVALID_CREDENTIALS"
	TextCodeS3NoBucket    = "S3_NO_SUCH_BUCKET"
	TextCodeS3Denied      = "S3_ACCESS_DENIED"
)

// ErrNoFile is returned when the multipart request has no file part
var ErrNoFile = goerrors.New("No file uploaded", goerrors.CategoryBadInput).
	WithTextCode(TextCodeNoFile).
	WithCode(goerrors.CodeBadRequest)

// ErrUploadFailed is returned for S3 failures without a friendlier mapping
var ErrUploadFailed = goerrors.New("File upload failed", goerrors.CategoryOperation).
	WithTextCode(TextCodeUploadFailed).
	WithCode(goerrors.CodeInternal)

var s3Messages = map[string]struct {
	message  string
	textCode string
}{
	"InvalidAccessKeyId":    {"AWS S3: Invalid Access Key ID. Please check your AWS credentials.", TextCodeS3Credentials},
	"SignatureDoesNotMatch": {"AWS S3: Invalid Secret Access Key. Please check your AWS credentials.", TextCodeS3Credentials},
	"NoSuchBucket":          {"AWS S3: The specified bucket does not exist.", TextCodeS3NoBucket},
	"AccessDenied":          {"AWS S3: Access denied. Check your bucket policy and IAM permissions.", TextCodeS3Denied},
}

// uploadError turns an S3 API error into a 500 with a readable message
func uploadError(err error, bucket, key string) error {
	meta := map[string]any{"bucket": bucket, "key": key}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		meta["aws_code"] = apiErr.ErrorCode()
		if m, ok := s3Messages[apiErr.ErrorCode()]; ok {
			e := goerrors.New(m.message, goerrors.CategoryOperation).
				WithTextCode(m.textCode).
				WithCode(goerrors.CodeInternal).
				WithMetadata(meta)
			e.Source = err
			return e
		}
	}

	clone := ErrUploadFailed.Clone()
	clone.Source = err
	return clone.WithMetadata(meta)
}
