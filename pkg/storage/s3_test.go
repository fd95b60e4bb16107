package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 7, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		prefix string
		ext    string
		want   string
	}{
		{"plain", "instacomments", "json", "instacomments/2024/03/07/Cabc-run1.json"},
		{"slashes trimmed", "/exports/ig/", ".csv", "exports/ig/2024/03/07/Cabc-run1.csv"},
		{"no prefix", "", "txt", "2024/03/07/Cabc-run1.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.prefix, "Cabc", "run1", tt.ext, at))
		})
	}
}

func TestObjectKeyUsesUTC(t *testing.T) {
	tz := time.FixedZone("UTC+5", 5*3600)
	at := time.Date(2024, 3, 8, 2, 0, 0, 0, tz)
	assert.Equal(t, "p/2024/03/07/C-r.json", ObjectKey("p", "C", "r", "json", at))
}

func TestS3UploaderUpload(t *testing.T) {
	putter := &fakePutter{}
	uploader := NewS3UploaderWithClient(putter, " bucket ", "/instacomments/")
	uploader.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	out, err := uploader.Upload(context.Background(), UploadInput{
		Shortcode: "Cabc",
		RunID:     "0b7c",
		Extension: "csv",
		Data:      []byte("username\nalice\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, "bucket", out.Bucket)
	assert.Equal(t, "instacomments/2024/01/02/Cabc-0b7c.csv", out.Key)
	assert.EqualValues(t, 15, out.Size)

	require.NotNil(t, putter.input)
	assert.Equal(t, "bucket", *putter.input.Bucket)
	assert.Equal(t, out.Key, *putter.input.Key)
	assert.Equal(t, "text/csv; charset=utf-8", *putter.input.ContentType)
	assert.EqualValues(t, 15, *putter.input.ContentLength)
	assert.Equal(t, "username\nalice\n", string(putter.body))
}

func TestS3UploaderErrors(t *testing.T) {
	putter := &fakePutter{err: errors.New("access denied")}
	uploader := NewS3UploaderWithClient(putter, "bucket", "")

	_, err := uploader.Upload(context.Background(), UploadInput{Shortcode: "C", RunID: "r", Extension: "json"})
	assert.ErrorContains(t, err, "access denied")

	_, err = uploader.Upload(context.Background(), UploadInput{Extension: "json"})
	assert.Error(t, err)
}

func TestNewS3UploaderValidation(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), S3Config{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket")

	_, err = NewS3Uploader(context.Background(), S3Config{Bucket: "b"})
	assert.ErrorContains(t, err, "region")

	uploader, err := NewS3Uploader(context.Background(), S3Config{
		Bucket:          "b",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "b", uploader.bucket)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", ContentType("json"))
	assert.Equal(t, "text/csv; charset=utf-8", ContentType(".csv"))
	assert.Equal(t, "text/plain; charset=utf-8", ContentType("txt"))
}
