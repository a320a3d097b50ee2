package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Writer uploads objects to the client's configured bucket.
type Writer struct {
	client *s3.Client
	bucket string
}

// NewWriter creates a Writer over the given client.
func NewWriter(c *Client) *Writer {
	return &Writer{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

// Put uploads data as a single PutObject request. Scan snapshots are small,
// so a one-shot upload is always sufficient.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	}

	if _, err := w.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", path, err)
	}
	return nil
}
