package s3storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const wavContentType = "audio/wav"

// MinIOClient wraps the MinIO client for generated noise files
type MinIOClient struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

// NewMinIOClient creates a new MinIO client and ensures bucket exists
func NewMinIOClient(ctx context.Context, endpoint, accessKey, secretKey, bucketName, prefix string, useSSL bool) (*MinIOClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	mc := &MinIOClient{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mc.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return mc, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// ObjectName builds the key of a generated file.
// Format: prefix/runID/basename.wav
func ObjectName(prefix, runID, basename string) string {
	return path.Join(prefix, runID, basename+".wav")
}

// Publish uploads the wave file at filePath and returns its object name
func (m *MinIOClient) Publish(ctx context.Context, runID, basename, filePath string) (string, error) {
	objectName := ObjectName(m.prefix, runID, basename)

	_, err := m.client.FPutObject(
		ctx,
		m.bucketName,
		objectName,
		filePath,
		minio.PutObjectOptions{
			ContentType: wavContentType,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload to minio: %w", err)
	}

	return objectName, nil
}
