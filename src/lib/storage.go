package lib

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var s3Client *s3.Client

func GetS3Client() *s3.Client {
	if s3Client != nil {
		return s3Client
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Printf("Could not load default config: %s\n", err.Error())
		return nil
	}
	svc := s3.NewFromConfig(cfg)
	s3Client = svc
	return svc
}

// NewS3Client replaces the shared client, used by tests.
func NewS3Client(c *s3.Client) {
	s3Client = c
}

// StorePassportImage persists one uploaded identity document and returns the
// stored reference. When an uploads bucket is configured the file goes to
// S3; otherwise it is written under the local upload directory.
func StorePassportImage(ctx context.Context, keyPrefix string, filename string, contentType string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	bucket := os.Getenv("S3_UPLOADS_BUCKET")
	if bucket != "" {
		client := GetS3Client()
		if client == nil {
			return "", fmt.Errorf("uploads bucket %s configured but S3 client unavailable", bucket)
		}
		key := path.Join(keyPrefix, filename)
		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        src,
			ContentType: aws.String(contentType),
		})
		if err != nil {
			log.Printf("Could not put object to S3 bucket: %s\n", err.Error())
			return "", err
		}
		return fmt.Sprintf("s3://%s/%s", bucket, key), nil
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = path.Join("public", "uploads")
	}
	dir := path.Join(uploadDir, keyPrefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst, err := os.Create(path.Join(dir, filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return "/" + path.Join("uploads", keyPrefix, filename), nil
}
