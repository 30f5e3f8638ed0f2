package aws

import (
	"context"
	"fmt"
	"os"
	"time"

	"guilance/src/config"
	"guilance/src/lib"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const presignTTL = time.Hour

// S3UploadAsset uploads the file at f to the assets bucket under name and returns a presigned
// GET URL valid for an hour.
func S3UploadAsset(ctx context.Context, name string, f string, contentType string) (*string, error) {
	assetsBucket := config.Get().AWS.AssetsBucket
	if assetsBucket == "" {
		return nil, fmt.Errorf("assets bucket not configured")
	}
	client := lib.AWSGetS3Client()
	if client == nil {
		return nil, fmt.Errorf("s3 client unavailable")
	}
	file, err := os.Open(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f, err)
	}
	defer file.Close()
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(assetsBucket),
		Key:         aws.String(name),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", name, err)
	}
	err = s3.NewObjectExistsWaiter(client).Wait(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(assetsBucket),
		Key:    aws.String(name),
	}, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("wait for object %s: %w", name, err)
	}
	zap.L().Info("uploaded asset", zap.String("key", name), zap.String("bucket", assetsBucket))
	pre := s3.NewPresignClient(client)
	r, err := pre.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(assetsBucket),
		Key:    aws.String(name),
	}, func(po *s3.PresignOptions) {
		po.Expires = presignTTL
	})
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", name, err)
	}
	return &r.URL, nil
}
