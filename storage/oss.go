package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStore writes to an Aliyun OSS bucket.
type OSSStore struct {
	bucket        *oss.Bucket
	bucketName    string
	endpoint      string
	publicBaseURL string
}

func NewOSSStore(endpoint, accessKeyID, accessKeySecret, bucketName, publicBaseURL string) (*OSSStore, error) {
	if endpoint == "" || accessKeyID == "" || accessKeySecret == "" || bucketName == "" {
		return nil, fmt.Errorf("missing env: OSS_ENDPOINT/ACCESS_KEY_ID/ACCESS_KEY_SECRET/BUCKET")
	}

	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bkt, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	if loc, err := client.GetBucketLocation(bucketName); err != nil {
		log.Printf("storage: skip oss location check for %s: %v", bucketName, err)
	} else {
		log.Printf("storage: oss bucket %s location %s", bucketName, loc)
	}

	return &OSSStore{
		bucket:        bkt,
		bucketName:    bucketName,
		endpoint:      endpoint,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *OSSStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("inline"),
		oss.CacheControl("public, max-age=31536000, immutable"),
	}
	if err := s.bucket.PutObject(key, bytes.NewReader(data), opts...); err != nil {
		return "", fmt.Errorf("oss put %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *OSSStore) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	host := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, host, key)
}
