package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// Upload kinds routed to separate storage prefixes.
const (
	KindSignature  = "signature"
	KindAttachment = "attachment"
)

var (
	S3Session       *session.Session
	S3Bucket        string
	S3Region        string
	CloudFrontURL   string
	UseLocalStorage bool = true // Toggle: true = local, false = S3
)

func InitS3(bucket, region, cloudfrontURL string) error {
	S3Bucket = bucket
	S3Region = region
	CloudFrontURL = cloudfrontURL

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return err
	}

	S3Session = sess
	UseLocalStorage = false
	return nil
}

func UploadFile(file *multipart.FileHeader, kind string) (string, error) {
	if UseLocalStorage {
		return UploadToLocal(file, kind)
	}
	return UploadToS3(file, kind)
}

func UploadToS3(file *multipart.FileHeader, kind string) (string, error) {
	if S3Session == nil {
		return "", fmt.Errorf("S3 not initialized, using local storage instead")
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	key := fmt.Sprintf("%s/%s/%s%s",
		kind,
		time.Now().Format("2006/01"),
		uuid.New().String(),
		ext,
	)

	svc := s3.New(S3Session)

	_, err = svc.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(S3Bucket),
		Key:         aws.String(key),
		Body:        src,
		ContentType: aws.String(file.Header.Get("Content-Type")),
	})

	if err != nil {
		return "", err
	}

	if CloudFrontURL != "" {
		return CloudFrontURL + "/" + key, nil
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		S3Bucket, S3Region, key), nil
}

func DeleteFile(url string) error {
	if UseLocalStorage {
		return DeleteFromLocal(url)
	}
	return DeleteFromS3(url)
}

func DeleteFromS3(url string) error {
	if S3Session == nil {
		return fmt.Errorf("S3 not initialized")
	}

	svc := s3.New(S3Session)
	key := extractKeyFromURL(url)
	if key == "" {
		return fmt.Errorf("cannot extract key from url: %s", url)
	}

	_, err := svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(S3Bucket),
		Key:    aws.String(key),
	})

	return err
}

func extractKeyFromURL(url string) string {
	if CloudFrontURL != "" && strings.HasPrefix(url, CloudFrontURL+"/") {
		return strings.TrimPrefix(url, CloudFrontURL+"/")
	}
	prefix := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", S3Bucket, S3Region)
	if strings.HasPrefix(url, prefix) {
		return strings.TrimPrefix(url, prefix)
	}
	return ""
}

func GetStorageMode() string {
	if UseLocalStorage {
		return "local"
	}
	return "s3"
}

func SetStorageMode(useLocal bool) {
	UseLocalStorage = useLocal
}
