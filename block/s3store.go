package block

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sharedcode/storeengine"
)

// S3Endpoint configures an explicit (non-default-credential-chain) S3-compatible endpoint,
// e.g. a self-hosted Minio instance fronting a block store.
type S3Endpoint struct {
	HostEndpointURL string
	Region          string
	Username        string
	Password        string
}

// ConnectS3Endpoint builds a client against an explicit host/region/static-credential
// endpoint, for S3-compatible stores outside the default AWS credential chain.
func ConnectS3Endpoint(ep S3Endpoint) *s3.Client {
	return s3.NewFromConfig(aws.Config{Region: ep.Region}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(ep.HostEndpointURL)
		o.Credentials = credentials.NewStaticCredentialsProvider(ep.Username, ep.Password, "")
	})
}

// ConnectS3Default builds a client against the standard AWS default credential chain
// (environment, shared config file, instance role), for real AWS S3 buckets.
func ConnectS3Default(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading default AWS configuration: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// S3Store is an object-storage-backed Writer using the aws-sdk-go-v2 s3/manager
// uploader/downloader. Used when an operator wants blocks parked in object storage instead of
// local disk.
type S3Store struct {
	bucket     string
	prefix     string
	uploader   *manager.Uploader
	downloader *manager.Downloader
	client     *s3.Client
	next       uint32
}

// NewS3Store creates an S3Store writing objects under bucket/prefix, using client -- built via
// ConnectS3Endpoint or ConnectS3Default depending on how the target bucket authenticates.
func NewS3Store(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		bucket:     bucket,
		prefix:     prefix,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		client:     client,
	}
}

func (s *S3Store) key(addr Addr) string {
	return fmt.Sprintf("%s/%08x.blk", s.prefix, uint32(addr))
}

func (s *S3Store) Write(ctx context.Context, buf []byte) (Addr, uint32, error) {
	addr := Addr(atomic.AddUint32(&s.next, 1))
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(addr)),
		Body:   bytes.NewReader(buf),
	})
	if err != nil {
		return ADDR_INVALID, 0, storeengine.Error{Code: storeengine.IOError, Err: err, UserData: addr}
	}
	return addr, uint32(len(buf)), nil
}

func (s *S3Store) Read(ctx context.Context, addr Addr, size uint32) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(make([]byte, 0, size))
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(addr)),
	})
	if err != nil && err != io.EOF {
		return nil, storeengine.Error{Code: storeengine.IOError, Err: err, UserData: addr}
	}
	return buf.Bytes(), nil
}

func (s *S3Store) Free(ctx context.Context, addr Addr, size uint32) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(addr)),
	})
	if err != nil {
		return storeengine.Error{Code: storeengine.IOError, Err: err, UserData: addr}
	}
	return nil
}
