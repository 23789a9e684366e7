// Package store lands datasets in S3-compatible object storage and lists what is there.
//
// Every list call is a fresh read. A Put followed immediately by ListObjects may or may not
// observe the new object: that depends on the read-after-write consistency of the back end,
// and the client makes no guarantee about it.
package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"datalanding/dataset"
	"datalanding/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// log a convenience wrapper to shorten code lines
var log = utils.Logger

const (
	defaultRegion  = "us-east-1"
	defaultTimeout = 30 * time.Second
	bytesPerMB     = 1024 * 1024
)

// API is the subset of the S3 client used by Client.
type API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ API = (*s3.Client)(nil)

// Options configures the connection to the object store. They are fixed for the lifetime of a Client.
type Options struct {
	// Endpoint of an S3-compatible service, for example "https://cluster:9000". Empty means AWS.
	Endpoint string
	Region   string

	// AccessKey and SecretKey are static credentials. When empty the default credential chain is used,
	// optionally narrowed by CredentialsFile and Profile.
	AccessKey       string
	SecretKey       string
	CredentialsFile string
	Profile         string

	// CABundle is a PEM file with additional trusted certificate authorities.
	CABundle string

	// UsePathStyle addresses buckets as endpoint/bucket, which most S3-compatible services require.
	UsePathStyle bool

	// Timeout bounds every HTTP request made by the client.
	Timeout time.Duration
}

// ObjectInfo describes a single object in a bucket.
type ObjectInfo struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size_bytes"`
	Modified time.Time `json:"modified"`
}

// PutResult describes a successful Put.
type PutResult struct {
	Bucket        string
	Key           string
	ContentType   string
	Size          int64
	BucketCreated bool
}

// PrefixSummary aggregates the objects stored under a prefix.
type PrefixSummary struct {
	Folder      string  `json:"folder"`
	ObjectCount int     `json:"object_count"`
	TotalSize   int64   `json:"total_size_bytes"`
	TotalSizeMB float64 `json:"total_size_mb"`
}

// Client is a synchronous object store client. It holds no caches and performs no retries.
type Client struct {
	api    API
	region string
}

// NewClient builds a Client from Options.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = defaultRegion
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		// a single attempt: retrying is left to the caller
		config.WithRetryMaxAttempts(1),
		config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(timeout)),
		// S3-compatible stores reject the newer default integrity checksums
		config.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
		config.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
	}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	if opts.CredentialsFile != "" {
		loadOptions = append(loadOptions, config.WithSharedCredentialsFiles([]string{opts.CredentialsFile}))
	}
	if opts.Profile != "" {
		loadOptions = append(loadOptions, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.CABundle != "" {
		bundle, err := os.ReadFile(opts.CABundle)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle %s: %w", opts.CABundle, err)
		}
		loadOptions = append(loadOptions, config.WithCustomCABundle(bytes.NewReader(bundle)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	log.Debug("Object store client created", zap.String("endpoint", opts.Endpoint),
		zap.String("region", region), zap.Bool("pathStyle", opts.UsePathStyle), zap.Duration("timeout", timeout))
	return &Client{api: client, region: region}, nil
}

// NewClientFromAPI wraps an already configured S3 API implementation.
func NewClientFromAPI(api API, region string) *Client {
	if region == "" {
		region = defaultRegion
	}
	return &Client{api: api, region: region}
}

// ListBuckets returns the names of all buckets visible to the credentials.
func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	output, err := c.api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		log.Error("Failed to list buckets", zap.Error(err))
		return nil, unavailable("list buckets", err)
	}
	names := make([]string, 0, len(output.Buckets))
	for _, bucket := range output.Buckets {
		names = append(names, aws.ToString(bucket.Name))
	}
	log.Debug("Listed buckets", zap.Int("count", len(names)))
	return names, nil
}

// ListObjects returns every object in the bucket with its size and modification time.
// A bucket that does not exist is reported as empty, the same as a bucket without objects.
func (c *Client) ListObjects(ctx context.Context, bucket string) ([]ObjectInfo, error) {
	objects := make([]ObjectInfo, 0)
	err := c.walk(ctx, bucket, "", func(object types.Object) {
		objects = append(objects, ObjectInfo{
			Key:      aws.ToString(object.Key),
			Size:     aws.ToInt64(object.Size),
			Modified: aws.ToTime(object.LastModified),
		})
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// SummarizePrefix counts the objects under prefix and adds up their sizes.
// A trailing "/" is appended to a non-empty prefix, so "users" matches "users/a.json" but never "users.csv".
func (c *Client) SummarizePrefix(ctx context.Context, bucket, prefix string) (PrefixSummary, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	summary := PrefixSummary{Folder: fmt.Sprintf("s3://%s/%s", bucket, prefix)}
	err := c.walk(ctx, bucket, prefix, func(object types.Object) {
		log.Trace("Object", zap.String("key", aws.ToString(object.Key)), zap.Int64("size", aws.ToInt64(object.Size)))
		summary.ObjectCount++
		summary.TotalSize += aws.ToInt64(object.Size)
	})
	if err != nil {
		return PrefixSummary{}, err
	}
	summary.TotalSizeMB = float64(summary.TotalSize) / bytesPerMB
	return summary, nil
}

// walk pages through all objects of a bucket whose keys start with prefix.
func (c *Client) walk(ctx context.Context, bucket, prefix string, visit func(types.Object)) error {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	paginator := s3.NewListObjectsV2Paginator(c.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isNoSuchBucket(err) {
				log.Debug("Bucket does not exist, listing it as empty", zap.String("bucket", bucket))
				return nil
			}
			log.Error("Failed to list objects", zap.String("bucket", bucket), zap.Error(err))
			return unavailable("list objects in "+bucket, err)
		}
		for _, object := range page.Contents {
			visit(object)
		}
	}
	return nil
}

// Put serializes the dataset and uploads it under key, creating the bucket first when it is missing.
// A nil error means the object was written.
func (c *Client) Put(ctx context.Context, ds *dataset.Dataset, bucket, key string, format dataset.Format) (PutResult, error) {
	contentType := format.ContentType()
	if contentType == "" {
		return PutResult{}, fmt.Errorf("%w: %q", dataset.ErrUnsupportedFormat, string(format))
	}
	if err := ValidateBucketName(bucket); err != nil {
		return PutResult{}, err
	}
	if err := ValidateKey(key); err != nil {
		return PutResult{}, err
	}

	result := PutResult{Bucket: bucket, Key: key, ContentType: contentType}

	buckets, err := c.ListBuckets(ctx)
	if err != nil {
		return PutResult{}, err
	}
	if !slices.Contains(buckets, bucket) {
		if err := c.createBucket(ctx, bucket); err != nil {
			log.Error("Failed to create bucket", zap.String("bucket", bucket), zap.Error(err))
			return PutResult{}, &BucketCreateError{Bucket: bucket, Err: err}
		}
		log.Info("Created bucket", zap.String("bucket", bucket))
		result.BucketCreated = true
	}

	body, err := dataset.Serialize(ds, format)
	if err != nil {
		log.Error("Failed to serialize", zap.String("key", key), zap.String("bucket", bucket), zap.Error(err))
		return PutResult{}, &UploadError{Bucket: bucket, Key: key, Err: err}
	}
	result.Size = int64(len(body))

	log.Info("Uploading file with key", zap.String("key", key), zap.String("contentType", contentType))
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(result.Size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		log.Error("Failed to upload", zap.String("key", key), zap.String("bucket", bucket), zap.Error(err))
		return PutResult{}, &UploadError{Bucket: bucket, Key: key, Err: err}
	}
	log.Info("Successfully uploaded", zap.String("key", key), zap.String("bucket", bucket),
		zap.Int64("size", result.Size))
	return result, nil
}

func (c *Client) createBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	// us-east-1 is the one region that rejects an explicit location constraint
	if c.region != defaultRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}
	_, err := c.api.CreateBucket(ctx, input)
	return err
}

// GetObject opens an object for reading. The caller must close the returned reader.
func (c *Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	output, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, 0, unavailable("get object "+key, err)
	}
	return output.Body, aws.ToInt64(output.ContentLength), nil
}
