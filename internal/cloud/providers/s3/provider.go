package s3

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/models"
)

// api is the subset of *s3.Client the provider calls.
type api interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	ListBuckets(ctx context.Context, in *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// Provider implements storage.ObjectStore for S3.
type Provider struct {
	client   api
	region   string
	metaOpts []func(*s3.Options)
}

var _ storage.ObjectStore = (*Provider)(nil)

func newProvider(client api) *Provider {
	return &Provider{client: client}
}

// Backend implements storage.ObjectStore.
func (p *Provider) Backend() string { return ProviderName }

// Region returns the resolved signing region.
func (p *Provider) Region() string { return p.region }

// ListPage issues one ListObjectsV2 call.
func (p *Provider) ListPage(ctx context.Context, req storage.ListRequest) (*models.Page, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(req.Bucket),
		MaxKeys: aws.Int32(int32(clampMaxKeys(req.MaxKeys))),
	}
	if req.Prefix != "" {
		input.Prefix = aws.String(req.Prefix)
	}
	if req.Delimiter != "" {
		input.Delimiter = aws.String(req.Delimiter)
	}
	if req.ContinuationToken != "" {
		input.ContinuationToken = aws.String(req.ContinuationToken)
	}

	output, err := p.client.ListObjectsV2(ctx, input, p.metaOpts...)
	if err != nil {
		return nil, wrapError("ListObjectsV2", req.Bucket, req.Prefix, err)
	}

	page := &models.Page{
		Prefix:      req.Prefix,
		Objects:     make([]models.Entry, 0, len(output.Contents)),
		Prefixes:    make([]string, 0, len(output.CommonPrefixes)),
		IsTruncated: aws.ToBool(output.IsTruncated),
		KeyCount:    int(aws.ToInt32(output.KeyCount)),
	}
	for _, obj := range output.Contents {
		page.Objects = append(page.Objects, models.Entry{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: obj.LastModified,
			ETag:         cleanETag(aws.ToString(obj.ETag)),
			StorageClass: string(obj.StorageClass),
		})
	}
	for _, cp := range output.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, aws.ToString(cp.Prefix))
	}
	if page.IsTruncated {
		page.ContinuationToken = aws.ToString(output.NextContinuationToken)
	}

	return page, nil
}

// ListBuckets follows continuation tokens until every bucket is returned.
func (p *Provider) ListBuckets(ctx context.Context) ([]models.Bucket, error) {
	var buckets []models.Bucket
	input := &s3.ListBucketsInput{}
	for {
		output, err := p.client.ListBuckets(ctx, input, p.metaOpts...)
		if err != nil {
			return nil, wrapError("ListBuckets", "", "", err)
		}
		for _, b := range output.Buckets {
			buckets = append(buckets, models.Bucket{
				Name:         aws.ToString(b.Name),
				CreationDate: b.CreationDate,
			})
		}
		token := aws.ToString(output.ContinuationToken)
		if token == "" {
			return buckets, nil
		}
		input.ContinuationToken = aws.String(token)
	}
}

// Head implements storage.ObjectStore.
func (p *Provider) Head(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error) {
	output, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, p.metaOpts...)
	if err != nil {
		return nil, wrapError("HeadObject", bucket, key, err)
	}
	return &storage.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(output.ContentLength),
		ContentType:  aws.ToString(output.ContentType),
		ETag:         cleanETag(aws.ToString(output.ETag)),
		LastModified: aws.ToTime(output.LastModified),
	}, nil
}

// Get implements storage.ObjectStore.
func (p *Provider) Get(ctx context.Context, bucket, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	output, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, wrapError("GetObject", bucket, key, err)
	}
	return output.Body, &storage.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(output.ContentLength),
		ContentType:  aws.ToString(output.ContentType),
		ETag:         cleanETag(aws.ToString(output.ETag)),
		LastModified: aws.ToTime(output.LastModified),
	}, nil
}

// Put implements storage.ObjectStore. Non-seekable bodies need a TLS endpoint.
func (p *Provider) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return wrapError("PutObject", bucket, key, err)
	}
	return nil
}

// Delete implements storage.ObjectStore. Deleting a missing key succeeds.
func (p *Provider) Delete(ctx context.Context, bucket, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, p.metaOpts...)
	if err != nil {
		return wrapError("DeleteObject", bucket, key, err)
	}
	return nil
}

// Copy implements storage.ObjectStore with a server-side CopyObject.
func (p *Provider) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	_, err := p.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(bucket, srcKey)),
	}, p.metaOpts...)
	if err != nil {
		return wrapError("CopyObject", bucket, srcKey, err)
	}
	return nil
}

// copySource URL-encodes bucket/key, keeping the slashes.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// cleanETag removes the quotes S3 puts around ETags.
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}

// clampMaxKeys keeps a page size within 1..1000.
func clampMaxKeys(requested int) int {
	if requested <= 0 || requested > constants.DefaultMaxKeys {
		return constants.DefaultMaxKeys
	}
	return requested
}
