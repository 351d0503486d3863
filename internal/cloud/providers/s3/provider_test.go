package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
)

// mockAPIError implements smithy.APIError for testing error code mapping.
type mockAPIError struct {
	code    string
	message string
}

func (e *mockAPIError) Error() string                 { return fmt.Sprintf("%s: %s", e.code, e.message) }
func (e *mockAPIError) ErrorCode() string             { return e.code }
func (e *mockAPIError) ErrorMessage() string          { return e.message }
func (e *mockAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

var _ smithy.APIError = (*mockAPIError)(nil)

// fakeAPI records inputs and returns canned outputs.
type fakeAPI struct {
	listInputs []*s3.ListObjectsV2Input
	listOut    *s3.ListObjectsV2Output
	bucketOuts []*s3.ListBucketsOutput
	copyInput  *s3.CopyObjectInput
	putInput   *s3.PutObjectInput
	err        error
}

func (f *fakeAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listInputs = append(f.listInputs, in)
	return f.listOut, f.err
}

func (f *fakeAPI) ListBuckets(ctx context.Context, in *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.bucketOuts[0]
	f.bucketOuts = f.bucketOuts[1:]
	return out, nil
}

func (f *fakeAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(42), ContentType: aws.String("text/csv"), ETag: aws.String(`"abc"`)}, nil
}

func (f *fakeAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("hello")), ContentLength: aws.Int64(5)}, nil
}

func (f *fakeAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putInput = in
	return &s3.PutObjectOutput{}, f.err
}

func (f *fakeAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, f.err
}

func (f *fakeAPI) CopyObject(ctx context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.copyInput = in
	return &s3.CopyObjectOutput{}, f.err
}

func TestListPage_ConvertsOutput(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{listOut: &s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("reports/"), Size: aws.Int64(0)},
			{Key: aws.String("reports/a.csv"), Size: aws.Int64(10), LastModified: &modified, ETag: aws.String(`"e1"`), StorageClass: types.ObjectStorageClassStandard},
		},
		CommonPrefixes:        []types.CommonPrefix{{Prefix: aws.String("reports/2024/")}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("tok-2"),
		KeyCount:              aws.Int32(3),
	}}
	p := newProvider(api)

	page, err := p.ListPage(context.Background(), storage.ListRequest{
		Bucket:            "data",
		Prefix:            "reports/",
		Delimiter:         "/",
		MaxKeys:           5000,
		ContinuationToken: "tok-1",
	})
	require.NoError(t, err)

	in := api.listInputs[0]
	assert.Equal(t, "data", aws.ToString(in.Bucket))
	assert.Equal(t, "reports/", aws.ToString(in.Prefix))
	assert.Equal(t, "/", aws.ToString(in.Delimiter))
	assert.Equal(t, int32(1000), aws.ToInt32(in.MaxKeys))
	assert.Equal(t, "tok-1", aws.ToString(in.ContinuationToken))

	assert.Equal(t, []string{"reports/2024/"}, page.Prefixes)
	require.Len(t, page.Objects, 2)
	assert.Equal(t, "e1", page.Objects[1].ETag)
	assert.Equal(t, "STANDARD", page.Objects[1].StorageClass)
	assert.Equal(t, &modified, page.Objects[1].LastModified)
	assert.True(t, page.IsTruncated)
	assert.Equal(t, "tok-2", page.ContinuationToken)
	assert.Equal(t, 3, page.KeyCount)

	files := page.Files()
	require.Len(t, files, 1, "the folder placeholder object is not a file")
	assert.Equal(t, "reports/a.csv", files[0].Key)
}

func TestListPage_LastPageHasNoToken(t *testing.T) {
	api := &fakeAPI{listOut: &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false), NextContinuationToken: aws.String("stale")}}
	page, err := newProvider(api).ListPage(context.Background(), storage.ListRequest{Bucket: "data"})
	require.NoError(t, err)
	assert.False(t, page.IsTruncated)
	assert.Empty(t, page.ContinuationToken)
	assert.Nil(t, api.listInputs[0].Prefix)
}

func TestListPage_WrapsErrors(t *testing.T) {
	api := &fakeAPI{err: &types.NoSuchBucket{}}
	_, err := newProvider(api).ListPage(context.Background(), storage.ListRequest{Bucket: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrBucketNotFound)

	var pe *storage.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "ListObjectsV2", pe.Op)
	assert.Equal(t, "missing", pe.Bucket)
}

func TestListBuckets_FollowsTokens(t *testing.T) {
	api := &fakeAPI{bucketOuts: []*s3.ListBucketsOutput{
		{Buckets: []types.Bucket{{Name: aws.String("a")}}, ContinuationToken: aws.String("next")},
		{Buckets: []types.Bucket{{Name: aws.String("b")}}},
	}}
	buckets, err := newProvider(api).ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "a", buckets[0].Name)
	assert.Equal(t, "b", buckets[1].Name)
}

func TestHeadAndGet(t *testing.T) {
	p := newProvider(&fakeAPI{})

	info, err := p.Head(context.Background(), "data", "a.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.Size)
	assert.Equal(t, "abc", info.ETag)
	assert.Equal(t, "text/csv", info.ContentType)

	body, info, err := p.Get(context.Background(), "data", "a.csv")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), info.Size)
}

func TestPutSetsContentType(t *testing.T) {
	api := &fakeAPI{}
	err := newProvider(api).Put(context.Background(), "data", "notes.txt", strings.NewReader("x"), 1, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", aws.ToString(api.putInput.ContentType))
	assert.Equal(t, int64(1), aws.ToInt64(api.putInput.ContentLength))
}

func TestCopyEncodesSource(t *testing.T) {
	api := &fakeAPI{}
	err := newProvider(api).Copy(context.Background(), "data", "my docs/a+b.txt", "archive/a+b.txt")
	require.NoError(t, err)
	assert.Equal(t, "data/my%20docs/a+b.txt", aws.ToString(api.copyInput.CopySource))
	assert.Equal(t, "archive/a+b.txt", aws.ToString(api.copyInput.Key))
}

func TestWrapError_Codes(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"NoSuchKey", storage.ErrNotFound},
		{"NotFound", storage.ErrNotFound},
		{"NoSuchBucket", storage.ErrBucketNotFound},
		{"AccessDenied", storage.ErrAccessDenied},
		{"InvalidAccessKeyId", storage.ErrInvalidCredentials},
		{"SignatureDoesNotMatch", storage.ErrInvalidCredentials},
		{"SlowDown", storage.ErrThrottled},
		{"ServiceUnavailable", storage.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := &mockAPIError{code: tt.code, message: "test message"}
			err := wrapError("HeadObject", "data", "a.csv", apiErr)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorAs(t, err, new(smithy.APIError), "the SDK error stays reachable")
		})
	}
}

func TestWrapError_Unrecognised(t *testing.T) {
	err := wrapError("GetObject", "data", "a.csv", errors.New("boom"))
	var pe *storage.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Nil(t, pe.Kind)
	assert.Equal(t, "s3 GetObject: data/a.csv: boom", err.Error())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, Config{AccessKeyID: "AKIA", SecretAccessKey: "secret"}.Validate())
	assert.Error(t, Config{AccessKeyID: "AKIA"}.Validate())
	assert.Error(t, Config{SecretAccessKey: "secret"}.Validate())
}

func TestClampMaxKeys(t *testing.T) {
	assert.Equal(t, 1000, clampMaxKeys(0))
	assert.Equal(t, 1000, clampMaxKeys(-3))
	assert.Equal(t, 250, clampMaxKeys(250))
	assert.Equal(t, 1000, clampMaxKeys(1001))
}
