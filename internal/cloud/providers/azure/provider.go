package azure

import (
	"context"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/models"
)

// copyPollInterval is how often a pending server-side copy is checked.
const copyPollInterval = 500 * time.Millisecond

// Provider implements storage.ObjectStore for Azure Blob Storage.
type Provider struct {
	client *azblob.Client
}

var _ storage.ObjectStore = (*Provider)(nil)

func newProvider(client *azblob.Client) *Provider {
	return &Provider{client: client}
}

// Backend implements storage.ObjectStore.
func (p *Provider) Backend() string { return ProviderName }

func (p *Provider) container(name string) *container.Client {
	return p.client.ServiceClient().NewContainerClient(name)
}

// ListPage fetches one hierarchy page. The continuation token is the
// Azure marker.
func (p *Provider) ListPage(ctx context.Context, req storage.ListRequest) (*models.Page, error) {
	delimiter := req.Delimiter
	if delimiter == "" {
		delimiter = constants.Delimiter
	}

	opts := &container.ListBlobsHierarchyOptions{
		MaxResults: to.Ptr(int32(clampMaxResults(req.MaxKeys))),
	}
	if req.Prefix != "" {
		opts.Prefix = to.Ptr(req.Prefix)
	}
	if req.ContinuationToken != "" {
		opts.Marker = to.Ptr(req.ContinuationToken)
	}

	pager := p.container(req.Bucket).NewListBlobsHierarchyPager(delimiter, opts)
	resp, err := pager.NextPage(ctx)
	if err != nil {
		return nil, wrapError("ListBlobs", req.Bucket, req.Prefix, err)
	}

	return pageFromSegment(req.Prefix, resp.ListBlobsHierarchySegmentResponse), nil
}

// pageFromSegment converts a hierarchy listing into a Page.
func pageFromSegment(prefix string, seg container.ListBlobsHierarchySegmentResponse) *models.Page {
	page := &models.Page{Prefix: prefix}

	if seg.Segment != nil {
		for _, item := range seg.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			entry := models.Entry{Key: *item.Name}
			if props := item.Properties; props != nil {
				entry.Size = deref(props.ContentLength)
				entry.LastModified = props.LastModified
				if props.ETag != nil {
					entry.ETag = string(*props.ETag)
				}
				if props.AccessTier != nil {
					entry.StorageClass = string(*props.AccessTier)
				}
			}
			page.Objects = append(page.Objects, entry)
		}
		for _, bp := range seg.Segment.BlobPrefixes {
			if bp != nil && bp.Name != nil {
				page.Prefixes = append(page.Prefixes, *bp.Name)
			}
		}
	}

	page.KeyCount = len(page.Objects) + len(page.Prefixes)
	if marker := deref(seg.NextMarker); marker != "" {
		page.IsTruncated = true
		page.ContinuationToken = marker
	}
	return page
}

// ListBuckets lists containers.
func (p *Provider) ListBuckets(ctx context.Context) ([]models.Bucket, error) {
	var buckets []models.Bucket
	pager := p.client.NewListContainersPager(nil)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapError("ListContainers", "", "", err)
		}
		for _, item := range resp.ContainerItems {
			if item == nil || item.Name == nil {
				continue
			}
			b := models.Bucket{Name: *item.Name}
			if item.Properties != nil {
				b.CreationDate = item.Properties.LastModified
			}
			buckets = append(buckets, b)
		}
	}
	return buckets, nil
}

// Head implements storage.ObjectStore.
func (p *Provider) Head(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error) {
	resp, err := p.container(bucket).NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		return nil, wrapError("GetProperties", bucket, key, err)
	}
	info := &storage.ObjectInfo{
		Key:          key,
		Size:         deref(resp.ContentLength),
		ContentType:  deref(resp.ContentType),
		LastModified: deref(resp.LastModified),
	}
	if resp.ETag != nil {
		info.ETag = string(*resp.ETag)
	}
	return info, nil
}

// Get implements storage.ObjectStore.
func (p *Provider) Get(ctx context.Context, bucket, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	resp, err := p.client.DownloadStream(ctx, bucket, key, nil)
	if err != nil {
		return nil, nil, wrapError("DownloadStream", bucket, key, err)
	}
	info := &storage.ObjectInfo{
		Key:          key,
		Size:         deref(resp.ContentLength),
		ContentType:  deref(resp.ContentType),
		LastModified: deref(resp.LastModified),
	}
	if resp.ETag != nil {
		info.ETag = string(*resp.ETag)
	}
	return resp.Body, info, nil
}

// Put uploads body as a block blob.
func (p *Provider) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	opts := &azblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)}
	}
	if _, err := p.client.UploadStream(ctx, bucket, key, body, opts); err != nil {
		return wrapError("UploadStream", bucket, key, err)
	}
	return nil
}

// Delete implements storage.ObjectStore. Deleting a missing blob succeeds.
func (p *Provider) Delete(ctx context.Context, bucket, key string) error {
	_, err := p.client.DeleteBlob(ctx, bucket, key, nil)
	if err != nil {
		wrapped := wrapError("DeleteBlob", bucket, key, err)
		if storage.IsNotFound(wrapped) {
			return nil
		}
		return wrapped
	}
	return nil
}

// Copy starts a server-side copy and waits for it to finish.
func (p *Provider) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	cc := p.container(bucket)
	dst := cc.NewBlobClient(dstKey)

	resp, err := dst.StartCopyFromURL(ctx, cc.NewBlobClient(srcKey).URL(), nil)
	if err != nil {
		return wrapError("StartCopyFromURL", bucket, srcKey, err)
	}

	status := deref(resp.CopyStatus)
	for status == blob.CopyStatusTypePending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(copyPollInterval):
		}
		props, err := dst.GetProperties(ctx, nil)
		if err != nil {
			return wrapError("GetProperties", bucket, dstKey, err)
		}
		status = deref(props.CopyStatus)
	}

	if status != "" && status != blob.CopyStatusTypeSuccess {
		return &storage.ProviderError{
			Op:       "StartCopyFromURL",
			Provider: ProviderName,
			Bucket:   bucket,
			Key:      srcKey,
			Err:      errCopyStatus(status),
		}
	}
	return nil
}

type errCopyStatus blob.CopyStatusType

func (e errCopyStatus) Error() string {
	return "copy ended with status " + string(e)
}

func clampMaxResults(requested int) int {
	if requested <= 0 || requested > constants.DefaultMaxKeys {
		return constants.DefaultMaxKeys
	}
	return requested
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
