package cache

import (
	"context"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/kode4food/weave/pkg/api"
)

// BlobStore keeps generations as JSON objects in a bucket, supporting S3,
// GCS, Azure Blob Storage, local files and memory
type BlobStore struct {
	bucket *blob.Bucket
	prefix string
}

var _ Store = (*BlobStore)(nil)

// NewBlobStore opens the bucket at bucketURL
func NewBlobStore(
	ctx context.Context, bucketURL, prefix string,
) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &BlobStore{bucket: bucket, prefix: prefix}, nil
}

func (s *BlobStore) GetGeneration(
	ctx context.Context, project api.Project, key string,
) (*api.Generation, bool, error) {
	data, err := s.bucket.ReadAll(ctx, s.keyFor(project, key))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	gen, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return gen, true, nil
}

func (s *BlobStore) PutGeneration(
	ctx context.Context, project api.Project, key string, gen *api.Generation,
) error {
	data, err := encode(gen)
	if err != nil {
		return err
	}
	return s.bucket.WriteAll(ctx, s.keyFor(project, key), data, nil)
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

func (s *BlobStore) keyFor(project api.Project, key string) string {
	return s.prefix + entryKey(project, key) + ".json"
}
