// Package archive mirrors an output tree to a GCS bucket after a successful
// run, preserving relative paths under a prefix.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Archiver uploads files to GCS. It assumes Application Default Credentials
// are configured.
type Archiver struct {
	client *storage.Client
}

// NewArchiver creates an Archiver with a shared storage client.
func NewArchiver(ctx context.Context) (*Archiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &Archiver{client: client}, nil
}

// Close releases the storage client.
func (a *Archiver) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// MirrorTree uploads every regular file under root to the bucket, keyed as
// <prefix>/<path relative to root>. Returns the number of objects written.
func (a *Archiver) MirrorTree(ctx context.Context, bucket, prefix, root string) (int, error) {
	bkt := a.client.Bucket(bucket)
	uploaded := 0

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		object := path.Join(prefix, filepath.ToSlash(rel))
		if err := a.uploadFile(ctx, bkt, object, p); err != nil {
			return fmt.Errorf("archiving %s: %w", p, err)
		}
		uploaded++
		return nil
	})
	if err != nil {
		var ge *googleapi.Error
		if errors.As(err, &ge) {
			return uploaded, fmt.Errorf("gcs error %d: %w", ge.Code, err)
		}
		return uploaded, err
	}
	return uploaded, nil
}

func (a *Archiver) uploadFile(ctx context.Context, bkt *storage.BucketHandle, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	w := bkt.Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}
