// Package source reads serialized graphs from local files or Google Cloud
// Storage objects addressed as gs://bucket/key.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"k8s.io/klog/v2"
)

// Location is a parsed model location.
type Location struct {
	Bucket string // Empty for local files
	Key    string // Object key, or local path when Bucket is empty
}

// IsRemote reports whether the location is a GCS object.
func (l Location) IsRemote() bool { return l.Bucket != "" }

// String returns the location in the form Parse accepts.
func (l Location) String() string {
	if l.IsRemote() {
		return "gs://" + l.Bucket + "/" + l.Key
	}
	return l.Key
}

// Parse parses a local path or a gs://bucket/key URI.
func Parse(uri string) (Location, error) {
	if uri == "" {
		return Location{}, errors.New("empty model location")
	}
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		if scheme, _, found := strings.Cut(uri, "://"); found {
			return Location{}, fmt.Errorf("unsupported scheme %q in %q", scheme, uri)
		}
		return Location{Key: uri}, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return Location{}, fmt.Errorf("invalid GCS URI %q: want gs://bucket/key", uri)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// Open opens the model at uri for reading.
func Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}
	if !loc.IsRemote() {
		f, err := os.Open(loc.Key)
		if err != nil {
			return nil, fmt.Errorf("opening model file: %w", err)
		}
		return f, nil
	}
	return openGCS(ctx, loc)
}

// ReadFile reads the whole model at uri.
func ReadFile(ctx context.Context, uri string) ([]byte, error) {
	log := klog.FromContext(ctx)

	startedAt := time.Now()
	r, err := Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", uri, err)
	}

	log.V(2).Info("read model", "source", uri, "bytes", len(data), "duration", time.Since(startedAt))
	return data, nil
}

// gcsReader closes the storage client together with the object reader.
type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	return errors.Join(r.Reader.Close(), r.client.Close())
}

func openGCS(ctx context.Context, loc Location) (io.ReadCloser, error) {
	log := klog.FromContext(ctx)

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS storage client: %w", err)
	}

	log.Info("reading model from GCS", "source", loc.String())

	r, err := client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		client.Close()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("model %q not found: %w", loc.String(), err)
		}
		return nil, fmt.Errorf("opening object from GCS %q: %w", loc.String(), err)
	}
	return &gcsReader{Reader: r, client: client}, nil
}
