// Package storage keeps uploaded images in a Cloud Storage bucket or a local directory.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// Object prefixes for the two image-bearing content types.
const (
	PrefixPosts   = "posts"
	PrefixGallery = "gallery"
)

// ErrInvalidKey is returned for object keys that could escape the store.
var ErrInvalidKey = errors.New("invalid object key")

// Object is a stored image.
type Object struct {
	Key string // Bucket-relative name, e.g. "posts/<uuid>.jpg"
	URL string // Public URL served to browsers
}

// Store handles image persistence.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
	publicURL string
}

// New creates a new image store. When localPath is set the bucket client is unused.
// publicURL is the prefix for object URLs; it defaults to the bucket's public
// endpoint or, for local storage, "/uploads".
func New(client *storage.Client, bucket, localPath, publicURL string, logger *slog.Logger) *Store {
	if publicURL == "" {
		if localPath != "" {
			publicURL = "/uploads"
		} else {
			publicURL = "https://storage.googleapis.com/" + bucket
		}
	}
	return &Store{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Local reports whether objects are kept on the local filesystem.
func (s *Store) Local() bool {
	return s.localPath != ""
}

// LocalPath returns the directory objects are written to in local mode.
func (s *Store) LocalPath() string {
	return s.localPath
}

// NewKey returns a fresh object key under prefix, keeping a safe extension from filename.
func NewKey(prefix, filename string) string {
	return prefix + "/" + uuid.NewString() + safeExt(filename)
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

// validKey rejects keys that are absolute or contain parent references.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	return path.Clean(key) == key && !strings.HasPrefix(key, "../") && key != ".."
}

// URL returns the public URL of key.
func (s *Store) URL(key string) string {
	return s.publicURL + "/" + key
}

// KeyFromURL recovers the object key from a public URL produced by URL. It returns
// "" for URLs that do not belong to this store.
func (s *Store) KeyFromURL(u string) string {
	key, ok := strings.CutPrefix(u, s.publicURL+"/")
	if !ok || !validKey(key) {
		return ""
	}
	return key
}

// Upload stores the image read from r under a new key below prefix.
func (s *Store) Upload(ctx context.Context, prefix, filename, contentType string, r io.Reader) (*Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	key := NewKey(prefix, filename)
	s.logger.Debug("Uploading image", "key", key, "bytes", len(data), "content_type", contentType)

	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			return nil, fmt.Errorf("create local storage directory: %w", err)
		}
		if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec // served publicly
			return nil, fmt.Errorf("write to local storage: %w", err)
		}
		s.logger.Info("Image saved to local storage", "path", filePath, "bytes", len(data))
		return &Object{Key: key, URL: s.URL(key)}, nil
	}

	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
			w.ContentType = contentType
			w.CacheControl = "public, max-age=31536000"
			if _, writeErr := io.Copy(w, bytes.NewReader(data)); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying upload after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("upload after retries: %w", err)
	}

	s.logger.Info("Image uploaded", "key", key, "bytes", len(data))
	return &Object{Key: key, URL: s.URL(key)}, nil
}

// Delete removes the object at key. Deleting a missing object is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	s.logger.Debug("Deleting image", "key", key)

	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, filepath.FromSlash(key))
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete from local storage: %w", err)
		}
		s.logger.Info("Image deleted from local storage", "path", filePath)
		return nil
	}

	err := retry.Do(
		func() error {
			if deleteErr := s.client.Bucket(s.bucket).Object(key).Delete(ctx); deleteErr != nil {
				if errors.Is(deleteErr, storage.ErrObjectNotExist) {
					return nil
				}
				return fmt.Errorf("delete from storage: %w", deleteErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying delete operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("delete after retries: %w", err)
	}

	s.logger.Info("Image deleted", "key", key)
	return nil
}

// List returns the keys of all objects below prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	if s.localPath != "" {
		root := filepath.Join(s.localPath, filepath.FromSlash(prefix))
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(s.localPath, p)
			if err != nil {
				return err
			}
			keys = append(keys, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk local storage: %w", err)
		}
		sort.Strings(keys)
		return keys, nil
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix + "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	sort.Strings(keys)
	return keys, nil
}
