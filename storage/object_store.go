package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRef is returned for refs that escape the store root.
var ErrInvalidRef = errors.New("invalid object reference")

// ObjectStore persists uploaded images and resolves refs to locators.
type ObjectStore interface {
	// Put stores data under namespace/name and returns the ref to keep on the record.
	Put(ctx context.Context, namespace, name string, data []byte) (string, error)
	// Delete releases ref. An already missing object is not an error.
	Delete(ctx context.Context, ref string) error
	// URL turns a ref into a locator clients can fetch.
	URL(ref string) string
	// List returns every stored object under prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Ref     string
	ModTime time.Time
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_\-]`)

// Namespace returns the per-user folder for post images.
func Namespace(userID uint, displayName string) string {
	return "posts/" + strconv.FormatUint(uint64(userID), 10) + "-" + unsafeNameChars.ReplaceAllString(displayName, "_")
}

// IsExternal reports whether ref already is an absolute http(s) locator.
func IsExternal(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// LocalStore keeps objects on the local filesystem below root and serves
// them under publicPath.
type LocalStore struct {
	root       string
	publicPath string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, publicPath string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: root, publicPath: strings.TrimRight(publicPath, "/")}, nil
}

// Root returns the directory objects are written to.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Put(ctx context.Context, namespace, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := path.Join(namespace, name)
	full, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create namespace: %w", err)
	}

	// write then rename so readers never observe a partial file
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("commit object: %w", err)
	}
	return ref, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if ref == "" || IsExternal(ref) {
		return nil
	}
	full, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(ref string) string {
	if ref == "" || IsExternal(ref) {
		return ref
	}
	return s.publicPath + "/" + strings.TrimLeft(ref, "/")
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	base, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	var out []ObjectInfo
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		out = append(out, ObjectInfo{Ref: filepath.ToSlash(rel), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *LocalStore) resolve(ref string) (string, error) {
	if strings.Contains(ref, "..") {
		return "", ErrInvalidRef
	}
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+ref))), nil
}
