package partition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mlaurent/avidex/internal/common"
)

// Filesystem implements Store on a local directory: one subdirectory per
// partition, one JSON file per cached response, file names derived from the
// key hash so arbitrary URLs map to safe paths.
type Filesystem struct {
	root string
}

// NewFilesystem returns a filesystem partition store rooted at path,
// creating it if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "./cachedata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Filesystem{root: root}, nil
}

func sanitizePartition(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid partition name %q", name)
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("invalid partition name %q", name)
	}
	return nil
}

func (f *Filesystem) pathFor(partition, key string) (string, error) {
	if err := sanitizePartition(partition); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.root, partition, hex.EncodeToString(sum[:])+".json"), nil
}

func (f *Filesystem) Get(ctx context.Context, partition, key string) (*Response, error) {
	path, err := f.pathFor(partition, key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode cached response: %w", err)
	}
	return &resp, nil
}

func (f *Filesystem) Put(ctx context.Context, partition, key string, resp *Response) error {
	path, err := f.pathFor(partition, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode cached response: %w", err)
	}

	// Write-then-rename so concurrent readers never observe a torn file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (f *Filesystem) DeletePartition(ctx context.Context, partition string) error {
	if err := sanitizePartition(partition); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(f.root, partition))
}

func (f *Filesystem) ListPartitions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
