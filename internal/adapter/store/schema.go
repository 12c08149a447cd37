package store

import (
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"

	"bookrec/internal/domain"
)

// CurrentSchemaVersion is the current artifact layout version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyModelName     = []byte("model_name")
	keyDimension     = []byte("dimension")
	keyCount         = []byte("count")
	keyCompression   = []byte("compression")
)

// SchemaInfo is the artifact header stored in the meta bucket.
type SchemaInfo struct {
	Version     int
	ModelName   string
	Dimension   int
	Count       int
	Compression string
}

func putSchemaInfo(b *bbolt.Bucket, info *SchemaInfo) error {
	entries := map[string][]byte{
		string(keySchemaVersion): []byte(strconv.Itoa(info.Version)),
		string(keyModelName):     []byte(info.ModelName),
		string(keyDimension):     []byte(strconv.Itoa(info.Dimension)),
		string(keyCount):         []byte(strconv.Itoa(info.Count)),
		string(keyCompression):   []byte(info.Compression),
	}
	for k, v := range entries {
		if err := b.Put([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

func getSchemaInfo(b *bbolt.Bucket) (*SchemaInfo, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: artifact has no meta bucket", domain.ErrInvalidStore)
	}

	var (
		info SchemaInfo
		err  error
	)
	// a missing version is reported by check
	if b.Get(keySchemaVersion) != nil {
		if info.Version, err = atoiKey(b, keySchemaVersion); err != nil {
			return nil, err
		}
	}
	info.ModelName = string(b.Get(keyModelName))
	info.Compression = string(b.Get(keyCompression))
	if info.Compression == "" {
		info.Compression = CompressionNone
	}

	if info.Dimension, err = atoiKey(b, keyDimension); err != nil {
		return nil, err
	}
	if info.Count, err = atoiKey(b, keyCount); err != nil {
		return nil, err
	}
	return &info, nil
}

func atoiKey(b *bbolt.Bucket, key []byte) (int, error) {
	data := b.Get(key)
	if data == nil {
		return 0, fmt.Errorf("%w: meta key %s missing", domain.ErrInvalidStore, key)
	}
	n, err := strconv.Atoi(string(data))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: meta key %s has bad value %q", domain.ErrInvalidStore, key, data)
	}
	return n, nil
}

// check rejects artifacts this build cannot read.
func (info *SchemaInfo) check() error {
	switch {
	case info.Version == 0:
		return fmt.Errorf("%w: artifact has no schema version", domain.ErrInvalidStore)
	case info.Version > CurrentSchemaVersion:
		return fmt.Errorf("artifact created by newer version (v%d > v%d), rebuild it", info.Version, CurrentSchemaVersion)
	}
	if info.Compression != CompressionNone && info.Compression != CompressionZstd {
		return fmt.Errorf("%w: unknown compression %q", domain.ErrInvalidStore, info.Compression)
	}
	return nil
}
