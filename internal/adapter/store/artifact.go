package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"

	"bookrec/internal/domain"
)

var (
	bucketMeta     = []byte("meta")
	bucketIDs      = []byte("ids")
	bucketMetadata = []byte("metadata")
	bucketVectors  = []byte("vectors")
)

const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// ArtifactStore persists an EmbeddingStore as a single BoltDB file.
// Every row is keyed by its big-endian index in all three row buckets, so
// alignment survives the round trip by construction.
type ArtifactStore struct {
	path        string
	compression string
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
}

// NewArtifactStore creates a store for the artifact at path. compression
// applies to metadata rows on Save; Load honours whatever the file records.
func NewArtifactStore(path, compression string) (*ArtifactStore, error) {
	if compression == "" {
		compression = CompressionNone
	}
	if compression != CompressionNone && compression != CompressionZstd {
		return nil, fmt.Errorf("unsupported artifact compression: %s", compression)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &ArtifactStore{
		path:        path,
		compression: compression,
		encoder:     enc,
		decoder:     dec,
	}, nil
}

func (s *ArtifactStore) Path() string {
	return s.path
}

func (s *ArtifactStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Save writes the store to a temporary file next to the artifact and renames
// it into place, so readers see either the previous file or the new one.
func (s *ArtifactStore) Save(es *domain.EmbeddingStore) (err error) {
	if err := es.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	db, err := bbolt.Open(tmpPath, 0644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open temp artifact: %w", err)
	}

	if err = db.Update(func(tx *bbolt.Tx) error { return s.write(tx, es) }); err != nil {
		db.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err = db.Close(); err != nil {
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}

	if err = os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to publish artifact: %w", err)
	}
	return nil
}

func (s *ArtifactStore) write(tx *bbolt.Tx, es *domain.EmbeddingStore) error {
	buckets := make(map[string]*bbolt.Bucket, 4)
	for _, name := range [][]byte{bucketMeta, bucketIDs, bucketMetadata, bucketVectors} {
		b, err := tx.CreateBucketIfNotExists(name)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
		buckets[string(name)] = b
	}

	info := &SchemaInfo{
		Version:     CurrentSchemaVersion,
		ModelName:   es.ModelName,
		Dimension:   es.Dimension(),
		Count:       es.Len(),
		Compression: s.compression,
	}
	if err := putSchemaInfo(buckets[string(bucketMeta)], info); err != nil {
		return err
	}

	for i := range es.IDs {
		key := rowKey(i)

		if err := buckets[string(bucketIDs)].Put(key, []byte(es.IDs[i])); err != nil {
			return err
		}

		meta, err := json.Marshal(es.Metadata[i])
		if err != nil {
			return fmt.Errorf("failed to encode metadata row %d: %w", i, err)
		}
		if s.compression == CompressionZstd {
			meta = s.encoder.EncodeAll(meta, nil)
		}
		if err := buckets[string(bucketMetadata)].Put(key, meta); err != nil {
			return err
		}

		if err := buckets[string(bucketVectors)].Put(key, encodeVector(es.Vectors[i])); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the whole artifact into memory.
func (s *ArtifactStore) Load() (*domain.EmbeddingStore, error) {
	if !s.Exists() {
		return nil, fmt.Errorf("%w (looked in %s)", domain.ErrStoreMissing, s.path)
	}

	db, err := s.openReadOnly()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var es *domain.EmbeddingStore
	err = db.View(func(tx *bbolt.Tx) error {
		var err error
		es, err = s.read(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := es.Validate(); err != nil {
		return nil, err
	}
	return es, nil
}

func (s *ArtifactStore) read(tx *bbolt.Tx) (*domain.EmbeddingStore, error) {
	info, err := getSchemaInfo(tx.Bucket(bucketMeta))
	if err != nil {
		return nil, err
	}
	if err := info.check(); err != nil {
		return nil, err
	}

	ids := tx.Bucket(bucketIDs)
	metas := tx.Bucket(bucketMetadata)
	vectors := tx.Bucket(bucketVectors)
	if ids == nil || metas == nil || vectors == nil {
		return nil, fmt.Errorf("%w: missing row buckets", domain.ErrInvalidStore)
	}
	for name, b := range map[string]*bbolt.Bucket{"ids": ids, "metadata": metas, "vectors": vectors} {
		if n := b.Stats().KeyN; n != info.Count {
			return nil, fmt.Errorf("%w: bucket %s has %d rows, expected %d", domain.ErrInvalidStore, name, n, info.Count)
		}
	}

	es := &domain.EmbeddingStore{
		IDs:       make([]string, info.Count),
		Metadata:  make([]domain.Book, info.Count),
		Vectors:   make([][]float32, info.Count),
		ModelName: info.ModelName,
	}

	for i := 0; i < info.Count; i++ {
		key := rowKey(i)

		id := ids.Get(key)
		meta := metas.Get(key)
		vec := vectors.Get(key)
		if id == nil || meta == nil || vec == nil {
			return nil, fmt.Errorf("%w: row %d incomplete", domain.ErrInvalidStore, i)
		}

		es.IDs[i] = string(id)

		if info.Compression == CompressionZstd {
			meta, err = s.decoder.DecodeAll(meta, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to decompress metadata row %d: %w", i, err)
			}
		}
		if err := json.Unmarshal(meta, &es.Metadata[i]); err != nil {
			return nil, fmt.Errorf("failed to decode metadata row %d: %w", i, err)
		}

		es.Vectors[i], err = decodeVector(vec)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", domain.ErrInvalidStore, i, err)
		}
		if len(es.Vectors[i]) != info.Dimension {
			return nil, fmt.Errorf("%w: row %d has dimension %d, expected %d",
				domain.ErrInvalidStore, i, len(es.Vectors[i]), info.Dimension)
		}
	}

	return es, nil
}

// Stats reads the artifact header without loading rows.
func (s *ArtifactStore) Stats() (domain.Stats, error) {
	if !s.Exists() {
		return domain.Stats{}, fmt.Errorf("%w (looked in %s)", domain.ErrStoreMissing, s.path)
	}

	db, err := s.openReadOnly()
	if err != nil {
		return domain.Stats{}, err
	}
	defer db.Close()

	var stats domain.Stats
	err = db.View(func(tx *bbolt.Tx) error {
		info, err := getSchemaInfo(tx.Bucket(bucketMeta))
		if err != nil {
			return err
		}
		stats = domain.Stats{
			Rows:          info.Count,
			Dimension:     info.Dimension,
			ModelName:     info.ModelName,
			SchemaVersion: info.Version,
			Compression:   info.Compression,
		}
		return nil
	})
	return stats, err
}

func (s *ArtifactStore) openReadOnly() (*bbolt.DB, error) {
	db, err := bbolt.Open(s.path, 0644, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return db, nil
}

func rowKey(i int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector copies out of the bolt page; the returned slice outlives the tx.
func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector payload of %d bytes is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
