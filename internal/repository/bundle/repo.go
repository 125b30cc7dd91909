// Package bundle persists a built index as four co-located artifacts in a
// single directory: the raw vectors, the document texts, the per-entry
// metadata, and the index config. The four files are written and swapped in
// together; a bundle with any artifact missing is treated as absent.
package bundle

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/schemedex/internal/domain"
	"github.com/kailas-cloud/schemedex/internal/index"
)

const (
	vectorsFile   = "index.vec"
	documentsFile = "documents.json"
	metadataFile  = "metadata.json"
	configFile    = "config.json"
)

// vecMagic marks the binary vector file so a stray file is rejected early.
var vecMagic = [4]byte{'S', 'D', 'X', '1'}

// Config is the persisted index configuration. An index can only answer
// queries embedded with the same model at the same dimension, so both are
// recorded alongside the vectors.
type Config struct {
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
	IndexType      string `json:"index_type"`
}

// Repo reads and writes index bundles under a fixed directory.
type Repo struct {
	path string
}

// New creates a bundle repository rooted at path.
func New(path string) *Repo {
	return &Repo{path: path}
}

// Path returns the bundle directory.
func (r *Repo) Path() string { return r.path }

// Save writes a complete bundle. Artifacts are written to a temporary sibling
// directory first and swapped in whole, so an interrupted save leaves either
// the previous bundle or a detectably incomplete one, never a silently mixed
// pair of artifacts.
func (r *Repo) Save(idx *index.Flat, cfg Config) error {
	dim, vectors, docs, metas := idx.Dump()
	cfg.Dimension = dim
	cfg.IndexType = index.Type

	parent := filepath.Dir(r.path)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create bundle parent %s: %w", parent, err)
	}
	tmp, err := os.MkdirTemp(parent, ".bundle-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := writeVectors(filepath.Join(tmp, vectorsFile), dim, vectors); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(tmp, documentsFile), docs); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(tmp, metadataFile), metas); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(tmp, configFile), cfg); err != nil {
		return err
	}

	return r.swap(tmp)
}

// swap replaces the live bundle directory with the staged one.
func (r *Repo) swap(tmp string) error {
	old := r.path + ".old"
	_ = os.RemoveAll(old)

	if _, err := os.Stat(r.path); err == nil {
		if err := os.Rename(r.path, old); err != nil {
			return fmt.Errorf("move previous bundle aside: %w", err)
		}
	}
	if err := os.Rename(tmp, r.path); err != nil {
		// Best effort restore of the previous bundle.
		_ = os.Rename(old, r.path)
		return fmt.Errorf("install bundle at %s: %w", r.path, err)
	}
	_ = os.RemoveAll(old)
	return nil
}

// Load reads a persisted bundle and reconstructs the index. A missing
// directory or any missing artifact is domain.ErrNotFound; artifacts that
// disagree with each other are domain.ErrCorruptIndex.
func (r *Repo) Load() (*index.Flat, Config, error) {
	var cfg Config

	for _, name := range []string{vectorsFile, documentsFile, metadataFile, configFile} {
		if _, err := os.Stat(filepath.Join(r.path, name)); err != nil {
			return nil, cfg, fmt.Errorf("bundle artifact %s at %s: %w", name, r.path, domain.ErrNotFound)
		}
	}

	dim, vectors, err := readVectors(filepath.Join(r.path, vectorsFile))
	if err != nil {
		return nil, cfg, err
	}

	var docs []string
	if err := readJSONFile(filepath.Join(r.path, documentsFile), &docs); err != nil {
		return nil, cfg, err
	}
	var metas []domain.SchemeMeta
	if err := readJSONFile(filepath.Join(r.path, metadataFile), &metas); err != nil {
		return nil, cfg, err
	}
	if err := readJSONFile(filepath.Join(r.path, configFile), &cfg); err != nil {
		return nil, cfg, err
	}

	if cfg.Dimension != dim {
		return nil, cfg, fmt.Errorf("config dimension %d disagrees with vector file dimension %d: %w",
			cfg.Dimension, dim, domain.ErrCorruptIndex)
	}
	if cfg.EmbeddingModel == "" {
		return nil, cfg, fmt.Errorf("config missing embedding model: %w", domain.ErrCorruptIndex)
	}

	idx, err := index.Reconstruct(dim, vectors, docs, metas)
	if err != nil {
		return nil, cfg, err
	}
	return idx, cfg, nil
}

// writeVectors encodes vectors as magic, uint32 dimension, uint32 count,
// then count*dimension little-endian float32 values.
func writeVectors(path string, dim int, vectors []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	count := 0
	if dim > 0 {
		count = len(vectors) / dim
	}
	if _, err := f.Write(vecMagic[:]); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	header := []uint32{uint32(dim), uint32(count)}
	if err := binary.Write(f, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := binary.Write(f, binary.LittleEndian, vectors); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func readVectors(path string) (int, []float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("open %s: %w", path, domain.ErrNotFound)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return 0, nil, fmt.Errorf("read %s header: %w", path, domain.ErrCorruptIndex)
	}
	if magic != vecMagic {
		return 0, nil, fmt.Errorf("%s has unrecognized magic %q: %w", path, magic[:], domain.ErrCorruptIndex)
	}

	var header [2]uint32
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return 0, nil, fmt.Errorf("read %s header: %w", path, domain.ErrCorruptIndex)
	}
	dim, count := int(header[0]), int(header[1])
	if dim <= 0 {
		return 0, nil, fmt.Errorf("%s declares dimension %d: %w", path, dim, domain.ErrCorruptIndex)
	}

	// The payload size must match the header exactly before anything is
	// allocated, so a corrupt count cannot force a huge allocation and
	// trailing or missing bytes are caught up front.
	info, err := f.Stat()
	if err != nil {
		return 0, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	payload := info.Size() - int64(len(magic)) - int64(binary.Size(header))
	if uint64(dim)*uint64(count)*4 != uint64(payload) {
		return 0, nil, fmt.Errorf("%s payload is %d bytes, header declares %d vectors of dimension %d: %w",
			path, payload, count, dim, domain.ErrCorruptIndex)
	}

	vectors := make([]float32, dim*count)
	if err := binary.Read(f, binary.LittleEndian, &vectors); err != nil {
		return 0, nil, fmt.Errorf("read %s vectors: %w", path, domain.ErrCorruptIndex)
	}
	return dim, vectors, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, domain.ErrNotFound)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, domain.ErrCorruptIndex)
	}
	return nil
}
