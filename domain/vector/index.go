// Package vector implements the per-table dense-vector index: an in-memory
// id to embedding map with squared-L2 top-k search and atomic single-file
// persistence.
package vector

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Index errors.
var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrCorruptIndex      = errors.New("corrupt index file")
)

// Match is one nearest-neighbor result.
type Match struct {
	id       int64
	distance float64
}

// NewMatch creates a Match.
func NewMatch(id int64, distance float64) Match {
	return Match{id: id, distance: distance}
}

// ID returns the matched record id.
func (m Match) ID() int64 { return m.id }

// Distance returns the squared L2 distance to the query.
func (m Match) Distance() float64 { return m.distance }

// Index maps record ids to embedding vectors of a fixed dimension. It is not
// internally synchronized; the owning registry serializes writers against
// readers.
type Index struct {
	dim     int
	vectors map[int64][]float32
}

// NewIndex creates an empty index for vectors of the given dimension.
func NewIndex(dim int) *Index {
	return &Index{
		dim:     dim,
		vectors: make(map[int64][]float32),
	}
}

// Dim returns the embedding dimension.
func (ix *Index) Dim() int { return ix.dim }

// Len returns the number of stored vectors.
func (ix *Index) Len() int { return len(ix.vectors) }

// Has reports whether id is present.
func (ix *Index) Has(id int64) bool {
	_, ok := ix.vectors[id]
	return ok
}

// IDs returns the stored ids in ascending order.
func (ix *Index) IDs() []int64 {
	ids := make([]int64, 0, len(ix.vectors))
	for id := range ix.vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Add inserts a vector. Behavior for an already-present id is unspecified;
// callers wanting replace semantics use Upsert.
func (ix *Index) Add(id int64, vec []float32) error {
	if len(vec) != ix.dim {
		return fmt.Errorf("%w: got %d, index holds %d", ErrDimensionMismatch, len(vec), ix.dim)
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	ix.vectors[id] = stored
	return nil
}

// Upsert replaces any existing vector for id. Afterwards the index holds
// exactly one entry for id.
func (ix *Index) Upsert(id int64, vec []float32) error {
	ix.Remove(id)
	return ix.Add(id, vec)
}

// Remove deletes the vector for id, reporting whether one was present.
func (ix *Index) Remove(id int64) bool {
	if _, ok := ix.vectors[id]; !ok {
		return false
	}
	delete(ix.vectors, id)
	return true
}

// SearchTopK returns up to k entries ordered by ascending squared-L2
// distance to the query, ties broken by ascending id.
func (ix *Index) SearchTopK(query []float32, k int) ([]Match, error) {
	return ix.search(query, k, nil)
}

// SearchTopKFiltered restricts the search to ids present in allowed. An
// empty allowed set yields no results.
func (ix *Index) SearchTopKFiltered(query []float32, k int, allowed map[int64]struct{}) ([]Match, error) {
	if len(allowed) == 0 {
		return []Match{}, nil
	}
	return ix.search(query, k, allowed)
}

func (ix *Index) search(query []float32, k int, allowed map[int64]struct{}) ([]Match, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d, index holds %d", ErrDimensionMismatch, len(query), ix.dim)
	}
	if k <= 0 {
		return []Match{}, nil
	}

	matches := make([]Match, 0, len(ix.vectors))
	for id, vec := range ix.vectors {
		if allowed != nil {
			if _, ok := allowed[id]; !ok {
				continue
			}
		}
		matches = append(matches, NewMatch(id, squaredL2(query, vec)))
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].id < matches[j].id
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// persistedIndex is the on-disk representation.
type persistedIndex struct {
	Dim     int
	Vectors map[int64][]float32
}

// Save writes the index to path atomically: encode to a temp file in the
// same directory, fsync, then rename over the destination. A reader never
// observes a partially written file.
func (ix *Index) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(persistedIndex{Dim: ix.dim, Vectors: ix.vectors}); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing index: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}

// LoadIndex reads an index previously written by Save. A file that cannot be
// decoded, or whose vectors disagree with the recorded dimension, fails with
// ErrCorruptIndex; the caller rebuilds from the store.
func LoadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var p persistedIndex
	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if p.Dim <= 0 {
		return nil, fmt.Errorf("%w: non-positive dimension %d", ErrCorruptIndex, p.Dim)
	}
	if p.Vectors == nil {
		p.Vectors = make(map[int64][]float32)
	}
	for id, vec := range p.Vectors {
		if len(vec) != p.Dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrCorruptIndex, id, len(vec), p.Dim)
		}
	}

	return &Index{dim: p.Dim, vectors: p.Vectors}, nil
}
