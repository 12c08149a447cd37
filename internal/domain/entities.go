package domain

import "fmt"

// Book is a single record from the record source.
type Book struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Year        *int   `json:"year"`
	PosterURL   string `json:"poster_url"`
	BookURL     string `json:"book_url"`
	Description string `json:"description"`
}

// EmbeddingText is the text the corpus encoder sees for a book.
func (b Book) EmbeddingText() string {
	return b.Title + ": " + b.Description
}

// Signal names the ranking rule that produced a result.
type Signal string

const (
	SignalSemantic Signal = "semantic"
	SignalKeyword  Signal = "keyword"
)

type ScoredBook struct {
	Book
	Score  float64 `json:"score"`
	Signal Signal  `json:"-"`
}

// EmbeddingStore holds three index-aligned sequences plus the name of the
// encoder that produced the vectors. Row i of IDs, Metadata and Vectors
// always describes the same book.
type EmbeddingStore struct {
	IDs       []string
	Metadata  []Book
	Vectors   [][]float32
	ModelName string
}

// Len returns the number of rows.
func (s *EmbeddingStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.IDs)
}

// Dimension returns the vector width, or 0 for an empty store.
func (s *EmbeddingStore) Dimension() int {
	if s == nil || len(s.Vectors) == 0 {
		return 0
	}
	return len(s.Vectors[0])
}

// Validate checks the alignment invariant and that all vectors share one width.
func (s *EmbeddingStore) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil store", ErrInvalidStore)
	}
	if len(s.IDs) != len(s.Metadata) || len(s.IDs) != len(s.Vectors) {
		return fmt.Errorf("%w: ids=%d metadata=%d vectors=%d",
			ErrInvalidStore, len(s.IDs), len(s.Metadata), len(s.Vectors))
	}
	dim := s.Dimension()
	for i, v := range s.Vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: row %d has dimension %d, expected %d", ErrInvalidStore, i, len(v), dim)
		}
	}
	return nil
}

type Stats struct {
	Rows          int
	Dimension     int
	ModelName     string
	SchemaVersion int
	Compression   string
}
