package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const resultHeader = "Here are the top %d retrieved documents. Use only those which are relevant for answering the query:"

type Config struct {
	File    string        `envconfig:"FILE" split_words:"true"`
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true"`
	Model   string        `envconfig:"MODEL" split_words:"true" default:"text-embedding-3-small"`
	TopK    int           `envconfig:"TOP_K" split_words:"true" default:"3"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.File) != "" && strings.TrimSpace(c.APIKey) != ""
}

type Document struct {
	Topic        string `json:"topic"`
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

func LoadDocuments(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode knowledge file: %w", err)
	}
	out := docs[:0]
	for _, d := range docs {
		if strings.TrimSpace(d.Content) != "" {
			out = append(out, d)
		}
	}
	return out, nil
}

// Index is an in-memory cosine-similarity index over a fixed document set.
type Index struct {
	embedder Embedder
	docs     []Document
	vectors  [][]float64
	topK     int
	log      zerolog.Logger
}

type Option func(*Index)

func WithTopK(k int) Option {
	return func(i *Index) {
		if k > 0 {
			i.topK = k
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(i *Index) { i.log = l }
}

// Build embeds every document once.
func Build(ctx context.Context, embedder Embedder, docs []Document, opts ...Option) (*Index, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	idx := &Index{embedder: embedder, topK: 3, log: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(idx)
		}
	}
	if len(docs) == 0 {
		return idx, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embed documents: got %d vectors for %d documents", len(vectors), len(docs))
	}
	idx.docs = docs
	idx.vectors = vectors
	idx.log.Info().Int("documents", len(docs)).Msg("knowledge index built")
	return idx, nil
}

func (i *Index) Len() int { return len(i.docs) }

// Search returns the closest documents formatted as context for the model.
// An empty index yields an empty answer.
func (i *Index) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" || len(i.docs) == 0 {
		return "", nil
	}
	vectors, err := i.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return "", fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	type scored struct {
		doc   int
		score float64
	}
	ranked := make([]scored, 0, len(i.docs))
	for n, v := range i.vectors {
		ranked = append(ranked, scored{doc: n, score: cosine(vectors[0], v)})
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	k := min(i.topK, len(ranked))
	parts := make([]string, 0, k+1)
	parts = append(parts, fmt.Sprintf(resultHeader, k))
	for n, r := range ranked[:k] {
		parts = append(parts, fmt.Sprintf("Document %d:\n%s", n+1, i.docs[r.doc].Content))
	}
	return strings.Join(parts, "\n\n"), nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
