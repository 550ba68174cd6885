package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vocabulary = []string{"avocado", "tomato", "storage", "price", "delivery"}

// wordEmbedder counts vocabulary words, which is enough to rank by topic.
type wordEmbedder struct {
	err   error
	calls int
}

func (w *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	w.calls++
	if w.err != nil {
		return nil, w.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, len(vocabulary))
		lower := strings.ToLower(text)
		for j, word := range vocabulary {
			vec[j] = float64(strings.Count(lower, word))
		}
		out[i] = vec
	}
	return out, nil
}

var docs = []Document{
	{Topic: "avocado", DocumentType: "storage", Content: "Avocado storage: keep avocados at room temperature until ripe."},
	{Topic: "tomato", DocumentType: "storage", Content: "Tomato storage: never refrigerate a tomato before it ripens."},
	{Topic: "delivery", DocumentType: "policy", Content: "Delivery runs every morning; delivery to Bole is free."},
	{Topic: "pricing", DocumentType: "policy", Content: "Price lists update weekly; price changes are announced."},
}

func TestSearchRanksClosestDocumentsFirst(t *testing.T) {
	idx, err := Build(context.Background(), &wordEmbedder{}, docs, WithTopK(2))
	require.NoError(t, err)
	require.Equal(t, 4, idx.Len())

	answer, err := idx.Search(context.Background(), "how should I store an avocado? avocado storage")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(answer, "Here are the top 2 retrieved documents."))
	first := strings.Index(answer, "Avocado storage")
	second := strings.Index(answer, "Tomato storage")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
	assert.Contains(t, answer, "Document 1:\nAvocado storage")
	assert.NotContains(t, answer, "Delivery runs")
}

func TestSearchOnEmptyIndexOrQuery(t *testing.T) {
	emb := &wordEmbedder{}
	idx, err := Build(context.Background(), emb, nil)
	require.NoError(t, err)
	assert.Zero(t, emb.calls)

	answer, err := idx.Search(context.Background(), "avocado")
	require.NoError(t, err)
	assert.Empty(t, answer)

	full, err := Build(context.Background(), emb, docs)
	require.NoError(t, err)
	answer, err = full.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestBuildAndSearchPropagateEmbedderErrors(t *testing.T) {
	emb := &wordEmbedder{err: errors.New("quota exceeded")}
	_, err := Build(context.Background(), emb, docs)
	require.ErrorContains(t, err, "quota exceeded")

	emb.err = nil
	idx, err := Build(context.Background(), emb, docs)
	require.NoError(t, err)
	emb.err = errors.New("timeout")
	_, err = idx.Search(context.Background(), "tomato")
	require.ErrorContains(t, err, "timeout")
}

func TestLoadDocumentsSkipsEmptyContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")
	data, err := json.Marshal(append([]Document{{Topic: "blank"}}, docs...))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadDocuments(path)
	require.NoError(t, err)
	assert.Len(t, loaded, len(docs))

	_, err = LoadDocuments(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestOpenAIEmbedderOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		// returned out of order on purpose
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float64{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float64{1, 0}},
			},
			"usage": map[string]any{"prompt_tokens": 2, "total_tokens": 2},
		})
	}))
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	emb, err := NewOpenAIEmbedder(&client, "")
	require.NoError(t, err)

	vecs, err := emb.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{1, 0}, vecs[0])
	assert.Equal(t, []float64{0, 1}, vecs[1])
}
