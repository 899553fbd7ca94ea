package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

const defaultLimit = 5

var ErrIndexNotReady = errors.New("document index is not initialized")

type Config struct {
	DocsDir   string        `split_words:"true" default:"data/docs"`
	CacheSize int           `split_words:"true" default:"512"`
	CacheTTL  time.Duration `split_words:"true" default:"1h"`
}

// Document is a source file to be chunked into the index.
type Document struct {
	Source       string
	Title        string
	Text         string
	LocationHint string
}

type chunk struct {
	Text         string `json:"text"`
	Source       string `json:"source"`
	Title        string `json:"title"`
	LocationHint string `json:"location_hint"`
}

// Index is an in-memory bleve index over paragraph chunks of official
// documents.
type Index struct {
	idx   bleve.Index
	once  sync.Once
	ready atomic.Bool
	err   error
}

var _ contractx.DocumentSearcher = (*Index)(nil)

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Ready reports whether Initialize has completed successfully.
func (i *Index) Ready() bool { return i.ready.Load() }

// Initialize indexes docs. Only the first call does any work; later calls
// return its result.
func (i *Index) Initialize(ctx context.Context, docs []Document) error {
	i.once.Do(func() {
		i.err = i.index(ctx, docs)
		if i.err == nil {
			i.ready.Store(true)
		}
	})
	return i.err
}

func (i *Index) index(ctx context.Context, docs []Document) error {
	batch := i.idx.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		for n, text := range Chunk(doc.Text) {
			id := fmt.Sprintf("%s#%d", doc.Source, n)
			if err := batch.Index(id, chunk{
				Text:         text,
				Source:       doc.Source,
				Title:        doc.Title,
				LocationHint: doc.LocationHint,
			}); err != nil {
				return fmt.Errorf("index chunk %s: %w", id, err)
			}
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("commit index batch: %w", err)
	}
	return nil
}

// Chunk splits text on blank lines and drops empty paragraphs.
func Chunk(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		if p := strings.Join(strings.Fields(para), " "); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (i *Index) Search(ctx context.Context, query string, limit int) ([]contractx.SearchResult, error) {
	if !i.Ready() {
		return nil, ErrIndexNotReady
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	req.Fields = []string{"*"}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	out := make([]contractx.SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := contractx.SearchResult{Score: hit.Score}
		r.Text, _ = hit.Fields["text"].(string)
		r.Source, _ = hit.Fields["source"].(string)
		r.Title, _ = hit.Fields["title"].(string)
		r.LocationHint, _ = hit.Fields["location_hint"].(string)
		out = append(out, r)
	}
	return out, nil
}

func (i *Index) Close() error { return i.idx.Close() }

// LoadDocuments reads every .txt and .md file directly under dir. A missing
// directory yields no documents.
func LoadDocuments(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read docs dir: %w", err)
	}

	var docs []Document
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".txt" && ext != ".md") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		docs = append(docs, Document{
			Source: e.Name(),
			Title:  strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Text:   string(raw),
		})
	}
	return docs, nil
}
