package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/debuglog"
	"github.com/pders01/treehole/internal/storage"
)

// PostLookup resolves index hits back to full posts.
type PostLookup interface {
	PostSource
	GetPost(key string) (*storage.PostRecord, error)
}

type BleveEngine struct {
	store PostLookup
	idx   bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes
// every post already in the store.
func NewBleveEngine(store PostLookup, indexPath string) (*BleveEngine, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	}

	be := &BleveEngine{store: store, idx: idx}
	if err := be.reindexAll(); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("indexing stored posts: %w", err)
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	// Posts are mostly Chinese; the cjk analyzer bigrams ideographs.
	im.DefaultAnalyzer = cjk.AnalyzerName

	dm := bleve.NewDocumentMapping()

	content := bleve.NewTextFieldMapping()
	content.Analyzer = cjk.AnalyzerName
	content.Store = true
	content.IncludeTermVectors = true

	author := bleve.NewTextFieldMapping()
	author.Analyzer = cjk.AnalyzerName
	author.Store = true

	location := bleve.NewTextFieldMapping()
	location.Analyzer = keyword.Name
	location.Store = true

	postID := bleve.NewTextFieldMapping()
	postID.Analyzer = keyword.Name
	postID.Store = true

	date := bleve.NewDateTimeFieldMapping()
	date.Store = true

	dm.AddFieldMappingsAt("content", content)
	dm.AddFieldMappingsAt("author", author)
	dm.AddFieldMappingsAt("location", location)
	dm.AddFieldMappingsAt("post_id", postID)
	dm.AddFieldMappingsAt("date", date)

	im.DefaultMapping = dm
	return im
}

func docFor(p api.Post) map[string]any {
	doc := map[string]any{
		"content":  p.Content,
		"author":   p.Author,
		"location": p.IPLocation,
		"post_id":  p.Key(),
	}
	if !p.DateGMT.IsZero() {
		doc["date"] = p.DateGMT.Time
	}
	return doc
}

func (b *BleveEngine) reindexAll() error {
	records, err := b.store.GetPosts("", 0)
	if err != nil {
		return err
	}

	batch := b.idx.NewBatch()
	for _, rec := range records {
		if err := batch.Index(docIDForPost(rec.Key()), docFor(rec.Post)); err != nil {
			return err
		}
	}
	return b.idx.Batch(batch)
}

func (b *BleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		qc := bleve.NewMatchQuery(tok)
		qc.SetField("content")
		qc.SetBoost(2.0)
		qs = append(qs, qc)

		qa := bleve.NewMatchQuery(tok)
		qa.SetField("author")
		qa.SetBoost(3.0)
		qs = append(qs, qa)

		qap := bleve.NewPrefixQuery(tok)
		qap.SetField("author")
		qap.SetBoost(1.5)
		qs = append(qs, qap)

		ql := bleve.NewTermQuery(tok)
		ql.SetField("location")
		ql.SetBoost(0.5)
		qs = append(qs, ql)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"content", "author", "location", "post_id"}
	req.IncludeLocations = true
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		key := strings.TrimPrefix(h.ID, "post:")
		var post *api.Post
		if rec, err := b.store.GetPost(key); err == nil {
			post = &rec.Post
		} else {
			post = &api.Post{PostID: key}
			if c, ok := h.Fields["content"].(string); ok {
				post.Content = c
			}
			if a, ok := h.Fields["author"].(string); ok {
				post.Author = a
			}
			if l, ok := h.Fields["location"].(string); ok {
				post.IPLocation = l
			}
		}

		r := &Result{Post: post, Score: h.Score}
		for field := range h.Locations {
			text := post.Author
			if field == "content" {
				text = truncate(post.Content, 120)
			}
			r.Matches = append(r.Matches, Match{Field: field, Text: text, Weight: h.Score})
		}
		out = append(out, r)
	}
	return out, nil
}

// OnPostsFetched indexes freshly fetched posts.
func (b *BleveEngine) OnPostsFetched(posts []api.Post) {
	if len(posts) == 0 {
		return
	}
	batch := b.idx.NewBatch()
	for _, p := range posts {
		_ = batch.Index(docIDForPost(p.Key()), docFor(p))
	}
	if err := b.idx.Batch(batch); err != nil {
		debuglog.Warnf("indexing %d posts: %v", len(posts), err)
	}
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *BleveEngine) Close() error {
	return b.idx.Close()
}

func docIDForPost(key string) string { return "post:" + key }
