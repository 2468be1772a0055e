// Package search maintains the on-disk full-text index of note contents.
// Documents are keyed by file path; queries run against the content field.
package search

import (
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	fieldPath    = "path"
	fieldTitle   = "title"
	fieldContent = "content"
)

// Hit is one search result.
type Hit struct {
	Path      string  `json:"path"`
	Title     string  `json:"title"`
	Highlight string  `json:"highlight"`
	Score     float64 `json:"score"`
}

// document is the indexed form of a note.
type document struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Index wraps a bleve index stored in a directory.
type Index struct {
	idx bleve.Index
}

// Open opens the index in dir, creating it when the directory is missing or holds
// no index yet.
func Open(dir string) (*Index, error) {
	idx, err := bleve.Open(dir)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) || errors.Is(err, bleve.ErrorIndexMetaMissing) {
		idx, err = bleve.New(dir, newMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open search index %s: %w", dir, err)
	}
	return &Index{idx: idx}, nil
}

func newMapping() mapping.IndexMapping {
	path := bleve.NewKeywordFieldMapping()
	path.Store = true

	title := bleve.NewTextFieldMapping()
	title.Store = true

	content := bleve.NewTextFieldMapping()
	content.Store = true
	content.IncludeTermVectors = true

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(fieldPath, path)
	doc.AddFieldMappingsAt(fieldTitle, title)
	doc.AddFieldMappingsAt(fieldContent, content)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultField = fieldContent
	return m
}

// Close releases the index.
func (ix *Index) Close() error {
	return ix.idx.Close()
}

// Count returns the number of indexed documents.
func (ix *Index) Count() (uint64, error) {
	return ix.idx.DocCount()
}

// Begin starts a batch of writes. Nothing is visible until Commit.
func (ix *Index) Begin() *Writer {
	return &Writer{ix: ix, batch: ix.idx.NewBatch()}
}

// Upsert replaces the document for path.
func (ix *Index) Upsert(path string, content []byte) error {
	w := ix.Begin()
	if err := w.Upsert(path, content); err != nil {
		w.Abort()
		return err
	}
	return w.Commit()
}

// Delete removes the document for path. Deleting a missing document is not an error.
func (ix *Index) Delete(path string) error {
	w := ix.Begin()
	w.Delete(path)
	return w.Commit()
}

// Search runs query against note contents and returns up to limit hits, each
// with a highlighted fragment when one is available.
func (ix *Index) Search(q string, limit int) ([]Hit, error) {
	mq := bleve.NewMatchQuery(q)
	mq.SetField(fieldContent)
	mq.SetOperator(query.MatchQueryOperatorAnd)

	req := bleve.NewSearchRequestOptions(mq, limit, 0, false)
	req.Fields = []string{fieldTitle}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(fieldContent)

	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Path: h.ID, Score: h.Score}
		if title, ok := h.Fields[fieldTitle].(string); ok {
			hit.Title = title
		}
		if frags := h.Fragments[fieldContent]; len(frags) > 0 {
			hit.Highlight = frags[0]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Writer accumulates index changes and applies them all at once.
type Writer struct {
	ix    *Index
	batch *bleve.Batch
}

// Upsert stages the document for path, replacing any earlier one.
func (w *Writer) Upsert(path string, content []byte) error {
	doc := document{
		Path:    path,
		Title:   Title(content, path),
		Content: string(content),
	}
	if err := w.batch.Index(path, doc); err != nil {
		return fmt.Errorf("failed to stage document %s: %w", path, err)
	}
	return nil
}

// Delete stages removal of the document for path.
func (w *Writer) Delete(path string) {
	w.batch.Delete(path)
}

// Commit applies every staged change.
func (w *Writer) Commit() error {
	defer w.batch.Reset()
	if err := w.ix.idx.Batch(w.batch); err != nil {
		return fmt.Errorf("failed to commit search index batch: %w", err)
	}
	return nil
}

// Abort discards every staged change.
func (w *Writer) Abort() {
	w.batch.Reset()
}
