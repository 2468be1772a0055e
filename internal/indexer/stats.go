package indexer

import (
	"context"

	"vaultindex/internal/storage"
)

// IndexStats describes the current state of the index.
type IndexStats struct {
	// Files is the number of indexed files.
	Files int `json:"files"`
	// Links is the number of link occurrences across all files.
	Links int `json:"links"`
	// Blocks is the number of distinct blocks, live or orphaned.
	Blocks int `json:"blocks"`
	// BlockInstances is the number of (block, file) references.
	BlockInstances int `json:"block_instances"`
	// OrphanBlocks is the number of blocks awaiting garbage collection.
	OrphanBlocks int `json:"orphan_blocks"`
	// SearchDocuments is the number of documents in the full-text index.
	SearchDocuments uint64 `json:"search_documents"`
	// QueuePending counts queued and in-flight tasks.
	QueuePending int `json:"queue_pending"`
	// FullTextBlocks reports whether block search uses the SQLite full-text shadow.
	FullTextBlocks bool `json:"full_text_blocks"`
	// FullTextModule names the shadow's module, fts5 or fts4.
	FullTextModule string `json:"full_text_module,omitempty"`
}

// Stats computes index statistics from both stores.
func (s *Service) Stats(ctx context.Context) (*IndexStats, error) {
	stats := &IndexStats{QueuePending: s.queue.Pending()}
	err := s.withSession(func(sess *session) error {
		counts, err := storage.NewStore(sess.db).Counts(ctx)
		if err != nil {
			return WrapError(err, "failed to count records")
		}
		docs, err := sess.index.Count()
		if err != nil {
			return WrapError(err, "failed to count search documents")
		}

		stats.Files = counts.Files
		stats.Links = counts.Links
		stats.Blocks = counts.Blocks
		stats.BlockInstances = counts.BlockInstances
		stats.OrphanBlocks = counts.OrphanBlocks
		stats.SearchDocuments = docs
		stats.FullTextBlocks = sess.caps.FTS
		stats.FullTextModule = sess.caps.FTSModule
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
