package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks vaultindex/internal/indexer Engine

import (
	"context"

	"vaultindex/internal/queue"
	"vaultindex/internal/search"
	"vaultindex/internal/storage"
)

// Engine is the surface the HTTP layer and CLI drive.
type Engine interface {
	// Submit validates a task and queues it for the worker.
	Submit(task queue.Task) error
	// Search runs a full-text query. It never fails: an unavailable index yields
	// no hits.
	Search(ctx context.Context, query string) []search.Hit
	// WaitForIdle blocks until the initial scan finished and every queued task
	// has been processed.
	WaitForIdle(ctx context.Context) error
	// RebuildIndex discards both stores and re-indexes the vault from scratch.
	RebuildIndex(ctx context.Context) error
	// Backlinks lists files linking to page, given as a title or a note path.
	Backlinks(ctx context.Context, page string) ([]string, error)
	// BlockFanOut counts the distinct files referencing a block.
	BlockFanOut(ctx context.Context, hash string) (int, error)
	// SearchBlocks finds blocks by content prefix.
	SearchBlocks(ctx context.Context, prefix string, limit int) ([]storage.Block, error)
	// Stats reports index sizes and queue state.
	Stats(ctx context.Context) (*IndexStats, error)
}

var _ Engine = (*Service)(nil)
