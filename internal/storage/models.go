package storage

import (
	"errors"
	"math"
	"time"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// FileRecord is one indexed Markdown file.
type FileRecord struct {
	ID           int64
	Path         string    // absolute path, unique
	ModifiedTime time.Time // stored as fractional Unix seconds
}

// Block is a content-addressed fragment. Hash is the SHA-256 of Content.
type Block struct {
	Hash    string
	Content string
}

// Counts summarizes table sizes.
type Counts struct {
	Files          int
	Links          int
	Blocks         int
	BlockInstances int
	OrphanBlocks   int
}

func toUnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(frac*1e9))
}
