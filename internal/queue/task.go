package queue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind tags a task variant. The string values are the wire tags.
type Kind string

const (
	KindUpsert         Kind = "upsert"
	KindDelete         Kind = "delete"
	KindMove           Kind = "move"
	KindRenameFile     Kind = "rename_file"
	KindSyncBlock      Kind = "sync_block"
	KindGarbageCollect Kind = "garbage_collect_blocks"
)

// ErrInvalidTask is returned when a task record cannot be decoded or is missing
// required fields.
var ErrInvalidTask = errors.New("invalid task")

// Task is a change request for the worker. The set of variants is closed: only
// the types in this package implement it.
type Task interface {
	Kind() Kind
	// Validate reports whether the task carries every field its handler needs.
	Validate() error
	sealed()
}

// Upsert (re)indexes the file at Path.
type Upsert struct {
	Path string `json:"path"`
}

// Delete removes the file at Path from both stores.
type Delete struct {
	Path string `json:"path"`
}

// Move records that a file already moved on disk from Src to Dest.
type Move struct {
	Src  string `json:"src_path"`
	Dest string `json:"dest_path"`
}

// RenameFile renames a file on disk and rewrites every link to its old title.
type RenameFile struct {
	Src  string `json:"src_path"`
	Dest string `json:"dest_path"`
}

// SyncBlock propagates an edited block to every file that instances OldHash.
type SyncBlock struct {
	OldHash    string `json:"old_hash"`
	NewContent string `json:"new_content"`
}

// GarbageCollect deletes blocks that no file references.
type GarbageCollect struct{}

func (Upsert) Kind() Kind         { return KindUpsert }
func (Delete) Kind() Kind         { return KindDelete }
func (Move) Kind() Kind           { return KindMove }
func (RenameFile) Kind() Kind     { return KindRenameFile }
func (SyncBlock) Kind() Kind      { return KindSyncBlock }
func (GarbageCollect) Kind() Kind { return KindGarbageCollect }

func (Upsert) sealed()         {}
func (Delete) sealed()         {}
func (Move) sealed()           {}
func (RenameFile) sealed()     {}
func (SyncBlock) sealed()      {}
func (GarbageCollect) sealed() {}

func (t Upsert) Validate() error { return requireField("path", t.Path) }
func (t Delete) Validate() error { return requireField("path", t.Path) }

func (t Move) Validate() error {
	if err := requireField("src_path", t.Src); err != nil {
		return err
	}
	return requireField("dest_path", t.Dest)
}

func (t RenameFile) Validate() error {
	if err := requireField("src_path", t.Src); err != nil {
		return err
	}
	return requireField("dest_path", t.Dest)
}

// Validate rejects an empty replacement: "{{}}" is not a block.
func (t SyncBlock) Validate() error {
	if err := requireField("old_hash", t.OldHash); err != nil {
		return err
	}
	return requireField("new_content", t.NewContent)
}

func (GarbageCollect) Validate() error { return nil }

func requireField(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: missing %s", ErrInvalidTask, name)
	}
	return nil
}

// envelope is the tagged wire form of a task.
type envelope struct {
	Type       Kind   `json:"type"`
	Path       string `json:"path,omitempty"`
	SrcPath    string `json:"src_path,omitempty"`
	DestPath   string `json:"dest_path,omitempty"`
	OldHash    string `json:"old_hash,omitempty"`
	NewContent string `json:"new_content,omitempty"`
}

// Decode parses a tagged task record such as {"type":"upsert","path":"a.md"}.
func Decode(data []byte) (Task, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}

	var task Task
	switch env.Type {
	case KindUpsert:
		task = Upsert{Path: env.Path}
	case KindDelete:
		task = Delete{Path: env.Path}
	case KindMove:
		task = Move{Src: env.SrcPath, Dest: env.DestPath}
	case KindRenameFile:
		task = RenameFile{Src: env.SrcPath, Dest: env.DestPath}
	case KindSyncBlock:
		task = SyncBlock{OldHash: env.OldHash, NewContent: env.NewContent}
	case KindGarbageCollect:
		task = GarbageCollect{}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidTask, env.Type)
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Encode renders a task in its tagged wire form.
func Encode(task Task) ([]byte, error) {
	env := envelope{Type: task.Kind()}
	switch t := task.(type) {
	case Upsert:
		env.Path = t.Path
	case Delete:
		env.Path = t.Path
	case Move:
		env.SrcPath, env.DestPath = t.Src, t.Dest
	case RenameFile:
		env.SrcPath, env.DestPath = t.Src, t.Dest
	case SyncBlock:
		env.OldHash, env.NewContent = t.OldHash, t.NewContent
	case GarbageCollect:
	}
	return json.Marshal(env)
}
