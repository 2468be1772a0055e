package indexer

// Notifier is told about files the engine rewrote on disk, so open views can
// reload them.
type Notifier interface {
	FileModified(path string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(path string)

// FileModified calls f(path).
func (f NotifierFunc) FileModified(path string) { f(path) }

type nopNotifier struct{}

func (nopNotifier) FileModified(string) {}
