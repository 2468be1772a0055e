package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New()
	q.Push(Upsert{Path: "a.md"})
	q.Push(Delete{Path: "b.md"})
	q.Push(GarbageCollect{})

	want := []Kind{KindUpsert, KindDelete, KindGarbageCollect}
	for i, kind := range want {
		task, ok := q.Pop(context.Background(), 10*time.Millisecond)
		if !ok {
			t.Fatalf("Pop() #%d returned no task", i)
		}
		if task.Kind() != kind {
			t.Errorf("Pop() #%d kind = %s, want %s", i, task.Kind(), kind)
		}
		q.Done()
	}

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueue_PopTimeout(t *testing.T) {
	q := New()
	start := time.Now()
	_, ok := q.Pop(context.Background(), 20*time.Millisecond)
	if ok {
		t.Fatal("Pop() on empty queue should time out")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Pop() returned before the timeout elapsed")
	}
}

func TestQueue_PopWakesOnPush(t *testing.T) {
	q := New()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(Upsert{Path: "late.md"})
	}()

	task, ok := q.Pop(context.Background(), time.Second)
	if !ok {
		t.Fatal("Pop() should receive the late push")
	}
	if up, _ := task.(Upsert); up.Path != "late.md" {
		t.Errorf("Pop() = %#v, want Upsert{late.md}", task)
	}
}

func TestQueue_PopContextCancelled(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Pop(ctx, time.Second); ok {
		t.Error("Pop() with cancelled context should return false")
	}
}

func TestQueue_JoinWaitsForDone(t *testing.T) {
	q := New()

	if err := q.Join(context.Background()); err != nil {
		t.Fatalf("Join() on fresh queue error = %v", err)
	}

	q.Push(Upsert{Path: "a.md"})
	q.Push(Upsert{Path: "b.md"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Join(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Join() with outstanding work error = %v, want DeadlineExceeded", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2; i++ {
			if _, ok := q.Pop(context.Background(), time.Second); ok {
				// Popped but not yet done still counts as pending.
				if q.Pending() == 0 {
					t.Error("Pending() should include the in-flight task")
				}
				q.Done()
			}
		}
	}()

	joinCtx, joinCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer joinCancel()
	if err := q.Join(joinCtx); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	wg.Wait()

	if q.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", q.Pending())
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New()
	const producers, perProducer = 8, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(GarbageCollect{})
			}
		}()
	}

	done := make(chan int)
	go func() {
		n := 0
		for n < producers*perProducer {
			if _, ok := q.Pop(context.Background(), time.Second); !ok {
				break
			}
			n++
			q.Done()
		}
		done <- n
	}()

	wg.Wait()
	if n := <-done; n != producers*perProducer {
		t.Errorf("consumer received %d tasks, want %d", n, producers*perProducer)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Task
		wantErr bool
	}{
		{name: "upsert", input: `{"type":"upsert","path":"a.md"}`, want: Upsert{Path: "a.md"}},
		{name: "delete", input: `{"type":"delete","path":"a.md"}`, want: Delete{Path: "a.md"}},
		{name: "move", input: `{"type":"move","src_path":"a.md","dest_path":"b.md"}`, want: Move{Src: "a.md", Dest: "b.md"}},
		{name: "rename", input: `{"type":"rename_file","src_path":"a.md","dest_path":"b.md"}`, want: RenameFile{Src: "a.md", Dest: "b.md"}},
		{name: "sync", input: `{"type":"sync_block","old_hash":"abc","new_content":"x"}`, want: SyncBlock{OldHash: "abc", NewContent: "x"}},
		{name: "gc", input: `{"type":"garbage_collect_blocks"}`, want: GarbageCollect{}},
		{name: "unknown type", input: `{"type":"explode"}`, wantErr: true},
		{name: "missing path", input: `{"type":"upsert"}`, wantErr: true},
		{name: "missing dest", input: `{"type":"move","src_path":"a.md"}`, wantErr: true},
		{name: "malformed json", input: `{"type":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTask) {
					t.Errorf("Decode() error = %v, want ErrInvalidTask", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEncode_UsesWireTags(t *testing.T) {
	data, err := Encode(RenameFile{Src: "a.md", Dest: "b.md"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `{"type":"rename_file","src_path":"a.md","dest_path":"b.md"}`
	if string(data) != want {
		t.Errorf("Encode() = %s, want %s", data, want)
	}
}
