package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"hark/internal/engine"
)

// memStore is an in-memory Store for tests. MoveBlocking does not block;
// an empty source list reports a timeout immediately.
type memStore struct {
	mu      sync.Mutex
	lists   map[string][]string
	values  map[string][]byte
	ttls    map[string]time.Duration
	moveErr error
}

func newMemStore() *memStore {
	return &memStore{
		lists:  make(map[string][]string),
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

func (s *memStore) MoveBlocking(ctx context.Context, from, to string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moveErr != nil {
		return "", s.moveErr
	}
	list := s.lists[from]
	if len(list) == 0 {
		return "", nil
	}
	value := list[len(list)-1]
	s.lists[from] = list[:len(list)-1]
	s.lists[to] = append([]string{value}, s.lists[to]...)
	return value, nil
}

func (s *memStore) Push(ctx context.Context, list, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[list] = append([]string{value}, s.lists[list]...)
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (s *memStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memStore) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *memStore) RemoveOne(ctx context.Context, list, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.lists[list] {
		if v == value {
			s.lists[list] = append(s.lists[list][:i], s.lists[list][i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memStore) listLen(list string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists[list])
}

// stubTranscriber returns a fixed text or error.
type stubTranscriber struct {
	text  string
	err   error
	calls int
}

func (s *stubTranscriber) Transcribe(ctx context.Context, filename string, data []byte, opts engine.Options) (*engine.TranscriptionResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &engine.TranscriptionResult{Text: s.text}, nil
}

func TestWorker_SuccessfulCycle(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.Set(ctx, AudioKey("job-1"), []byte("fake audio"))
	store.Push(ctx, PendingList, "job-1")

	transcriber := &stubTranscriber{text: "hello world"}
	worker := NewWorker(store, transcriber)

	if err := worker.cycle(ctx); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if n := store.listLen(PendingList); n != 0 {
		t.Errorf("pending has %d entries, want 0", n)
	}
	if n := store.listLen(ProcessingList); n != 0 {
		t.Errorf("processing has %d entries, want 0", n)
	}

	data, _ := store.Get(ctx, ResultKey("job-1"))
	if data == nil {
		t.Fatal("result not written")
	}
	var result JobResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if result.Text != "hello world" || result.JobID != "job-1" {
		t.Errorf("result = %+v, want text %q job %q", result, "hello world", "job-1")
	}
	if ttl := store.ttls[ResultKey("job-1")]; ttl != time.Hour {
		t.Errorf("result TTL = %v, want 1h", ttl)
	}
}

func TestWorker_MissingPayloadIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.Push(ctx, PendingList, "job-2")

	transcriber := &stubTranscriber{text: "unused"}
	worker := NewWorker(store, transcriber)

	if err := worker.cycle(ctx); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if transcriber.calls != 0 {
		t.Errorf("transcriber called %d times, want 0 for a missing payload", transcriber.calls)
	}
	if data, _ := store.Get(ctx, ResultKey("job-2")); data != nil {
		t.Error("result written for a missing payload")
	}
	if n := store.listLen(ProcessingList); n != 0 {
		t.Errorf("processing has %d entries, want 0 (job must still be acknowledged)", n)
	}
}

func TestWorker_FailureLeavesNoResult(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.Set(ctx, AudioKey("job-3"), []byte("fake audio"))
	store.Push(ctx, PendingList, "job-3")

	transcriber := &stubTranscriber{err: fmt.Errorf("server unreachable")}
	worker := NewWorker(store, transcriber)

	if err := worker.cycle(ctx); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if data, _ := store.Get(ctx, ResultKey("job-3")); data != nil {
		t.Error("result written for a failed job")
	}
	if n := store.listLen(ProcessingList); n != 0 {
		t.Errorf("processing has %d entries, want 0 (failed job is still acknowledged)", n)
	}
	if n := store.listLen(PendingList); n != 0 {
		t.Errorf("pending has %d entries, want 0 (failed job is not requeued)", n)
	}
}

func TestWorker_EmptyQueue(t *testing.T) {
	store := newMemStore()
	transcriber := &stubTranscriber{}
	worker := NewWorker(store, transcriber)

	if err := worker.cycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if transcriber.calls != 0 {
		t.Errorf("transcriber called %d times, want 0", transcriber.calls)
	}
}

func TestWorker_StoreErrorSurfaced(t *testing.T) {
	store := newMemStore()
	store.moveErr = fmt.Errorf("connection refused")
	worker := NewWorker(store, &stubTranscriber{})

	if err := worker.cycle(context.Background()); err == nil {
		t.Fatal("expected store error, got nil")
	}
}

func TestWorker_StartStop(t *testing.T) {
	store := newMemStore()
	worker := NewWorker(store, &stubTranscriber{})
	worker.dequeueWait = time.Millisecond

	worker.Start()
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_MultipleJobsInOrder(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("job-%d", i)
		store.Set(ctx, AudioKey(id), []byte("audio"))
		store.Push(ctx, PendingList, id)
	}

	worker := NewWorker(store, &stubTranscriber{text: "ok"})
	for i := 0; i < 3; i++ {
		if err := worker.cycle(ctx); err != nil {
			t.Fatalf("cycle %d failed: %v", i, err)
		}
	}

	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("job-%d", i)
		if data, _ := store.Get(ctx, ResultKey(id)); data == nil {
			t.Errorf("result missing for %s", id)
		}
	}
	if n := store.listLen(PendingList); n != 0 {
		t.Errorf("pending has %d entries, want 0", n)
	}
}
