package queue

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"hark/internal/engine"
)

// Transcriber is the network call a worker makes to the synchronous
// transcription surface.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, data []byte, opts engine.Options) (*engine.TranscriptionResult, error)
}

// JobResult is the payload persisted under a job's result key.
type JobResult struct {
	Text  string `json:"text"`
	JobID string `json:"job_id"`
}

// Worker consumes job ids from the pending list and drives the pipeline
// through the service. Delivery is at least once: a job moved to the
// processing list is acknowledged by removal after Process returns, and an
// entry orphaned by a crash before acknowledgment is never requeued.
type Worker struct {
	store       Store
	transcriber Transcriber

	dequeueWait    time.Duration
	backoff        time.Duration
	requestTimeout time.Duration
	resultTTL      time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewWorker creates a worker over the given store and transcription client.
func NewWorker(store Store, transcriber Transcriber) *Worker {
	return &Worker{
		store:          store,
		transcriber:    transcriber,
		dequeueWait:    5 * time.Second,
		backoff:        5 * time.Second,
		requestTimeout: 5 * time.Minute,
		resultTTL:      time.Hour,
		stop:           make(chan struct{}),
	}
}

// Start begins the dequeue/process loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
	log.Println("Worker started, waiting for jobs...")
}

// Stop ends the loop after the current cycle and waits for it.
func (w *Worker) Stop() {
	close(w.stop)
	w.wg.Wait()
	log.Println("Worker stopped")
}

func (w *Worker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stop:
			return
		default:
		}

		if err := w.cycle(context.Background()); err != nil {
			log.Printf("Worker error: %v", err)
			select {
			case <-w.stop:
				return
			case <-time.After(w.backoff):
			}
		}
	}
}

// cycle performs one dequeue/process/acknowledge pass. Only store
// connectivity failures are returned; job-level failures are swallowed by
// Process so a bad job never stalls the loop.
func (w *Worker) cycle(ctx context.Context) error {
	jobID, err := w.store.MoveBlocking(ctx, PendingList, ProcessingList, w.dequeueWait)
	if err != nil {
		return err
	}
	if jobID == "" {
		return nil
	}

	w.Process(ctx, jobID)
	return w.store.RemoveOne(ctx, ProcessingList, jobID)
}

// Process loads the job's audio payload, runs it through the transcription
// service, and stores the result with a one-hour expiry. A missing payload
// is a no-op; any failure is logged and leaves no result.
func (w *Worker) Process(ctx context.Context, jobID string) {
	payload, err := w.store.Get(ctx, AudioKey(jobID))
	if err != nil {
		log.Printf("Job %s failed: %v", jobID, err)
		return
	}
	if payload == nil {
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, w.requestTimeout)
	defer cancel()

	result, err := w.transcriber.Transcribe(reqCtx, "audio.wav", payload, engine.DefaultOptions())
	if err != nil {
		log.Printf("Job %s failed: %v", jobID, err)
		return
	}

	body, err := json.Marshal(JobResult{Text: result.Text, JobID: jobID})
	if err != nil {
		log.Printf("Job %s failed: %v", jobID, err)
		return
	}

	if err := w.store.SetWithExpiry(ctx, ResultKey(jobID), body, w.resultTTL); err != nil {
		log.Printf("Job %s failed: %v", jobID, err)
		return
	}

	log.Printf("Job %s completed", jobID)
}
