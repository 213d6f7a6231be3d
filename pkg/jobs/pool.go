package jobs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-commgraph/pkg/logging"
)

var (
	// ErrPoolClosed is returned by Submit after Close.
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrQueueFull is returned when every worker is busy and the queue is at
	// capacity. Submit never blocks the caller.
	ErrQueueFull = errors.New("job queue is full")
)

// WorkerPool runs submitted tasks on a fixed set of goroutines.
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	logger    logging.Logger
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu
}

// NewWorkerPool starts workers goroutines with room for queueSize pending
// tasks. Non-positive values fall back to one worker and a queue of twice the
// worker count.
func NewWorkerPool(workers, queueSize int, logger logging.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), queueSize),
		logger:    logging.OrNop(logger),
	}
	pool.start()
	return pool
}

func (wp *WorkerPool) start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		wp.runTask(task)
	}
}

func (wp *WorkerPool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("worker panic recovered", logging.String("panic", fmt.Sprint(r)))
		}
	}()
	task()
}

// Submit queues task without blocking.
func (wp *WorkerPool) Submit(task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.taskQueue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Pending is the number of tasks waiting for a worker.
func (wp *WorkerPool) Pending() int {
	return len(wp.taskQueue)
}

// Capacity is the size of the task queue.
func (wp *WorkerPool) Capacity() int {
	return cap(wp.taskQueue)
}
