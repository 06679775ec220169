package http

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

var (
	ErrInvalidWorkerCount = errors.New("http: worker count must be at least 1")
	ErrPoolStopped        = errors.New("http: worker pool is stopped")
)

// Task is an opaque unit of work. It reports results, if any, by itself.
type Task func()

type worker struct {
	id     int
	logger *slog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Task
	stopping bool
}

func newWorker(id int, logger *slog.Logger) *worker {
	w := &worker{
		id:     id,
		logger: logger,
	}
	w.cond = sync.NewCond(&w.mu)

	return w
}

func (w *worker) enqueue(task Task) {
	w.mu.Lock()
	w.queue = append(w.queue, task)
	w.mu.Unlock()

	w.cond.Signal()
}

// next blocks until a task is queued. It returns false once the worker is stopping and
// its queue is drained.
func (w *worker) next() (Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for len(w.queue) == 0 && !w.stopping {
		w.cond.Wait()
	}
	if len(w.queue) == 0 {
		return nil, false
	}

	task := w.queue[0]
	w.queue[0] = nil
	w.queue = w.queue[1:]

	return task, true
}

func (w *worker) stop() {
	w.mu.Lock()
	w.stopping = true
	w.mu.Unlock()

	w.cond.Broadcast()
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		task, ok := w.next()
		if !ok {
			return
		}

		w.execute(task)
	}
}

func (w *worker) execute(task Task) {
	defer func() {
		if recovered := recover(); recovered != nil {
			w.logger.Error("task panicked", "worker", w.id, "panic", fmt.Sprint(recovered))
		}
	}()

	task()
}

// WorkerPool runs tasks on a fixed set of workers. Tasks are assigned round-robin and
// each worker runs its own queue in FIFO order.
type WorkerPool struct {
	workers []*worker
	wg      sync.WaitGroup

	mu      sync.Mutex
	next    int
	stopped bool
}

func NewWorkerPool(size int, logger *slog.Logger) (*WorkerPool, error) {
	pool, err := newWorkerPool(size, logger)
	if err != nil {
		return nil, err
	}

	for _, w := range pool.workers {
		pool.wg.Add(1)
		go w.run(&pool.wg)
	}

	return pool, nil
}

// NewDefaultWorkerPool sizes the pool to the host's available parallelism.
func NewDefaultWorkerPool(logger *slog.Logger) *WorkerPool {
	pool, _ := NewWorkerPool(runtime.NumCPU(), logger)
	return pool
}

func newWorkerPool(size int, logger *slog.Logger) (*WorkerPool, error) {
	if size <= 0 {
		return nil, ErrInvalidWorkerCount
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool := WorkerPool{
		workers: make([]*worker, size),
	}
	for i := 0; i < size; i++ {
		pool.workers[i] = newWorker(i, logger)
	}

	return &pool, nil
}

func (pool *WorkerPool) Size() int {
	return len(pool.workers)
}

// Execute queues task on the next worker in turn.
func (pool *WorkerPool) Execute(task Task) error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.stopped {
		return ErrPoolStopped
	}

	pool.workers[pool.next].enqueue(task)

	pool.next++
	if pool.next == len(pool.workers) {
		pool.next = 0
	}

	return nil
}

// Stop lets every worker drain its queue and waits for all of them to exit.
func (pool *WorkerPool) Stop() {
	pool.mu.Lock()
	alreadyStopped := pool.stopped
	pool.stopped = true
	pool.mu.Unlock()

	if !alreadyStopped {
		for _, w := range pool.workers {
			w.stop()
		}
	}

	pool.wg.Wait()
}
