package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Job - единица работы, обычно обработка одного входящего сообщения
type Job func(ctx context.Context)

// Pool - фиксированное число воркеров и ограниченная очередь.
// Если очередь полна, задача отбрасывается, а не блокирует приемник апдейтов.
type Pool struct {
	workers int
	jobChan chan Job
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		workers: workers,
		jobChan: make(chan Job, queueSize),
		logger:  logger.With("component", "worker_pool"),
	}
}

// Submit не блокируется. false = пул перегружен.
func (p *Pool) Submit(job Job) bool {
	select {
	case p.jobChan <- job:
		return true
	default:
		p.logger.Warn("Worker pool overloaded, job dropped")
		return false
	}
}

// Run запускает воркеров и ждет, пока они завершатся после отмены ctx
func (p *Pool) Run(ctx context.Context) {
	p.logger.Info("Starting worker pool", slog.Int("workers", p.workers))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.wg.Wait()

	p.logger.Info("Worker pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobChan:
			p.execute(ctx, id, job)
		case <-ctx.Done():
			return
		}
	}
}

// execute не дает панике в обработчике убить воркер
func (p *Pool) execute(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", slog.Int("worker", id), slog.Any("panic", r))
		}
	}()
	job(ctx)
}
