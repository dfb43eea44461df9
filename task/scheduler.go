package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ytanalyzer/logger"
)

// ProgressFunc lets a work function publish intermediate progress (0-100).
type ProgressFunc func(pct int)

// WorkFunc is the unit of work executed for a task. Its return value becomes the
// task result.
type WorkFunc func(ctx context.Context, progress ProgressFunc) (string, error)

// ResultStore is an optional durable side-store for completed results.
type ResultStore interface {
	SaveTaskResult(taskID, result string) error
}

// Handle is returned by Dispatch. Done is closed once the task is terminal.
type Handle struct {
	TaskID string
	done   chan struct{}
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Scheduler runs work functions off the caller's goroutine and records their outcome
// in the Registry.
type Scheduler struct {
	ctx            context.Context
	registry       *Registry
	store          ResultStore
	concurrencySem chan struct{}
	wg             sync.WaitGroup
}

// NewScheduler builds a scheduler whose executions all run under ctx. maxConcurrency
// bounds simultaneous executions; zero or less means unbounded.
func NewScheduler(ctx context.Context, registry *Registry, maxConcurrency int, store ResultStore) *Scheduler {
	s := &Scheduler{
		ctx:      ctx,
		registry: registry,
		store:    store,
	}
	if maxConcurrency > 0 {
		s.concurrencySem = make(chan struct{}, maxConcurrency)
	}
	return s
}

// Dispatch starts the task if it is still pending and returns immediately. A nil
// handle means nothing was started.
func (s *Scheduler) Dispatch(taskID string, work WorkFunc) *Handle {
	claimed, err := s.registry.claim(taskID)
	if err != nil {
		logger.Warnf("Dispatch of %s ignored: %v", taskID, err)
		return nil
	}
	if !claimed {
		logger.Debugf("Task %s is not pending, dispatch skipped.", taskID)
		return nil
	}

	h := &Handle{TaskID: taskID, done: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(h.done)
		if s.concurrencySem != nil {
			s.concurrencySem <- struct{}{}
			defer func() { <-s.concurrencySem }() // Release slot
		}
		s.execute(taskID, work)
	}()
	logger.Infof("Task %s dispatched.", taskID)
	return h
}

// Wait blocks until every dispatched execution has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// WaitContext is Wait bounded by ctx. It returns ctx.Err() if executions are still
// running when ctx is done.
func (s *Scheduler) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) execute(taskID string, work WorkFunc) {
	logger.Infof("Processing task %s", taskID)
	result, err := s.run(taskID, work)
	if err == nil && result == "" {
		err = errors.New("task produced an empty result")
	}
	if err != nil {
		logger.Errorf("Task %s failed: %v", taskID, err)
		msg := err.Error()
		if msg == "" {
			msg = "task failed"
		}
		if uerr := s.registry.Update(taskID, Update{Status: StatusFailed, Error: &msg}); uerr != nil {
			logger.Errorf("Task %s: record failure: %v", taskID, uerr)
		}
		return
	}

	done := 100
	if uerr := s.registry.Update(taskID, Update{Status: StatusCompleted, Progress: &done, Result: &result}); uerr != nil {
		logger.Errorf("Task %s: record completion: %v", taskID, uerr)
		return
	}
	logger.Infof("Task %s completed successfully.", taskID)

	if s.store != nil {
		if serr := s.store.SaveTaskResult(taskID, result); serr != nil {
			logger.Warnf("Task %s: caching result: %v", taskID, serr)
		}
	}
}

// run invokes work and converts a panic into an error.
func (s *Scheduler) run(taskID string, work WorkFunc) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	if work == nil {
		return "", errors.New("no work function")
	}
	return work(s.ctx, func(pct int) { s.registry.reportProgress(taskID, pct) })
}
