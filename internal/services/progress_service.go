// internal/services/progress_service.go
package services

import (
	"sync"
	"time"

	"github.com/greenlit-app/greenlit/internal/models"
)

// ProgressService tracks long-running generation runs. Each run has a
// current snapshot (served to pollers) and a set of subscriber channels
// (served to SSE streams). Updates within one run are applied under the
// run's lock, so subscribers observe them in order.
type ProgressService struct {
	runs  map[string]*progressRun
	mutex sync.RWMutex
}

type progressRun struct {
	snapshot    models.GenerationProgress
	subscribers map[chan models.ProgressEvent]struct{}
	mutex       sync.Mutex
	done        bool
	updatedAt   time.Time
}

func NewProgressService() *ProgressService {
	s := &ProgressService{runs: make(map[string]*progressRun)}
	go s.cleanupLoop()
	return s
}

// StartRun registers a run with an initial snapshot. Starting an id that is
// already live is a no-op so a caller may register the run before handing it
// to the runner without losing subscribers.
func (s *ProgressService) StartRun(runID string, firstStepName string) {
	s.mutex.Lock()
	if existing, ok := s.runs[runID]; ok {
		existing.mutex.Lock()
		live := !existing.done
		existing.mutex.Unlock()
		if live {
			s.mutex.Unlock()
			return
		}
	}
	s.mutex.Unlock()

	run := &progressRun{
		snapshot: models.GenerationProgress{
			RunID:           runID,
			CurrentStep:     0,
			CurrentStepName: firstStepName,
		},
		subscribers: make(map[chan models.ProgressEvent]struct{}),
		updatedAt:   time.Now(),
	}

	s.mutex.Lock()
	s.runs[runID] = run
	s.mutex.Unlock()
}

// UpdateProgress advances the run snapshot and fans the event out to all
// subscribers. Slow subscribers are skipped rather than blocked on.
func (s *ProgressService) UpdateProgress(runID string, step int, stepName string, stepProgress, overallProgress int, detail string) {
	run := s.getRun(runID)
	if run == nil {
		return
	}

	run.mutex.Lock()
	run.snapshot.CurrentStep = step
	run.snapshot.CurrentStepName = stepName
	run.snapshot.CurrentStepProgress = stepProgress
	run.snapshot.OverallProgress = overallProgress
	run.snapshot.CurrentDetail = detail
	run.updatedAt = time.Now()
	event := models.ProgressEvent{Type: models.EventProgress, Progress: run.snapshot}
	run.broadcastLocked(event)
	run.mutex.Unlock()
}

// CompleteRun marks the run finished, delivers a final event carrying the
// run's payload, and closes all subscriber channels.
func (s *ProgressService) CompleteRun(runID string, payload interface{}) {
	run := s.getRun(runID)
	if run == nil {
		return
	}

	run.mutex.Lock()
	run.snapshot.IsComplete = true
	run.snapshot.OverallProgress = 100
	run.snapshot.CurrentStepProgress = 100
	run.updatedAt = time.Now()
	run.done = true
	run.broadcastLocked(models.ProgressEvent{
		Type:     models.EventComplete,
		Progress: run.snapshot,
		Payload:  payload,
	})
	run.closeSubscribersLocked()
	run.mutex.Unlock()
}

// FailRun marks the run failed with a message and closes all subscribers.
func (s *ProgressService) FailRun(runID string, message string) {
	run := s.getRun(runID)
	if run == nil {
		return
	}

	run.mutex.Lock()
	run.snapshot.IsComplete = true
	run.snapshot.Failed = true
	run.snapshot.Error = message
	run.updatedAt = time.Now()
	run.done = true
	run.broadcastLocked(models.ProgressEvent{Type: models.EventError, Progress: run.snapshot})
	run.closeSubscribersLocked()
	run.mutex.Unlock()
}

// GetProgress returns the current snapshot for polling clients.
func (s *ProgressService) GetProgress(runID string) (models.GenerationProgress, bool) {
	run := s.getRun(runID)
	if run == nil {
		return models.GenerationProgress{}, false
	}

	run.mutex.Lock()
	defer run.mutex.Unlock()
	return run.snapshot, true
}

// Subscribe returns a channel of progress events for the run, plus an
// unsubscribe function. The current snapshot is delivered immediately so a
// late subscriber does not start blind. For finished runs the channel
// carries the final state and is closed.
func (s *ProgressService) Subscribe(runID string) (<-chan models.ProgressEvent, func(), bool) {
	run := s.getRun(runID)
	if run == nil {
		return nil, nil, false
	}

	ch := make(chan models.ProgressEvent, 16)

	run.mutex.Lock()
	snapshot := run.snapshot
	eventType := models.EventProgress
	if run.done {
		if run.snapshot.Failed {
			eventType = models.EventError
		} else {
			eventType = models.EventComplete
		}
	}
	ch <- models.ProgressEvent{Type: eventType, Progress: snapshot}
	if run.done {
		close(ch)
		run.mutex.Unlock()
		return ch, func() {}, true
	}
	run.subscribers[ch] = struct{}{}
	run.mutex.Unlock()

	unsubscribe := func() {
		run.mutex.Lock()
		if _, ok := run.subscribers[ch]; ok {
			delete(run.subscribers, ch)
			close(ch)
		}
		run.mutex.Unlock()
	}
	return ch, unsubscribe, true
}

func (s *ProgressService) getRun(runID string) *progressRun {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.runs[runID]
}

// broadcastLocked sends to every subscriber; callers hold run.mutex.
func (r *progressRun) broadcastLocked(event models.ProgressEvent) {
	for ch := range r.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (r *progressRun) closeSubscribersLocked() {
	for ch := range r.subscribers {
		close(ch)
		delete(r.subscribers, ch)
	}
}

// cleanupLoop drops finished runs an hour after their last update.
func (s *ProgressService) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		s.mutex.Lock()
		for id, run := range s.runs {
			run.mutex.Lock()
			expired := run.done && run.updatedAt.Before(cutoff)
			run.mutex.Unlock()
			if expired {
				delete(s.runs, id)
			}
		}
		s.mutex.Unlock()
	}
}
