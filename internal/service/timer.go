package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/stopwatch"
)

var ErrAutoSaveTarget = errors.New("auto-save needs either a distance or a training type")

type TimerStatus struct {
	State     stopwatch.State `json:"state"`
	ElapsedMs int64           `json:"elapsedMs"`
	Seconds   float64         `json:"seconds"` // rounded to hundredths
}

// AutoSave describes what Stop persists. Exactly one of Distance and
// TrainingType is set.
type AutoSave struct {
	RacerID      string
	Distance     model.Distance
	TrainingType model.TrainingType
	Note         string
	Location     *time.Location
}

type StopResult struct {
	Status  TimerStatus            `json:"status"`
	Records []*model.Record        `json:"records,omitempty"`
	Session *model.TrainingSession `json:"session,omitempty"`
}

const (
	// timerIdleTTL is how long an untouched stopwatch is kept.
	timerIdleTTL    = 12 * time.Hour
	timerSweepEvery = time.Minute
)

type timerEntry struct {
	sw       *stopwatch.Stopwatch
	lastSeen time.Time
}

// TimerService keeps one stopwatch per browser session. Stopwatches nobody
// touched for timerIdleTTL are evicted.
type TimerService struct {
	records  *RecordService
	training *TrainingService
	clock    func() time.Time

	mu        sync.Mutex
	watches   map[string]*timerEntry
	lastSweep time.Time
}

func NewTimerService(records *RecordService, training *TrainingService) *TimerService {
	return &TimerService{
		records:  records,
		training: training,
		clock:    time.Now,
		watches:  make(map[string]*timerEntry),
	}
}

// stopwatch returns the session's stopwatch and marks it used. Without create
// an unknown session yields nil.
func (s *TimerService) stopwatch(sessionID string, create bool) *stopwatch.Stopwatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.sweep(now)

	entry, ok := s.watches[sessionID]
	if !ok {
		if !create {
			return nil
		}
		entry = &timerEntry{sw: stopwatch.NewWithClock(s.clock)}
		s.watches[sessionID] = entry
	}
	entry.lastSeen = now
	return entry.sw
}

// sweep drops idle stopwatches. It runs at most once per timerSweepEvery and
// must be called with mu held.
func (s *TimerService) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < timerSweepEvery {
		return
	}
	s.lastSweep = now

	for id, entry := range s.watches {
		if now.Sub(entry.lastSeen) > timerIdleTTL {
			delete(s.watches, id)
		}
	}
}

// current reports the registered stopwatch without touching it.
func (s *TimerService) current(sessionID string) *stopwatch.Stopwatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.watches[sessionID]; ok {
		return entry.sw
	}
	return nil
}

func (s *TimerService) Status(sessionID string) TimerStatus {
	sw := s.stopwatch(sessionID, false)
	if sw == nil {
		return TimerStatus{State: stopwatch.StateIdle}
	}
	return statusOf(sw.State(), sw.Elapsed())
}

func (s *TimerService) Start(sessionID string) TimerStatus {
	sw := s.stopwatch(sessionID, true)
	sw.Start()
	return statusOf(sw.State(), sw.Elapsed())
}

// Stop freezes the stopwatch. With auto-save it persists the time and resets
// on success; a failed save leaves the frozen time in place.
func (s *TimerService) Stop(ctx context.Context, sessionID string, auto *AutoSave) (StopResult, error) {
	var elapsed time.Duration
	if sw := s.stopwatch(sessionID, false); sw != nil {
		elapsed = sw.Stop()
	}
	result := StopResult{Status: statusOf(stopwatch.StateIdle, elapsed)}

	if auto == nil {
		return result, nil
	}

	seconds := result.Status.Seconds
	switch {
	case auto.Distance != 0 && auto.TrainingType == "":
		records, err := s.records.Add(ctx, RecordInput{
			RacerID:     auto.RacerID,
			Distance:    auto.Distance,
			TimeSeconds: seconds,
			RecordType:  model.RecordTypeStopwatch,
			Location:    auto.Location,
		})
		if err != nil {
			return result, err
		}
		result.Records = records
	case auto.TrainingType != "" && auto.Distance == 0:
		session, err := s.training.Add(ctx, TrainingInput{
			RacerID:         auto.RacerID,
			Type:            auto.TrainingType,
			DurationSeconds: seconds,
			Note:            auto.Note,
			Location:        auto.Location,
		})
		if err != nil {
			return result, err
		}
		result.Session = session
	default:
		return result, ErrAutoSaveTarget
	}

	s.Reset(sessionID)
	result.Status = TimerStatus{State: stopwatch.StateIdle}
	return result, nil
}

// Reset zeroes the stopwatch.
func (s *TimerService) Reset(sessionID string) TimerStatus {
	if sw := s.stopwatch(sessionID, false); sw != nil {
		sw.Reset()
	}
	return TimerStatus{State: stopwatch.StateIdle}
}

// Watch streams the session's stopwatch until ctx is done. A slow reader only
// sees the latest sample. If the stopwatch is evicted and a new one started,
// the stream follows the new one.
func (s *TimerService) Watch(ctx context.Context, sessionID string, interval time.Duration) <-chan TimerStatus {
	out := make(chan TimerStatus)

	go func() {
		defer close(out)

		for ctx.Err() == nil {
			sw := s.stopwatch(sessionID, true)
			s.follow(ctx, sessionID, sw, interval, out)
		}
	}()

	return out
}

// follow forwards samples of sw until ctx is done or sw is no longer the
// session's stopwatch.
func (s *TimerService) follow(ctx context.Context, sessionID string, sw *stopwatch.Stopwatch, interval time.Duration, out chan<- TimerStatus) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for elapsed := range sw.Watch(ctx, interval) {
		if s.current(sessionID) != sw {
			return
		}
		select {
		case out <- statusOf(sw.State(), elapsed):
		case <-ctx.Done():
			return
		}
	}
}

func statusOf(state stopwatch.State, elapsed time.Duration) TimerStatus {
	return TimerStatus{
		State:     state,
		ElapsedMs: elapsed.Milliseconds(),
		Seconds:   math.Round(elapsed.Seconds()*100) / 100,
	}
}
