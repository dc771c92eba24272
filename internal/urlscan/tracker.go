package urlscan

import (
	"fmt"
	"sync"
	"time"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/storage"
)

// CounterStore persists classifier totals and the check log.
type CounterStore interface {
	Increment(name string, delta int64) (int64, error)
	URLCounters() (model.URLCounters, error)
	Reset(names ...string) error
	RecordCheck(check *model.URLCheck) error
	LastCheck() (*model.URLCheck, error)
}

// Tracker classifies URLs and keeps the scanned and detected counters.
type Tracker struct {
	classifier *Classifier
	store      CounterStore
	now        func() time.Time

	mu sync.Mutex
}

// NewTracker creates a tracker over a counter store.
func NewTracker(classifier *Classifier, store CounterStore) *Tracker {
	return &Tracker{classifier: classifier, store: store, now: time.Now}
}

// Check classifies a URL, bumps the counters and records the result.
func (t *Tracker) Check(url string) (*model.URLCheck, error) {
	check := t.classifier.Classify(url)
	check.CheckedAt = t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.store.Increment(storage.CounterRequestsScanned, 1); err != nil {
		return nil, err
	}
	if check.Detected {
		if _, err := t.store.Increment(storage.CounterThreatsDetected, 1); err != nil {
			return nil, err
		}
	}
	if err := t.store.RecordCheck(&check); err != nil {
		return nil, fmt.Errorf("failed to record check: %w", err)
	}

	return &check, nil
}

// Counters returns the current totals.
func (t *Tracker) Counters() (model.URLCounters, error) {
	return t.store.URLCounters()
}

// Reset zeroes both counters.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Reset(storage.CounterRequestsScanned, storage.CounterThreatsDetected)
}

// LastCheck returns the most recent check, or nil when none was made.
func (t *Tracker) LastCheck() (*model.URLCheck, error) {
	return t.store.LastCheck()
}
