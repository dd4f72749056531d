package watcher

import (
	"context"
	"sort"
	"sync"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeFetcher struct {
	version string
	err     error
	calls   int
}

func (f *fakeFetcher) FetchLatest(context.Context) (string, error) {
	f.calls++
	return f.version, f.err
}

type fakeVersionStore struct {
	mu        sync.Mutex
	clock     Clock
	versions  map[string]string
	latestErr error
	putErr    error
}

func newFakeVersionStore(clock Clock) *fakeVersionStore {
	return &fakeVersionStore{clock: clock, versions: map[string]string{}}
}

func (s *fakeVersionStore) Latest(context.Context) (Observation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestErr != nil {
		return Observation{}, false, s.latestErr
	}
	for _, date := range []string{Today(s.clock), Yesterday(s.clock)} {
		if v, ok := s.versions[date]; ok {
			return Observation{Date: date, Version: v}, true, nil
		}
	}
	return Observation{}, false, nil
}

func (s *fakeVersionStore) Put(_ context.Context, date, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.versions[date] = version
	return nil
}

type fakeChangeLog struct {
	mu        sync.Mutex
	records   map[string]ChangeRecord
	latest    string
	recordErr error
}

func newFakeChangeLog() *fakeChangeLog {
	return &fakeChangeLog{records: map[string]ChangeRecord{}}
}

func (l *fakeChangeLog) Record(_ context.Context, date string, change ChangeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recordErr != nil {
		return l.recordErr
	}
	l.records[date] = change
	l.latest = date
	return nil
}

func (l *fakeChangeLog) Latest(context.Context) (DatedChange, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest == "" {
		return DatedChange{}, false, nil
	}
	return DatedChange{Date: l.latest, Record: l.records[l.latest]}, true, nil
}

func (l *fakeChangeLog) List(context.Context) ([]DatedChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]DatedChange, 0, len(l.records))
	for date, rec := range l.records {
		out = append(out, DatedChange{Date: date, Record: rec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

func (n *fakeNotifier) sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.messages...)
}
