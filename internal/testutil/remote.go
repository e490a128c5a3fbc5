package testutil

import (
	"context"
	"strings"
	"sync"
	"time"
)

type fakeEntry struct {
	value     interface{}
	expiresAt time.Time
}

// FakeRemote is an in-memory remote cache backend with error injection.
// It satisfies cache.RemoteBackend, cache.HealthChecker and cache.PatternDeleter.
type FakeRemote struct {
	mu    sync.Mutex
	data  map[string]fakeEntry
	clock func() time.Time

	calls      int
	callCounts map[string]int
	failFrom   int

	// ErrorOnMethod makes the named method ("Get", "Set", "Delete", "Clear",
	// "DeleteMatching", "Health") return the given error
	ErrorOnMethod map[string]error
}

// NewFakeRemote creates an empty fake backend using time.Now
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		data:          make(map[string]fakeEntry),
		clock:         time.Now,
		callCounts:    make(map[string]int),
		ErrorOnMethod: make(map[string]error),
	}
}

// WithClock replaces the clock used for expiry
func (f *FakeRemote) WithClock(clock func() time.Time) *FakeRemote {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = clock
	return f
}

// FailFromCall makes every data call numbered n or later (1-based, across all methods) fail with ErrRemoteDown
func (f *FakeRemote) FailFromCall(n int) *FakeRemote {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFrom = n
	return f
}

// SetError injects err for method; nil clears it
func (f *FakeRemote) SetError(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.ErrorOnMethod, method)
		return
	}
	f.ErrorOnMethod[method] = err
}

// CallCount returns how many times method was invoked
func (f *FakeRemote) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCounts[method]
}

// TotalCalls returns the number of data calls across all methods
func (f *FakeRemote) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Has reports whether key holds a live value, without counting as a call
func (f *FakeRemote) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.data[key]
	return ok && f.clock().Before(entry.expiresAt)
}

// Put stores a value directly, bypassing call accounting and error injection
func (f *FakeRemote) Put(key string, value interface{}, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fakeEntry{value: value, expiresAt: f.clock().Add(ttl)}
}

// Len returns the number of stored keys, expired ones included
func (f *FakeRemote) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

func (f *FakeRemote) Get(ctx context.Context, key string) (interface{}, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.recordLocked("Get"); err != nil {
		return nil, false, err
	}

	entry, ok := f.data[key]
	if !ok || !f.clock().Before(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (f *FakeRemote) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.recordLocked("Set"); err != nil {
		return err
	}

	if ttl <= 0 {
		delete(f.data, key)
		return nil
	}
	f.data[key] = fakeEntry{value: value, expiresAt: f.clock().Add(ttl)}
	return nil
}

func (f *FakeRemote) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.recordLocked("Delete"); err != nil {
		return err
	}
	delete(f.data, key)
	return nil
}

func (f *FakeRemote) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.recordLocked("Clear"); err != nil {
		return err
	}
	f.data = make(map[string]fakeEntry)
	return nil
}

func (f *FakeRemote) DeleteMatching(ctx context.Context, substring string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.recordLocked("DeleteMatching"); err != nil {
		return 0, err
	}

	removed := 0
	for key := range f.data {
		if strings.Contains(key, substring) {
			delete(f.data, key)
			removed++
		}
	}
	return removed, nil
}

// Health does not count as a data call and ignores FailFromCall
func (f *FakeRemote) Health(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCounts["Health"]++
	return f.ErrorOnMethod["Health"]
}

// recordLocked counts the call and returns the injected error, if any (caller must hold lock)
func (f *FakeRemote) recordLocked(method string) error {
	f.calls++
	f.callCounts[method]++

	if err := f.ErrorOnMethod[method]; err != nil {
		return err
	}
	if f.failFrom > 0 && f.calls >= f.failFrom {
		return ErrRemoteDown
	}
	return nil
}
