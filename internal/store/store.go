// Package store keeps recently scored items and per location/topic counts in
// memory for the lifetime of the process.
//
// A Store is safe for concurrent use: every operation holds one mutex for the
// time it takes to copy or mutate in-memory data, and readers always receive
// copies, never references into the store.
package store

import (
	"slices"
	"sync"
	"time"

	"viralwarn/internal/discovery"
	"viralwarn/internal/scoring"
)

// UnknownLocation is used when no location could be resolved for an item.
const UnknownLocation = "Unknown"

// Event is a ContentItem merged with its assessment and derived fields.
type Event struct {
	discovery.ContentItem
	scoring.Assessment

	ScanID    string    `json:"scan_id"`
	Topic     string    `json:"topic"`
	Location  string    `json:"location"`
	ScannedAt time.Time `json:"scanned_at"`
}

func (e Event) clone() Event {
	e.Claims = slices.Clone(e.Claims)
	e.Evidence = slices.Clone(e.Evidence)
	return e
}

type Store struct {
	mu sync.Mutex

	// ring buffer; buf[head] is the newest event
	buf  []Event
	head int
	size int

	geoTopics map[string]map[string]int
}

// New creates a Store retaining at most capacity events. A non-positive
// capacity is treated as 1.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1
	}
	return &Store{
		buf:       make([]Event, capacity),
		geoTopics: map[string]map[string]int{},
	}
}

// Push inserts e as the newest event, evicting the oldest once the store is
// full.
func (s *Store) Push(e Event) {
	e = e.clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.head = (s.head - 1 + len(s.buf)) % len(s.buf)
	s.buf[s.head] = e
	if s.size < len(s.buf) {
		s.size++
	}
}

// Recent returns up to n events, newest first.
func (s *Store) Recent(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > s.size {
		n = s.size
	}
	if n <= 0 {
		return []Event{}
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.buf[(s.head+i)%len(s.buf)].clone())
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *Store) Capacity() int {
	return len(s.buf)
}

// IncrementGeoTopic bumps the (location, topic) counter. Empty location or
// topic is a no-op.
func (s *Store) IncrementGeoTopic(location, topic string) {
	if location == "" || topic == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	topics, ok := s.geoTopics[location]
	if !ok {
		topics = map[string]int{}
		s.geoTopics[location] = topics
	}
	topics[topic]++
}

// GeoTopicCounts returns a deep copy of the location -> topic -> count table.
func (s *Store) GeoTopicCounts() map[string]map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]map[string]int, len(s.geoTopics))
	for loc, topics := range s.geoTopics {
		cp := make(map[string]int, len(topics))
		for t, n := range topics {
			cp[t] = n
		}
		out[loc] = cp
	}
	return out
}

// ResetGeoTopics clears the counter table. The table has no eviction of its
// own, so long-running processes rotate it periodically.
func (s *Store) ResetGeoTopics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geoTopics = map[string]map[string]int{}
}

// RiskByLocation averages the risk score of stored events per location.
// Events without a resolved location are left out.
func (s *Store) RiskByLocation() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	sums := map[string]float64{}
	counts := map[string]int{}
	for i := 0; i < s.size; i++ {
		e := s.buf[(s.head+i)%len(s.buf)]
		if e.Location == "" || e.Location == UnknownLocation || e.Location == "Global" {
			continue
		}
		sums[e.Location] += e.RiskScore
		counts[e.Location]++
	}

	out := make(map[string]float64, len(sums))
	for loc, sum := range sums {
		out[loc] = sum / float64(counts[loc])
	}
	return out
}
