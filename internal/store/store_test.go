package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viralwarn/internal/discovery"
	"viralwarn/internal/scoring"
)

func event(id string) Event {
	return Event{ContentItem: discovery.ContentItem{ID: id, Title: "title " + id}}
}

func TestPushAndRecent_NewestFirst(t *testing.T) {
	s := New(10)
	s.Push(event("a"))
	s.Push(event("b"))
	s.Push(event("c"))

	got := s.Recent(10)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "a", got[2].ID)
}

func TestPush_EvictsOldestPastCapacity(t *testing.T) {
	const capacity = 200
	s := New(capacity)
	for i := 0; i < capacity+5; i++ {
		s.Push(event(fmt.Sprintf("e%d", i)))
	}

	assert.Equal(t, capacity, s.Len())

	got := s.Recent(capacity)
	require.Len(t, got, capacity)
	for i, e := range got {
		// newest-first: the last push comes first
		assert.Equal(t, fmt.Sprintf("e%d", capacity+4-i), e.ID)
	}
}

func TestRecent_Bounds(t *testing.T) {
	s := New(5)
	assert.Empty(t, s.Recent(3))
	assert.NotNil(t, s.Recent(3))

	s.Push(event("a"))
	assert.Len(t, s.Recent(100), 1)
	assert.Empty(t, s.Recent(0))
	assert.Empty(t, s.Recent(-1))
}

func TestRecent_ReturnsCopies(t *testing.T) {
	s := New(5)
	e := event("a")
	e.Claims = []string{"original"}
	s.Push(e)

	e.Claims[0] = "mutated by writer"
	got := s.Recent(1)
	assert.Equal(t, "original", got[0].Claims[0])

	got[0].Claims[0] = "mutated by reader"
	assert.Equal(t, "original", s.Recent(1)[0].Claims[0])
}

func TestIncrementGeoTopic(t *testing.T) {
	s := New(5)
	s.IncrementGeoTopic("India", "elections")
	s.IncrementGeoTopic("India", "elections")
	s.IncrementGeoTopic("India", "floods")
	s.IncrementGeoTopic("France", "strikes")

	counts := s.GeoTopicCounts()
	assert.Equal(t, map[string]map[string]int{
		"India":  {"elections": 2, "floods": 1},
		"France": {"strikes": 1},
	}, counts)
}

func TestIncrementGeoTopic_EmptyIsNoop(t *testing.T) {
	s := New(5)
	s.IncrementGeoTopic("x", "y")
	before := s.GeoTopicCounts()

	s.IncrementGeoTopic("", "x")
	s.IncrementGeoTopic("x", "")

	assert.Equal(t, before, s.GeoTopicCounts())
}

func TestGeoTopicCounts_IsSnapshot(t *testing.T) {
	s := New(5)
	s.IncrementGeoTopic("India", "elections")

	snap := s.GeoTopicCounts()
	snap["India"]["elections"] = 100
	snap["Nowhere"] = map[string]int{"x": 1}

	assert.Equal(t, 1, s.GeoTopicCounts()["India"]["elections"])
	assert.NotContains(t, s.GeoTopicCounts(), "Nowhere")
}

func TestResetGeoTopics(t *testing.T) {
	s := New(5)
	s.IncrementGeoTopic("India", "elections")
	s.ResetGeoTopics()
	assert.Empty(t, s.GeoTopicCounts())
}

func TestRiskByLocation(t *testing.T) {
	s := New(10)
	for _, e := range []struct {
		loc  string
		risk float64
	}{
		{"India", 0.2}, {"India", 0.6}, {"France", 0.5}, {UnknownLocation, 0.9}, {"", 0.9},
	} {
		ev := event(e.loc)
		ev.Location = e.loc
		ev.Assessment = scoring.Assessment{RiskScore: e.risk}
		s.Push(ev)
	}

	got := s.RiskByLocation()
	require.Len(t, got, 2)
	assert.InDelta(t, 0.4, got["India"], 1e-9)
	assert.InDelta(t, 0.5, got["France"], 1e-9)
}

func TestConcurrentPushes_SerializeWholeEvents(t *testing.T) {
	for round := 0; round < 50; round++ {
		s := New(10)
		a := event("a")
		a.Claims = []string{"a1", "a2"}
		b := event("b")
		b.Claims = []string{"b1", "b2"}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); s.Push(a) }()
		go func() { defer wg.Done(); s.Push(b) }()
		wg.Wait()

		got := s.Recent(2)
		require.Len(t, got, 2)
		ids := got[0].ID + got[1].ID
		assert.Contains(t, []string{"ab", "ba"}, ids)
		for _, e := range got {
			assert.Equal(t, []string{e.ID + "1", e.ID + "2"}, e.Claims)
		}
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	s := New(20)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.Push(event(fmt.Sprintf("e%d", i)))
			s.IncrementGeoTopic("loc", "topic")
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				assert.LessOrEqual(t, len(s.Recent(50)), 20)
				_ = s.GeoTopicCounts()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
	assert.Equal(t, 500, s.GeoTopicCounts()["loc"]["topic"])
}
