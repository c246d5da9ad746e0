package geo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedDatasetLoads(t *testing.T) {
	raw, err := builtinDataset()
	require.NoError(t, err)
	assert.Greater(t, len(raw), 50)
	for name, e := range raw {
		assert.Len(t, e.ISO2, 2, name)
		assert.NotEmpty(t, e.Languages, name)
	}
}

func TestDatasetResolver(t *testing.T) {
	r, err := NewDatasetResolver()
	require.NoError(t, err)

	info, err := r.ResolveCountry(context.Background(), "  hungary ")
	require.NoError(t, err)
	assert.Equal(t, CountryInfo{Name: "Hungary", ISO2: "HU", Languages: []string{"hun"}}, info)

	info, err = r.ResolveCountry(context.Background(), "U.K.")
	require.NoError(t, err)
	assert.Equal(t, "GB", info.ISO2)

	_, err = r.ResolveCountry(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.ResolveCountry(context.Background(), "  ")
	assert.Error(t, err)
}

func TestCountryMatcher_FindCountries(t *testing.T) {
	m, err := NewCountryMatcher()
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"name", "Floods hit Kenya again", []string{"Kenya"}},
		{"order of mention", "Talks between Japan and the U.S. stall", []string{"Japan", "United States"}},
		{"longest phrase wins", "South Korea elections", []string{"South Korea"}},
		{"city alias", "Heavy rain in New Delhi", []string{"India"}},
		{"demonym", "Indian rupee falls", []string{"India"}},
		{"no partial words", "Indiana Jones returns", nil},
		{"nothing", "Local bakery wins award", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.FindCountries(tt.text)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "u s a", normalizeKey(" U.S.A. "))
	assert.Equal(t, "türkiye s economy", normalizeKey("Türkiye's  economy!"))
	assert.Equal(t, "", normalizeKey("--"))
}

func TestParseEditionAndParams(t *testing.T) {
	e, err := ParseEdition("in:EN")
	require.NoError(t, err)
	assert.Equal(t, Edition{ISO2: "IN", Lang: "en"}, e)
	assert.Equal(t, "IN/en", e.String())

	e, err = ParseEdition("bg:bul")
	require.NoError(t, err)
	assert.Equal(t, "bg", e.Lang)

	_, err = ParseEdition("US")
	assert.Error(t, err)

	hl, gl, ceid := BuildGoogleNewsParams("hu", "hun")
	assert.Equal(t, "hu-HU", hl)
	assert.Equal(t, "HU", gl)
	assert.Equal(t, "HU:hu", ceid)

	hl, _, _ = BuildGoogleNewsParams("", "en")
	assert.Empty(t, hl)
}

func TestEditionsFor(t *testing.T) {
	got := EditionsFor(CountryInfo{ISO2: "ch", Languages: []string{"fr", "deu", "de"}}, true)
	assert.Equal(t, []Edition{{"CH", "de"}, {"CH", "en"}, {"CH", "fr"}}, got)
	assert.Nil(t, EditionsFor(CountryInfo{}, true))
}

func TestRegisteredDomain(t *testing.T) {
	assert.Equal(t, "bbc.co.uk", RegisteredDomain("https://www.bbc.co.uk/news/world"))
	assert.Equal(t, "example.com", RegisteredDomain("http://a.b.Example.com:8080/x?y=1"))
	assert.Equal(t, "", RegisteredDomain("not a url"))
	assert.Equal(t, "", RegisteredDomain(""))
}

func TestCache_ResetsWhenFull(t *testing.T) {
	c := NewCache(2)
	c.Put("a", "A")
	c.Put("b", "B")
	c.Put("a", "A2")
	assert.Equal(t, 2, c.Len())

	c.Put("c", "C")
	assert.Equal(t, 1, c.Len())
	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", v)
}

func newIPAPIServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/example.co.uk/"):
			_, _ = io.WriteString(w, `{"country_name":"United Kingdom"}`)
		case strings.HasPrefix(r.URL.Path, "/nowhere.example/"):
			_, _ = io.WriteString(w, `{"error":true,"reason":"Invalid IP Address"}`)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
}

func TestIPAPIResolver_LookupDomain(t *testing.T) {
	var calls atomic.Int32
	srv := newIPAPIServer(t, &calls)
	defer srv.Close()

	r := NewIPAPIResolver(srv.URL+"/", time.Second)

	got, err := r.LookupDomain(context.Background(), "example.co.uk")
	require.NoError(t, err)
	assert.Equal(t, "United Kingdom", got)

	_, err = r.LookupDomain(context.Background(), "nowhere.example")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.LookupDomain(context.Background(), "down.example")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLocator_Chain(t *testing.T) {
	var calls atomic.Int32
	srv := newIPAPIServer(t, &calls)
	defer srv.Close()

	m, err := NewCountryMatcher()
	require.NoError(t, err)
	l := NewLocator(m, NewIPAPIResolver(srv.URL, time.Second), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	// text mention wins, no lookup
	assert.Equal(t, "Brazil", l.Locate(ctx, "https://www.example.co.uk/a", "Wildfires spread in Brazil"))
	assert.EqualValues(t, 0, calls.Load())

	// domain lookup, cached afterwards
	assert.Equal(t, "United Kingdom", l.Locate(ctx, "https://news.example.co.uk/a", "Markets steady"))
	assert.Equal(t, "United Kingdom", l.Locate(ctx, "https://www.example.co.uk/b", "Markets steady"))
	assert.EqualValues(t, 1, calls.Load())

	// not found is cached as Unknown
	assert.Equal(t, Unknown, l.Locate(ctx, "https://nowhere.example/x", "quiet day"))
	assert.Equal(t, Unknown, l.Locate(ctx, "https://nowhere.example/y", "quiet day"))
	assert.EqualValues(t, 2, calls.Load())

	// transient errors are not cached
	assert.Equal(t, Unknown, l.Locate(ctx, "https://down.example/x", "quiet day"))
	assert.Equal(t, Unknown, l.Locate(ctx, "https://down.example/x", "quiet day"))
	assert.EqualValues(t, 4, calls.Load())

	assert.Equal(t, Unknown, l.Locate(ctx, "", "quiet day"))
}

func TestLocator_NoDomainResolver(t *testing.T) {
	l := NewLocator(nil, nil, nil)
	assert.Equal(t, Unknown, l.Locate(context.Background(), "https://www.bbc.co.uk/news", "Kenya"))
}

func TestLocator_Nil(t *testing.T) {
	var l *Locator
	assert.Equal(t, Unknown, l.Locate(context.Background(), "https://www.bbc.co.uk/news", "Kenya"))
}
