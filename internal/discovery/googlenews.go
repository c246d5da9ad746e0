package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"viralwarn/internal/geo"
)

const userAgent = "Mozilla/5.0 (compatible; viralwarn/1.0; +early-warning demo)"

// GoogleNews reads the top stories of one Google News edition and resolves
// every wrapper link to the publisher article when it can.
type GoogleNews struct {
	Client  *http.Client
	BaseURL string
	Edition geo.Edition
	Limit   int
}

func NewGoogleNews(e geo.Edition, limit int, timeout time.Duration) *GoogleNews {
	return &GoogleNews{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: "https://news.google.com/rss",
		Edition: e,
		Limit:   limit,
	}
}

func (g *GoogleNews) Name() string {
	return "Google News (" + g.Edition.String() + ")"
}

type rssFeed struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	GUID        string    `xml:"guid"`
	PubDate     string    `xml:"pubDate"`
	Description string    `xml:"description"`
	Source      rssSource `xml:"source"`
}

type rssSource struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

func (g *GoogleNews) Fetch(ctx context.Context) ([]ContentItem, error) {
	hl, gl, ceid := geo.BuildGoogleNewsParams(g.Edition.ISO2, g.Edition.Lang)
	if hl == "" {
		return nil, fmt.Errorf("google news: empty edition")
	}
	u := fmt.Sprintf("%s?hl=%s&gl=%s&ceid=%s",
		g.BaseURL,
		url.QueryEscape(hl),
		url.QueryEscape(gl),
		url.QueryEscape(ceid),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.1")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("google news rss http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, fmt.Errorf("google news rss: %w", err)
	}

	out := make([]ContentItem, 0, g.Limit)
	for _, it := range feed.Channel.Items {
		if g.Limit > 0 && len(out) >= g.Limit {
			break
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}

		googleURL := strings.TrimSpace(it.Link)
		link := publisherURL(it)
		if link == "" {
			if !isGoogleNewsWrapper(googleURL) {
				continue
			}
			// keep the wrapper; it still identifies the story
			link = googleURL
		}

		source := strings.TrimSpace(it.Source.Text)
		if source == "" {
			source = g.Name()
		}
		out = append(out, newItem(title, it.Description, link, source, strings.TrimSpace(it.PubDate)))
	}
	return out, nil
}

// isGoogleNewsWrapper reports whether u is a Google News article redirect.
func isGoogleNewsWrapper(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return isGoogleHost(parsed.Hostname()) && strings.Contains(parsed.Path, "/articles/")
}

var (
	reHref = regexp.MustCompile(`(?i)\bhref\s*=\s*(?:"([^"]+)"|'([^']+)')`)
	reURL  = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// publisherURL looks for the article behind a wrapper link: anchors and bare
// URLs in the description, then the GUID, then <source url> when it points
// past the homepage.
func publisherURL(it rssItem) string {
	desc := it.Description
	for range 3 {
		unescaped := html.UnescapeString(desc)
		if unescaped == desc {
			break
		}
		desc = unescaped
	}
	for _, m := range reHref.FindAllStringSubmatch(desc, -1) {
		if u := strings.TrimSpace(m[1] + m[2]); isPublisherURL(u) {
			return u
		}
	}

	for _, text := range []string{desc, it.GUID} {
		for _, u := range reURL.FindAllString(text, -1) {
			if u = strings.TrimRight(u, `.,;:!?)'"`); isPublisherURL(u) {
				return u
			}
		}
	}

	src := strings.TrimSpace(it.Source.URL)
	if parsed, err := url.Parse(src); err == nil && isPublisherURL(src) &&
		(strings.Trim(parsed.Path, "/") != "" || parsed.RawQuery != "") {
		return src
	}
	return ""
}

// isPublisherURL accepts absolute http(s) URLs outside Google.
func isPublisherURL(u string) bool {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return false
	}
	host := parsed.Hostname()
	return host != "" && !isGoogleHost(host)
}

// isGoogleHost matches google.com, news.google.com, google.co.uk and so on.
func isGoogleHost(host string) bool {
	d, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(host))
	if err != nil {
		return false
	}
	return strings.HasPrefix(d, "google.")
}
