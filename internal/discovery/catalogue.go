package discovery

// Feed groups.
const (
	GroupReputed       = "reputed"
	GroupQuestionable  = "questionable"
	GroupEntertainment = "entertainment"
	GroupIndia         = "india"
)

// DefaultFeeds is the built-in catalogue, used when the config lists none.
// Questionable outlets are kept for comparison and can be switched off.
func DefaultFeeds() []Feed {
	return []Feed{
		{Name: "BBC News", URL: "http://feeds.bbc.co.uk/news/rss.xml", Group: GroupReputed},
		{Name: "Reuters", URL: "https://www.reutersagency.com/feed/?taxonomy=best-topics&output=rss", Group: GroupReputed},
		{Name: "AP News", URL: "https://apnews.com/apf-services/v2/homepage?format=rss", Group: GroupReputed},
		{Name: "The Guardian", URL: "https://www.theguardian.com/world/rss", Group: GroupReputed},
		{Name: "NPR", URL: "https://feeds.npr.org/1001/rss.xml", Group: GroupReputed},

		{Name: "TMZ", URL: "https://www.tmz.com/rss.xml", Group: GroupEntertainment},
		{Name: "Reddit News", URL: "https://www.reddit.com/r/news/.rss", Group: GroupEntertainment},
		{Name: "Reddit World News", URL: "https://www.reddit.com/r/worldnews/.rss", Group: GroupEntertainment},

		{Name: "The Hindu", URL: "https://www.thehindu.com/news/national/?service=rss", Group: GroupIndia},
		{Name: "Times of India", URL: "https://timesofindia.indiatimes.com/rssfeedstopstories.cms", Group: GroupIndia},
		{Name: "Indian Express", URL: "https://indianexpress.com/feed/", Group: GroupIndia},
		{Name: "NDTV India", URL: "https://feeds.ndtv.com/ndtv/india.xml", Group: GroupIndia},
		{Name: "India Today", URL: "https://www.indiatoday.in/feeds/latest.xml", Group: GroupIndia},
		{Name: "Deccan Herald", URL: "https://www.deccanherald.com/rss/india.xml", Group: GroupIndia},
		{Name: "The Wire", URL: "https://thewire.in/feed/", Group: GroupIndia},
		{Name: "Scroll.in", URL: "https://scroll.in/feed", Group: GroupIndia},

		{Name: "Breitbart", URL: "https://feeds.breitbart.com/breitbart-feed/", Group: GroupQuestionable},
		{Name: "InfoWars (labeled)", URL: "https://www.infowars.com/feed/", Group: GroupQuestionable},
		{Name: "Natural News (labeled)", URL: "https://www.naturalnews.com/?feed=rss2", Group: GroupQuestionable},
	}
}

// FilterFeeds drops the questionable group unless includeQuestionable is set.
func FilterFeeds(feeds []Feed, includeQuestionable bool) []Feed {
	out := make([]Feed, 0, len(feeds))
	for _, f := range feeds {
		if f.Group == GroupQuestionable && !includeQuestionable {
			continue
		}
		out = append(out, f)
	}
	return out
}
