package news

import (
	"encoding/xml"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/zenwen/etfadvisor/config"
	"github.com/zenwen/etfadvisor/internal/retry"
)

const (
	googleNewsRSSURL    = "https://news.google.com/rss/search"
	googleSearchURL     = "https://www.google.com/search"
	macroQuery          = "中国 宏观经济 A股 市场"
	macroHeadlineLimit  = 5
	sectorHeadlineLimit = 10
)

// Headline is one macro headline with its publisher.
type Headline struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

// rss mirrors the Google News feed envelope.
type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title string `xml:"title"`
	Items []item `xml:"item"`
}

type item struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

// sectorQueries maps a fund's sector keyword to a sharper search query.
// Unlisted keywords fall back to "<keyword> 行业分析".
var sectorQueries = map[string]string{
	"红利":   "高股息 红利ETF 投资",
	"白酒":   "白酒行业 消费",
	"纳斯达克": "纳斯达克 美股 科技股",
	"黄金":   "黄金价格 避险",
	"医疗":   "医疗行业 创新药",
	"券商":   "券商板块 证券行业",
	"半导体":  "半导体 芯片行业",
}

// Client fetches short headline lists from Google News RSS, with an HTML
// search fallback and an on-disk TTL cache.
type Client struct {
	http   *resty.Client
	cache  *cache
	policy retry.Policy
}

func NewClient(cfg *config.Config) *Client {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	return &Client{
		http:   client,
		cache:  newCache(filepath.Join(cfg.DataCacheDir, "news"), 30*time.Minute, cfg.CacheEnabled),
		policy: retry.Policy{Attempts: 3, Delay: 2 * time.Second},
	}
}

// MacroHeadlines fetches up to five market-wide headlines. It never fails:
// an unreachable or empty feed yields a single system placeholder.
func (c *Client) MacroHeadlines() []Headline {
	var cached []Headline
	if c.cache.get("macro", macroQuery, &cached) && len(cached) > 0 {
		return cached
	}

	var items []item
	err := c.policy.Do("news:macro", func() error {
		var fetchErr error
		items, fetchErr = c.fetchRSS(macroQuery)
		return fetchErr
	})
	if err != nil || len(items) == 0 {
		log.Printf("[News] macro feed unavailable: %v", err)
		return []Headline{{Title: "暂无重要市场新闻", Source: "System"}}
	}

	headlines := make([]Headline, 0, macroHeadlineLimit)
	for _, it := range items {
		if len(headlines) == macroHeadlineLimit {
			break
		}
		headlines = append(headlines, splitHeadline(it.Title))
	}

	c.cache.set("macro", macroQuery, headlines)
	return headlines
}

// SectorHeadlines fetches up to ten recent titles for a sector keyword.
// Failures degrade to an empty list.
func (c *Client) SectorHeadlines(keyword string) []string {
	query := sectorQueries[keyword]
	if query == "" {
		query = keyword + " 行业分析"
	}
	// recency filter keeps the analyst off stale stories
	query += " when:2d"

	var cached []string
	if c.cache.get("sector", query, &cached) {
		return cached
	}

	var items []item
	err := c.policy.Do("news:"+keyword, func() error {
		var fetchErr error
		items, fetchErr = c.fetchRSS(query)
		return fetchErr
	})
	if err != nil {
		log.Printf("[News] sector feed for %q unavailable: %v", keyword, err)
		return nil
	}

	titles := make([]string, 0, sectorHeadlineLimit)
	for _, it := range items {
		if len(titles) == sectorHeadlineLimit {
			break
		}
		titles = append(titles, splitHeadline(it.Title).Title)
	}

	if len(titles) == 0 {
		titles = c.searchFallback(query)
	}

	c.cache.set("sector", query, titles)
	return titles
}

func (c *Client) fetchRSS(query string) ([]item, error) {
	resp, err := c.http.R().
		SetQueryParams(map[string]string{
			"q":    query,
			"hl":   "zh-CN",
			"gl":   "CN",
			"ceid": "CN:zh-Hans",
		}).
		Get(googleNewsRSSURL)
	if err != nil {
		return nil, fmt.Errorf("fetch news feed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("news feed HTTP %d", resp.StatusCode())
	}

	var feed rss
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("parse news feed: %w", err)
	}
	return feed.Channel.Items, nil
}

// searchFallback scrapes the Google news-tab result page when the RSS feed
// comes back empty. Best effort only.
func (c *Client) searchFallback(query string) []string {
	values := url.Values{}
	values.Set("q", query)
	values.Set("tbm", "nws")
	values.Set("hl", "zh-CN")

	resp, err := c.http.R().Get(googleSearchURL + "?" + values.Encode())
	if err != nil || resp.StatusCode() != 200 {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil
	}

	var titles []string
	doc.Find("h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if title := strings.TrimSpace(sel.Text()); title != "" {
			titles = append(titles, title)
		}
		return len(titles) < sectorHeadlineLimit
	})
	return titles
}

// splitHeadline breaks a Google News title into headline and publisher at
// the rightmost " - " separator.
func splitHeadline(title string) Headline {
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		return Headline{
			Title:  strings.TrimSpace(title[:idx]),
			Source: strings.TrimSpace(title[idx+3:]),
		}
	}
	return Headline{Title: strings.TrimSpace(title), Source: ""}
}
