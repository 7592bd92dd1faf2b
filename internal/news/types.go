package news

import (
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/config"
)

// PubDateLayout is the RFC 1123 variant Naver uses for pubDate.
const PubDateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

const (
	maxDisplayPerRequest = 100
	minRelevance         = 0.1
	dedupPrefixRunes     = 20
)

// Item is one news article.
type Item struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	PubDate        string  `json:"pub_date"`
	Link           string  `json:"link"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Config configures the Naver client.
type Config struct {
	ClientID     string
	ClientSecret string
	URL          string
	Months       int
	Display      int
	Timeout      time.Duration
	RatePerSec   float64
}

// FromConfig builds a Config from the daemon configuration.
func FromConfig(c config.NewsConfig) Config {
	return Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret.Value(),
		URL:          c.URL,
		Months:       c.Months,
		Display:      c.Display,
		Timeout:      c.Timeout.Duration(),
		RatePerSec:   c.RatePerSec,
	}
}

// Configured reports whether both credentials are present.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c *Config) applyDefaults() {
	if c.URL == "" {
		c.URL = "https://openapi.naver.com/v1/search/news.json"
	}
	if c.Months <= 0 {
		c.Months = 3
	}
	if c.Display <= 0 {
		c.Display = 20
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 10
	}
}

// naverResponse is the subset of the search API payload we read.
type naverResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
		PubDate     string `json:"pubDate"`
	} `json:"items"`
}
