// Package ingest pulls review texts from sources beyond CSV uploads.
// RSS/Atom feeds become entries whose category is the feed's name, so the
// facet filter works the same way it does for tagged CSV rows.
package ingest

import (
	"log"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"sentiboard/internal/entry"
)

const maxPerFeed = 50

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedReader turns configured feeds into analysis entries.
type FeedReader struct {
	feeds     []FeedConfig
	extractor *Extractor
}

// NewFeedReader creates a reader for the configured feeds. The extractor is
// optional; without one, items that carry no inline content are skipped.
func NewFeedReader(feeds []FeedConfig, extractor *Extractor) *FeedReader {
	return &FeedReader{feeds: feeds, extractor: extractor}
}

// ReadAll parses every configured feed and returns the collected entries.
// Feed failures are logged and skipped so one dead feed does not block the
// rest.
func (fr *FeedReader) ReadAll() []entry.Entry {
	parser := gofeed.NewParser()
	var all []entry.Entry

	for _, fc := range fr.feeds {
		name := fc.Name
		if name == "" {
			name = sourceName(fc.URL)
		}

		entries, err := fr.readFeed(parser, fc.URL, name)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		all = append(all, entries...)
		log.Printf("Collected %d entries from %s", len(entries), name)
	}

	return all
}

func (fr *FeedReader) readFeed(parser *gofeed.Parser, feedURL, name string) ([]entry.Entry, error) {
	feed, err := parser.ParseURL(feedURL)
	if err != nil {
		return nil, err
	}

	var entries []entry.Entry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}
		text := itemText(item)
		if text == "" && fr.extractor != nil {
			text = fr.extractor.Extract(itemURL(item))
		}
		if text == "" {
			continue
		}
		entries = append(entries, entry.Entry{
			Text:     text,
			Category: name,
		})
	}
	return entries, nil
}

func itemText(item *gofeed.Item) string {
	if item.Content != "" {
		return stripHTML(item.Content)
	}
	if item.Description != "" {
		return stripHTML(item.Description)
	}
	return ""
}

func itemURL(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	return item.GUID
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func sourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return feedURL
	}

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
