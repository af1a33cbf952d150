package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const nyaaNamespace = "nyaa"

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
	}

	items := make([]Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		items = append(items, p.normalizeItem(item))
	}

	return metadata, items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	link := item.Link
	if link == "" && len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		link = item.Enclosures[0].URL
	}

	normalized := Item{
		GUID:     cmp.Or(item.GUID, link),
		Title:    item.Title,
		Link:     link,
		Summary:  p.summarize(item.Description),
		InfoHash: p.nyaaValue(item, "infoHash"),
		Size:     p.nyaaValue(item, "size"),
		Category: p.nyaaValue(item, "category"),
	}

	if item.PublishedParsed != nil {
		normalized.PublishedAt = *item.PublishedParsed
	}

	if seeders := p.nyaaValue(item, "seeders"); seeders != "" {
		if n, err := strconv.Atoi(seeders); err == nil {
			normalized.Seeders = n
		}
	}

	return normalized
}

func (p *Parser) nyaaValue(item *gofeed.Item, name string) string {
	if item.Extensions == nil {
		return ""
	}
	values := item.Extensions[nyaaNamespace][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

// summarize reduces an HTML description to its text content.
func (p *Parser) summarize(description string) string {
	if description == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return strings.Join(strings.Fields(description), " ")
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}
