package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/JetpackDuba/NyaaParser/app/database"
)

// Generator renders download records as an RSS 2.0 channel.
type Generator struct {
	selfLink string
	version  string
}

func NewGenerator(selfLink, version string) *Generator {
	return &Generator{
		selfLink: selfLink,
		version:  version,
	}
}

func (g *Generator) Run(downloads []database.Download) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", "NyaaParser downloads", 4)
	g.writeElement(&buf, "description", "Episodes sent to the download client", 4)

	if g.selfLink != "" {
		g.writeElement(&buf, "link", g.selfLink, 4)
		fmt.Fprintf(&buf, "    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(g.selfLink))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(downloads) > 0 {
		lastBuildDate = downloads[0].DownloadedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("NyaaParser/%s", g.version), 4)

	for _, download := range downloads {
		g.writeItem(&buf, download)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, download database.Download) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(download.ID))
	buf.WriteString("</guid>\n")

	title := download.Title
	if title == "" {
		title = fmt.Sprintf("%s - %s", download.ShowName, FormatEpisode(download.Episode))
	}
	g.writeElement(buf, "title", title, 6)

	if g.isURL(download.Link) {
		g.writeElement(buf, "link", download.Link, 6)
	}

	description := fmt.Sprintf("Episode %s of %s", FormatEpisode(download.Episode), download.ShowName)
	if download.Fansub != "" {
		description += " by " + download.Fansub
	}
	if len(download.Tags) > 0 {
		description += " " + strings.Join(download.Tags, " ")
	}
	if download.Size != "" {
		description += " (" + download.Size + ")"
	}
	if download.InfoHash != "" {
		description += ". Info hash: " + download.InfoHash
	}
	if download.Summary != "" {
		description += ". " + download.Summary
	}
	g.writeElement(buf, "description", description, 6)

	// The GUID of a nyaa item is its torrent page.
	if g.isURL(download.GUID) && download.GUID != download.Link {
		g.writeElement(buf, "comments", download.GUID, 6)
	}

	g.writeElement(buf, "pubDate", download.DownloadedAt.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "category", download.ShowName, 6)
	g.writeElement(buf, "category", download.Category, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "magnet:")
}

// FormatEpisode prints whole episodes without a fraction ("5") and keeps
// half episodes as they are ("12.5").
func FormatEpisode(episode float64) string {
	return strconv.FormatFloat(episode, 'f', -1, 64)
}
