package scraper

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	noiseSelector = "script, style, nav, header, footer, aside, form, noscript, iframe"

	// Paragraphs shorter than this do not count toward a container's score.
	minScoredParagraph = 25
)

var fallbackSelectors = []string{
	"article",
	"main",
	"[role=main]",
	".post-content",
	".entry-content",
	".article-body",
	".content",
	"#content",
}

var noisePhrases = []string{
	"Cookie Policy",
	"Accept Cookies",
	"Privacy Policy",
	"Terms of Service",
}

// LooksLikeArticle reports whether doc is probably an article: an article
// element with enough paragraphs or text, or failing that enough paragraphs
// and headings across the page.
func (s *Scraper) LooksLikeArticle(doc *goquery.Document) bool {
	if article := doc.Find("article"); article.Length() > 0 {
		if article.Find("p").Length() >= s.config.MinArticleParagraphs {
			return true
		}
		if runeLen(cleanText(article.Text())) >= s.config.MinArticleTextLength {
			return true
		}
	}

	return doc.Find("p").Length() >= s.config.FallbackParagraphs &&
		doc.Find("h1, h2, h3").Length() >= s.config.FallbackHeadings
}

// readableContent scores every container by the paragraphs under it and
// returns the text of the best one.
func readableContent(doc *goquery.Document) string {
	scores := make(map[*html.Node]int)
	var candidates []*html.Node

	addScore := func(node *html.Node, score int) {
		if _, ok := scores[node]; !ok {
			candidates = append(candidates, node)
		}
		scores[node] += score
	}

	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		length := runeLen(cleanText(p.Text()))
		if length < minScoredParagraph {
			return
		}

		parent := p.Parent()
		if parent.Length() == 0 {
			return
		}
		addScore(parent.Get(0), length)

		if grandparent := parent.Parent(); grandparent.Length() > 0 {
			addScore(grandparent.Get(0), length/2)
		}
	})

	var best *html.Node
	for _, node := range candidates {
		if best == nil || scores[node] > scores[best] {
			best = node
		}
	}
	if best == nil {
		return ""
	}

	return joinText(doc.FindNodes(best).Find("p"), 0)
}

// fallbackContent tries known content containers, then every paragraph
// longer than MinParagraphLength.
func (s *Scraper) fallbackContent(doc *goquery.Document) string {
	for _, selector := range fallbackSelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		text := joinText(container.Find("p, h1, h2, h3, h4, h5, h6, li"), 0)
		if runeLen(text) >= s.config.MinContentLength {
			return text
		}
	}

	return joinText(doc.Find("p"), s.config.MinParagraphLength+1)
}

// joinText joins the cleaned text of each element at least minLength runes
// long, one element per line.
func joinText(sel *goquery.Selection, minLength int) string {
	var parts []string
	sel.Each(func(_ int, el *goquery.Selection) {
		text := cleanText(el.Text())
		if text != "" && runeLen(text) >= minLength {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

func extractTitle(doc *goquery.Document) string {
	if title := metaContent(doc, `meta[property="og:title"]`); title != "" {
		return title
	}
	if h1 := cleanText(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return cleanText(doc.Find("title").First().Text())
}

func extractAuthor(doc *goquery.Document) string {
	for _, selector := range []string{`meta[name="author"]`, `meta[property="article:author"]`} {
		if author := metaContent(doc, selector); author != "" {
			return author
		}
	}
	for _, selector := range []string{`[rel="author"]`, ".author", ".byline"} {
		if author := cleanText(doc.Find(selector).First().Text()); author != "" {
			return author
		}
	}
	return ""
}

func extractPublished(doc *goquery.Document) string {
	if published := metaContent(doc, `meta[property="article:published_time"]`); published != "" {
		return published
	}
	if datetime, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok && strings.TrimSpace(datetime) != "" {
		return strings.TrimSpace(datetime)
	}
	return metaContent(doc, `meta[name="date"]`)
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return cleanText(content)
}

func cleanText(content string) string {
	content = strings.ToValidUTF8(content, "")

	// Remove extra whitespace
	content = strings.Join(strings.Fields(content), " ")

	for _, phrase := range noisePhrases {
		content = strings.ReplaceAll(content, phrase, "")
	}

	return strings.TrimSpace(content)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
