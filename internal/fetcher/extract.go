package fetcher

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/VandeeFeng/wisecrawl/internal/cascade"
)

// minExtracted is the shortest extraction (in runes) the primary
// strategies are allowed to return before the cascade moves on.
const minExtracted = 200

// maxContent caps cleaned article text, cutting on a sentence boundary
// when one exists.
const maxContent = 3000

// Containers that usually hold the article body, tried in order by the
// selector strategy.
var contentSelectors = []string{
	"article",
	".article", "#article",
	".article-content", "#article-content",
	".post", "#post",
	".post-content", "#post-content",
	".entry-content", "#entry-content",
	".main-content", "#main-content",
	".content", "#content",
	".rich_media_content",
}

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`版权所有.{0,80}?保留所有权利`),
	regexp.MustCompile(`(?i)copyright.{0,80}?reserved`),
	regexp.MustCompile(`免责声明[:：]?`),
	regexp.MustCompile(`隐私政策`),
	regexp.MustCompile(`点击查看原文`),
	regexp.MustCompile(`相关阅读[:：]?`),
	regexp.MustCompile(`猜你喜欢`),
	regexp.MustCompile(`扫码关注`),
	regexp.MustCompile(`返回搜狐[,，]?查看更多`),
}

// ExtractContent distills the main article text from a page. Strategies
// run in order and the first one producing enough text wins; the whole
// cleaned body is the last resort.
func ExtractContent(html, pageURL string) string {
	strategies := []cascade.Strategy[string]{
		func() (string, bool) { return readabilityText(html, pageURL) },
		func() (string, bool) { return selectorText(html) },
	}
	text, ok := cascade.First(strategies, cascade.MinLen(minExtracted))
	if !ok {
		text = bodyText(html)
	}
	return Cleanup(text)
}

func readabilityText(html, pageURL string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return "", false
	}
	return article.TextContent, true
}

func selectorText(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	stripChrome(doc)

	best := ""
	for _, sel := range contentSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := s.Text(); len(t) > len(best) {
				best = t
			}
		})
	}
	return best, best != ""
}

func bodyText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	stripChrome(doc)
	return doc.Find("body").Text()
}

func stripChrome(doc *goquery.Document) {
	doc.Find("script, style, nav, header, footer, aside, iframe, form").Remove()
}

// Cleanup normalizes whitespace, strips boilerplate and enforces the
// length cap.
func Cleanup(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	for _, re := range noisePatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) <= maxContent {
		return text
	}
	runes = runes[:maxContent]
	if cut := lastSentenceEnd(runes); cut > 0 {
		runes = runes[:cut+1]
	}
	return string(runes)
}

func lastSentenceEnd(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		switch runes[i] {
		case '。', '！', '？', '；', '.', '!', '?', ';':
			return i
		}
	}
	return -1
}
