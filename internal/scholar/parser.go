package scholar

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// Result markup classes used by the external index. The index serves
// scraped-style HTML: each hit is a div.gs_ri containing a title link,
// a byline, a snippet, and a footer with the citation count.
const (
	classResult   = "gs_ri"
	classTitle    = "gs_rt"
	classByline   = "gs_a"
	classSnippet  = "gs_rs"
	classFooter   = "gs_fl"
	classKeywords = "gs_kw"
)

var (
	yearRegex    = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	citedByRegex = regexp.MustCompile(`Cited by\s+(\d+)`)
)

// ParseResults parses the index's result markup into structured results.
// Malformed or empty markup yields an empty (never nil) slice rather than an
// error; only an unreadable body is reported as a parse failure.
func ParseResults(r io.Reader) ([]domain.ScholarResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, domain.ErrParseFailed
	}

	results := []domain.ScholarResult{}
	for _, node := range findAllByClass(doc, classResult) {
		res := parseResult(node)
		if res.Title == "" {
			// Entries without a title are navigation chrome, not hits.
			continue
		}
		if res.RelevanceScore == 0 {
			// The index reports scores via data-score; fall back to a
			// positional decay when absent.
			res.RelevanceScore = positionScore(len(results))
		}
		results = append(results, res)
	}

	return results, nil
}

// parseResult extracts one result from its container node.
func parseResult(node *html.Node) domain.ScholarResult {
	var res domain.ScholarResult

	if v := attr(node, "data-doi"); v != "" {
		res.DOI = strings.TrimSpace(v)
	}
	if v := attr(node, "data-score"); v != "" {
		if score, err := strconv.ParseFloat(v, 64); err == nil && score >= 0 && score <= 1 {
			res.RelevanceScore = score
		}
	}
	if v := attr(node, "data-confidence"); v != "" {
		if conf, err := strconv.ParseFloat(v, 64); err == nil && conf >= 0 && conf <= 1 {
			res.Confidence = conf
		}
	}

	if title := findByClass(node, classTitle); title != nil {
		if link := findElement(title, "a"); link != nil {
			res.Title = collapseSpace(textContent(link))
			res.URL = attr(link, "href")
		} else {
			res.Title = collapseSpace(textContent(title))
		}
	}

	if byline := findByClass(node, classByline); byline != nil {
		authors, journal, year := parseByline(collapseSpace(textContent(byline)))
		res.Authors = authors
		res.Journal = journal
		res.Year = year
	}

	if snippet := findByClass(node, classSnippet); snippet != nil {
		res.Abstract = collapseSpace(textContent(snippet))
	}

	if footer := findByClass(node, classFooter); footer != nil {
		if m := citedByRegex.FindStringSubmatch(textContent(footer)); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				res.Citations = n
			}
		}
	}

	if kw := findByClass(node, classKeywords); kw != nil {
		for _, part := range strings.Split(textContent(kw), ",") {
			if term := strings.TrimSpace(part); term != "" {
				res.Keywords = append(res.Keywords, term)
			}
		}
	}

	if res.DOI == "" {
		res.DOI = findDOILink(node)
	}
	if res.Confidence == 0 && res.Title != "" {
		res.Confidence = metadataConfidence(res)
	}

	return res
}

// parseByline splits the "A Author, B Author - Journal, 2020 - publisher"
// byline format into its parts. Missing segments degrade gracefully.
func parseByline(byline string) (authors []string, journal string, year int) {
	parts := strings.Split(byline, " - ")

	for _, a := range strings.Split(parts[0], ",") {
		if name := strings.TrimSpace(a); name != "" {
			authors = append(authors, name)
		}
	}

	if len(parts) > 1 {
		venue := parts[1]
		if m := yearRegex.FindString(venue); m != "" {
			year, _ = strconv.Atoi(m)
			venue = strings.Replace(venue, m, "", 1)
		}
		journal = strings.Trim(collapseSpace(venue), " ,")
	}

	return authors, journal, year
}

// findDOILink scans anchor hrefs for a doi.org link.
func findDOILink(node *html.Node) string {
	for _, a := range findAllElements(node, "a") {
		href := attr(a, "href")
		if idx := strings.Index(href, "doi.org/"); idx >= 0 {
			return strings.TrimSpace(href[idx+len("doi.org/"):])
		}
	}
	return ""
}

// metadataConfidence estimates source confidence from metadata completeness
// when the index does not report one.
func metadataConfidence(res domain.ScholarResult) float64 {
	score := 0.4
	if len(res.Authors) > 0 {
		score += 0.15
	}
	if res.Journal != "" {
		score += 0.15
	}
	if res.Year > 0 {
		score += 0.1
	}
	if res.Abstract != "" {
		score += 0.1
	}
	if res.DOI != "" {
		score += 0.1
	}
	return score
}

// positionScore is the positional fallback relevance for unscored hits.
func positionScore(position int) float64 {
	score := 1.0 - float64(position)*0.05
	if score < 0.1 {
		score = 0.1
	}
	return score
}

// --- HTML traversal helpers ---

// hasClass reports whether the node carries the given CSS class.
func hasClass(node *html.Node, class string) bool {
	for _, a := range node.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// attr returns the value of the named attribute, or empty string.
func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findAllByClass returns all element nodes under root with the given class.
func findAllByClass(root *html.Node, class string) []*html.Node {
	var found []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, class) {
			found = append(found, n)
			return false // do not descend into matched containers
		}
		return true
	})
	return found
}

// findByClass returns the first element node under root with the given class.
func findByClass(root *html.Node, class string) *html.Node {
	nodes := findAllByClass(root, class)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// findElement returns the first element with the given tag under root.
func findElement(root *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

// findAllElements returns all elements with the given tag under root.
func findAllElements(root *html.Node, tag string) []*html.Node {
	var found []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			found = append(found, n)
		}
		return true
	})
	return found
}

// walk visits nodes depth-first; fn returning false stops descent into children.
func walk(node *html.Node, fn func(*html.Node) bool) {
	if !fn(node) {
		return
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// textContent concatenates all text under the node.
func textContent(node *html.Node) string {
	var sb strings.Builder
	walk(node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		return true
	})
	return sb.String()
}

// collapseSpace trims and collapses runs of whitespace to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
