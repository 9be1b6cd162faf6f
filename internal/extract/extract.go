package extract

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/venue-events/internal/event"
)

// Default field selectors. Each is a comma list evaluated left to right;
// the first element with non-empty content wins.
const (
	DefaultTitleSelector       = `.event-title, .title, [class*="title"], h1, h2, h3, h4, a`
	DefaultDateSelector        = `time[datetime], .date, .event-date, .when, [class*="date"], time`
	DefaultDescriptionSelector = `.description, .summary, .excerpt, p`
	DefaultImageSelector       = `img`
	DefaultLinkSelector        = `a[href]`

	fallbackBlockSelector = `div, article, p, li`

	minTitleLength = 10
	maxTitleLength = 200
	maxDescription = 1000
)

// DefaultBlockSelectors is the generic block chain tried when a venue does
// not provide its own.
var DefaultBlockSelectors = []string{
	".event",
	".event-item",
	".events-item",
	".show",
	"article.event",
	".tribe-events-calendar-list__event",
	`[class*="event"]`,
}

// DefaultKeywords gate the text fallback for venues without keywords.
var DefaultKeywords = []string{
	"concert", "festival", "market", "show", "live", "music", "night",
	"comedy", "trivia", "party", "tour", "performance", "exhibition",
	"workshop", "tasting", "screening", "celebration", "fair", "gala",
}

// Blocklist holds navigational and footer phrases that never title an event.
// Phrases match whole words only, so "menu" does not reject "Menuhin".
var Blocklist = []string{
	"privacy", "subscribe", "newsletter", "read more", "cookie", "cookies",
	"sign up", "log in", "login", "contact us", "terms of use",
	"terms of service", "terms and conditions", "terms & conditions", "copyright",
	"all rights reserved", "menu", "search", "follow us", "view all",
	"load more", "skip to",
}

// Rule is a block selector and the field selectors applied inside each block.
// Empty field selectors fall back to the package defaults.
type Rule struct {
	Selector    string `yaml:"selector" json:"selector"`
	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	Date        string `yaml:"date,omitempty" json:"date,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Image       string `yaml:"image,omitempty" json:"image,omitempty"`
	Link        string `yaml:"link,omitempty" json:"link,omitempty"`
}

// DefaultRules returns one Rule per default block selector.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(DefaultBlockSelectors))
	for _, sel := range DefaultBlockSelectors {
		rules = append(rules, Rule{Selector: sel})
	}
	return rules
}

func (r Rule) withDefaults() Rule {
	if r.Title == "" {
		r.Title = DefaultTitleSelector
	}
	if r.Date == "" {
		r.Date = DefaultDateSelector
	}
	if r.Description == "" {
		r.Description = DefaultDescriptionSelector
	}
	if r.Image == "" {
		r.Image = DefaultImageSelector
	}
	if r.Link == "" {
		r.Link = DefaultLinkSelector
	}
	return r
}

// Candidate is one raw event block before validation and normalization.
type Candidate struct {
	Title       string
	DateText    string
	Description string
	Image       string
	Link        string
	Raw         string
}

// Extraction is the result of running an Extractor over a page.
type Extraction struct {
	// Selector is the block selector that matched, or "fallback".
	Selector   string
	Candidates []Candidate
	// Rejected counts blocks dropped by the title filter.
	Rejected int
}

// Extractor applies rules to a document.
type Extractor struct {
	Rules []Rule
	// Keywords gate acceptance. Empty accepts every well-formed title.
	Keywords []string
	// Fallback enables the text heuristic when no rule matches.
	Fallback bool
}

// New returns an Extractor with the default rule chain appended after rules.
func New(rules []Rule, keywords []string, fallback bool) *Extractor {
	all := make([]Rule, 0, len(rules)+len(DefaultBlockSelectors))
	all = append(all, rules...)
	all = append(all, DefaultRules()...)
	return &Extractor{Rules: all, Keywords: keywords, Fallback: fallback}
}

// Extract returns the candidates found in doc. Relative links and image
// URLs are resolved against base when it is non-nil.
func (x *Extractor) Extract(doc *goquery.Document, base *url.URL) *Extraction {
	for _, rule := range x.Rules {
		if strings.TrimSpace(rule.Selector) == "" {
			continue
		}
		blocks := doc.Find(rule.Selector)
		if blocks.Length() == 0 {
			continue
		}
		return x.fromBlocks(rule, blocks, base)
	}

	if !x.Fallback {
		return &Extraction{}
	}
	return x.fallback(doc, base)
}

func (x *Extractor) fromBlocks(rule Rule, blocks *goquery.Selection, base *url.URL) *Extraction {
	rule = rule.withDefaults()
	out := &Extraction{Selector: rule.Selector}

	blocks.Each(func(_ int, block *goquery.Selection) {
		c := ExtractBlock(block, rule, base)
		if !x.accept(c) {
			out.Rejected++
			return
		}
		out.Candidates = append(out.Candidates, c)
	})
	return out
}

// ExtractBlock pulls every field of rule out of a single block.
func ExtractBlock(block *goquery.Selection, rule Rule, base *url.URL) Candidate {
	rule = rule.withDefaults()
	raw := collapse(block.Text())

	c := Candidate{
		Title:       firstText(block, rule.Title),
		DateText:    dateText(block, rule.Date),
		Description: truncate(firstText(block, rule.Description), maxDescription),
		Image:       resolve(base, CleanImage(imageURL(block, rule.Image))),
		Link:        resolve(base, firstAttr(block, rule.Link, "href")),
		Raw:         raw,
	}
	if c.DateText == "" {
		c.DateText = event.FindDateText(raw)
	}
	if c.Description == c.Title {
		c.Description = ""
	}
	return c
}

func (x *Extractor) accept(c Candidate) bool {
	if !wellFormed(c.Title) {
		return false
	}
	if len(x.Keywords) == 0 {
		return true
	}
	return MatchesKeyword(c.Title, x.Keywords)
}

// fallback salvages candidates from unstructured markup. Only leaf-ish
// blocks are considered so that a wrapper div does not swallow the page.
func (x *Extractor) fallback(doc *goquery.Document, base *url.URL) *Extraction {
	keywords := x.Keywords
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	out := &Extraction{Selector: "fallback"}

	doc.Find(fallbackBlockSelector).Each(func(_ int, block *goquery.Selection) {
		if block.Find(fallbackBlockSelector).Length() > 0 {
			return
		}
		text := collapse(block.Text())
		if text == "" || !MatchesKeyword(text, keywords) {
			return
		}
		date := event.FindDateText(text)
		if date == "" {
			return
		}

		c := Candidate{
			Title:    fallbackTitle(block, text, date),
			DateText: date,
			Image:    resolve(base, CleanImage(imageURL(block, DefaultImageSelector))),
			Link:     resolve(base, firstAttr(block, DefaultLinkSelector, "href")),
			Raw:      text,
		}
		if !wellFormed(c.Title) {
			out.Rejected++
			return
		}
		out.Candidates = append(out.Candidates, c)
	})
	return out
}

// fallbackTitle prefers a heading, then the first line of the block with
// the date text removed.
func fallbackTitle(block *goquery.Selection, text, date string) string {
	if title := firstText(block, "h1, h2, h3, h4, h5, strong, b"); title != "" {
		return title
	}
	lines := strings.Split(strings.TrimSpace(block.Text()), "\n")
	for _, line := range lines {
		line = collapse(strings.Replace(line, date, "", 1))
		line = strings.Trim(line, " -|:,")
		if line != "" {
			return line
		}
	}
	return strings.Trim(collapse(strings.Replace(text, date, "", 1)), " -|:,")
}

// ValidTitle reports whether title is a plausible event title: the right
// length, no blocklisted phrase, and at least one keyword when keywords is
// non-empty.
func ValidTitle(title string, keywords []string) bool {
	if !wellFormed(title) {
		return false
	}
	return len(keywords) == 0 || MatchesKeyword(title, keywords)
}

func wellFormed(title string) bool {
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	if n < minTitleLength || n > maxTitleLength {
		return false
	}
	lower := strings.ToLower(title)
	for _, phrase := range Blocklist {
		if containsWord(lower, phrase) {
			return false
		}
	}
	return true
}

// containsWord reports whether phrase occurs in s bounded by non-alphanumerics.
func containsWord(s, phrase string) bool {
	for from := 0; from <= len(s)-len(phrase); {
		i := strings.Index(s[from:], phrase)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(phrase)
		before, _ := utf8.DecodeLastRuneInString(s[:i])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (i == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		from = i + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// MatchesKeyword reports whether text contains any keyword, case-insensitively.
func MatchesKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
