// Package classify decides whether a page carries a daily lunch menu, so the
// costly extraction call can be skipped on permanent à-la-carte pages.
package classify

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options holds the classifier thresholds. The defaults are empirical
// constants tuned to Czech lunch-menu conventions; other locales should
// override them via configuration.
type Options struct {
	// WindowRadius is the number of characters inspected either side of the
	// first daily-menu keyword match.
	WindowRadius int
	// NavTermCutoff is the number of distinct navigation terms inside the
	// window at which the match is judged to be site navigation.
	NavTermCutoff int
	// PriceMin/PriceMax bound the plausible daily-menu price band in Kč.
	PriceMin int
	PriceMax int
}

// DefaultOptions returns the tuned Czech defaults.
func DefaultOptions() Options {
	return Options{
		WindowRadius:  400,
		NavTermCutoff: 3,
		PriceMin:      60,
		PriceMax:      200,
	}
}

// Classifier is a pure heuristic over page text. It never fails; the answer
// is always a definite boolean.
type Classifier struct {
	opts Options
}

// New creates a Classifier, filling unset options with defaults.
func New(opts Options) *Classifier {
	def := DefaultOptions()
	if opts.WindowRadius <= 0 {
		opts.WindowRadius = def.WindowRadius
	}
	if opts.NavTermCutoff <= 0 {
		opts.NavTermCutoff = def.NavTermCutoff
	}
	if opts.PriceMin <= 0 {
		opts.PriceMin = def.PriceMin
	}
	if opts.PriceMax <= 0 {
		opts.PriceMax = def.PriceMax
	}
	return &Classifier{opts: opts}
}

// menuKeywords are searched in priority order; the first hit anchors the
// inspection window.
var menuKeywords = []string{
	"polední menu",
	"denní menu",
	"menu dne",
	"obědové menu",
	"týdenní menu",
}

// navTerms is the site-navigation vocabulary used to reject header/footer
// link clusters that merely mention a menu page.
var navTerms = []string{
	"úvod",
	"kontakty",
	"o nás",
	"rezervace",
	"ubytování",
	"galerie",
	"akce",
	"reference",
}

var weekdayTerms = []string{
	"pondělí", "úterý", "středa", "čtvrtek", "pátek", "sobota", "neděle",
}

var soupTerms = []string{"polévka", "vývar"}

var mainDishTerms = []string{"řízek", "svíčková", "panenka", "guláš", "kuře"}

var (
	foldedMenuKeywords = foldAll(menuKeywords)
	foldedNavTerms     = foldAll(navTerms)
	foldedWeekdays     = foldAll(weekdayTerms)
	foldedSoups        = foldAll(soupTerms)
	foldedMains        = foldAll(mainDishTerms)

	datePattern = regexp.MustCompile(`\d{1,2}\.\s?\d{1,2}\.`)
	// Matched against folded text, so "Kč" has become "kc".
	pricePattern = regexp.MustCompile(`(\d{2,3})\s*(kc|,-)`)
)

// HasDailyMenuIndicators reports whether the page text plausibly contains a
// daily menu. Three ordered stages, each able to short-circuit to false:
// keyword locate, navigation-noise rejection, strong-signal requirement.
// A lone keyword is a weak and frequently navigational signal, so the
// window + noise + strong-signal chain trades a small false-negative rate
// for far fewer wasted extraction calls.
func (c *Classifier) HasDailyMenuIndicators(pageText string) bool {
	text := fold(pageText)

	kwIdx, kw := findFirstKeyword(text)
	if kwIdx < 0 {
		return false
	}

	window := c.windowAround(text, kwIdx, kw)

	if c.countDistinctNavTerms(window) >= c.opts.NavTermCutoff {
		return false
	}

	return c.hasStrongSignal(window)
}

// findFirstKeyword returns the byte offset and the (folded) keyword of the
// highest-priority menu phrase present, or (-1, "").
func findFirstKeyword(text string) (int, string) {
	for _, kw := range foldedMenuKeywords {
		if idx := strings.Index(text, kw); idx >= 0 {
			return idx, kw
		}
	}
	return -1, ""
}

// windowAround slices a rune-safe window of WindowRadius characters either
// side of the keyword match. Byte-based slicing would skew the radius on
// multibyte Czech letters.
func (c *Classifier) windowAround(text string, byteIdx int, keyword string) string {
	rs := []rune(text)
	center := utf8.RuneCountInString(text[:byteIdx])
	kwLen := utf8.RuneCountInString(keyword)

	start := center - c.opts.WindowRadius
	if start < 0 {
		start = 0
	}
	end := center + kwLen + c.opts.WindowRadius
	if end > len(rs) {
		end = len(rs)
	}
	return string(rs[start:end])
}

func (c *Classifier) countDistinctNavTerms(window string) int {
	count := 0
	for _, term := range foldedNavTerms {
		if strings.Contains(window, term) {
			count++
		}
	}
	return count
}

// hasStrongSignal requires at least one of: a weekday name, a date pattern,
// two or more price tokens in the plausible band, or a soup keyword
// co-occurring with a main-dish keyword.
func (c *Classifier) hasStrongSignal(window string) bool {
	for _, day := range foldedWeekdays {
		if strings.Contains(window, day) {
			return true
		}
	}

	if datePattern.MatchString(window) {
		return true
	}

	if c.countPlausiblePrices(window) >= 2 {
		return true
	}

	return containsAny(window, foldedSoups) && containsAny(window, foldedMains)
}

func (c *Classifier) countPlausiblePrices(window string) int {
	count := 0
	for _, m := range pricePattern.FindAllStringSubmatch(window, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= c.opts.PriceMin && n <= c.opts.PriceMax {
			count++
		}
	}
	return count
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// fold lowercases and strips diacritics so "Poledni menu" matches
// "Polední menu" and vice versa.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

func foldAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = fold(t)
	}
	return out
}
