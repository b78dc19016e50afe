// Package lexical ranks job titles against a short query with a
// word-order-insensitive string similarity.
package lexical

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinQueryLength is the shortest trimmed query, in runes, that is ranked.
const MinQueryLength = 2

// MaxQueryLength is the longest query, in runes, that is ranked. Scoring is
// quadratic in query length for every title, so boundaries reject longer
// queries and the engine truncates them.
const MaxQueryLength = 256

// ScoreQueryInTitle is the score of a title that contains the whole query,
// so a partially typed title ranks as an exact hit.
const ScoreQueryInTitle = 100.0

// Match is one ranked title.
type Match struct {
	Title string
	Score float64
	// Index is the title's position in the corpus.
	Index int
}

// Matcher ranks a fixed title list. It is immutable after New and safe for
// concurrent use.
type Matcher struct {
	titles    []string
	processed []string
	sorted    []string
}

// New precomputes the normalized forms of titles.
func New(titles []string) *Matcher {
	m := &Matcher{
		titles:    append([]string(nil), titles...),
		processed: make([]string, len(titles)),
		sorted:    make([]string, len(titles)),
	}
	for i, t := range titles {
		m.processed[i] = Process(t)
		m.sorted[i] = sortTokens(m.processed[i])
	}
	return m
}

// Len returns the number of titles.
func (m *Matcher) Len() int { return len(m.titles) }

// Rank scores every title against query and returns the best topK, highest
// score first. Equal scores keep corpus order.
func (m *Matcher) Rank(query string, topK int) []Match {
	if topK <= 0 || len(m.titles) == 0 || utf8.RuneCountInString(strings.TrimSpace(query)) < MinQueryLength {
		return []Match{}
	}

	q := Process(query)
	qs := sortTokens(q)

	matches := make([]Match, len(m.titles))
	for i := range m.titles {
		matches[i] = Match{
			Title: m.titles[i],
			Score: score(q, qs, m.processed[i], m.sorted[i]),
			Index: i,
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Score returns the similarity of query and title in [0, 100].
func Score(query, title string) float64 {
	q, t := Process(query), Process(title)
	return score(q, sortTokens(q), t, sortTokens(t))
}

// TokenSortRatio is the indel similarity of the token-sorted forms of a and
// b, in [0, 100].
func TokenSortRatio(a, b string) float64 {
	return ratio(sortTokens(Process(a)), sortTokens(Process(b)))
}

// Process lowercases s, turns every rune that is not a letter or digit
// into a space, and collapses whitespace.
func Process(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

func score(q, qs, t, ts string) float64 {
	if q == "" || t == "" {
		return 0
	}
	if strings.Contains(t, q) || strings.Contains(ts, qs) {
		return ScoreQueryInTitle
	}
	return ratio(qs, ts)
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// ratio is 200*LCS/(len(a)+len(b)) over runes.
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	return 200 * float64(lcs(ra, rb)) / float64(total)
}

// lcs returns the length of the longest common subsequence of a and b.
func lcs(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
