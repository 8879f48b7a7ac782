package search

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/storage"
)

// PostSource is the part of the store the scanning engine reads.
type PostSource interface {
	GetPosts(author string, limit int) ([]*storage.PostRecord, error)
}

// scanLimit bounds how many stored posts a single search walks.
const scanLimit = 2000

// Engine scores stored posts directly without an index. It serves as the
// offline fallback when no bleve index is available.
type Engine struct {
	store PostSource
	now   func() time.Time
}

// NewEngine creates a new search engine
func NewEngine(store PostSource) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Search ranks stored posts against query, best first.
func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	terms := tokenize(query)
	if len(strings.TrimSpace(query)) < 2 || len(terms) == 0 {
		return []*Result{}, nil
	}

	records, err := e.store.GetPosts("", scanLimit)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, rec := range records {
		post := rec.Post
		if result := e.searchPost(&post, terms); result != nil {
			results = append(results, result)
		}
	}

	// Sort by relevance score (highest first)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (e *Engine) searchPost(post *api.Post, terms []string) *Result {
	var matches []Match
	var totalScore float64

	if contentScore := scoreField(post.Content, terms, 2.0); contentScore > 0 {
		matches = append(matches, Match{
			Field:  "content",
			Text:   findBestSnippet(post.Content, terms, 120),
			Weight: contentScore,
		})
		totalScore += contentScore
	}

	if authorScore := scoreField(post.Author, terms, 3.0); authorScore > 0 {
		matches = append(matches, Match{
			Field:  "author",
			Text:   post.Author,
			Weight: authorScore,
		})
		totalScore += authorScore
	}

	if locScore := scoreField(post.IPLocation, terms, 0.5); locScore > 0 {
		matches = append(matches, Match{
			Field:  "location",
			Text:   post.IPLocation,
			Weight: locScore,
		})
		totalScore += locScore
	}

	if totalScore == 0 {
		return nil
	}

	totalScore *= 1.0 + recencyBoost(post.DateGMT.Time, e.now())
	return &Result{Post: post, Score: totalScore, Matches: matches}
}

// scoreField calculates relevance score for a field
func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)

	var score float64
	matchedTerms := 0

	for _, term := range terms {
		// Substring match covers scripts written without spaces.
		if strings.Contains(lower, term) {
			score += 2.0
			matchedTerms++
		}

		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matchedTerms++
			case strings.Contains(word, term):
				score += 0.5
				matchedTerms++
			}
		}
	}

	if matchedTerms == 0 {
		return 0
	}

	// Boost score if multiple terms match
	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	if len(words) > 0 {
		tf := float64(matchedTerms) / float64(len(words))
		score *= 1.0 + math.Log(1.0+tf)
	}

	return score * weight
}

// findBestSnippet returns the window of text with the most term hits.
func findBestSnippet(text string, terms []string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	lower := []rune(strings.ToLower(text))
	best, bestStart := -1, 0
	step := maxLength / 4
	for start := 0; start < len(lower); start += step {
		end := min(start+maxLength, len(lower))
		window := string(lower[start:end])
		score := 0
		for _, term := range terms {
			score += strings.Count(window, term)
		}
		if score > best {
			best, bestStart = score, start
		}
		if end == len(lower) {
			break
		}
	}

	end := min(bestStart+maxLength, len(runes))
	snippet := string(runes[bestStart:end])
	if bestStart > 0 {
		snippet = "…" + snippet
	}
	if end < len(runes) {
		snippet += "…"
	}
	return snippet
}

// tokenize breaks text into lowercase searchable terms
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	flush := func() {
		if current.Len() == 0 {
			return
		}
		term := current.String()
		// Skip single ASCII characters; one CJK rune is a meaningful word.
		if len(term) > 1 {
			terms = append(terms, term)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return terms
}

// truncate limits text length in runes with an ellipsis
func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}

// recencyBoost gives up to 10% to posts from the last week.
func recencyBoost(posted, now time.Time) float64 {
	if posted.IsZero() {
		return 0
	}
	age := now.Sub(posted)
	week := 7 * 24 * time.Hour
	if age < 0 || age >= week {
		return 0
	}
	return 0.1 * (1 - float64(age)/float64(week))
}
