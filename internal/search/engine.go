package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pders01/tendr/internal/storage"
)

// scanLimit caps how many cached tenders a scan considers.
const scanLimit = 2000

// Engine scores cached tenders directly from the store. It needs no index
// and is used when the bleve index cannot be opened.
type Engine struct {
	store *storage.Store
}

func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store}
}

func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < minQueryLen {
		return []*Result{}, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	cached, err := e.store.GetTenders(scanLimit)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, t := range cached {
		if r := scoreTender(t, terms); r != nil {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func scoreTender(t *storage.CachedTender, terms []string) *Result {
	var matches []Match
	var total float64

	if s := scoreField(t.Title, terms, 4.0); s > 0 {
		matches = append(matches, Match{Field: "title", Text: t.Title, Weight: s})
		total += s
	}
	if s := scoreField(t.Category, terms, 2.5); s > 0 {
		matches = append(matches, Match{Field: "category", Text: t.Category, Weight: s})
		total += s
	}
	if s := scoreField(t.Description, terms, 1.0); s > 0 {
		matches = append(matches, Match{
			Field:  "description",
			Text:   findBestSnippet(t.Description, terms, 160),
			Weight: s,
		})
		total += s
	}

	if total == 0 {
		return nil
	}
	return &Result{Tender: t, Score: total, Matches: matches}
}

// scoreField rates how well text matches terms, scaled by weight.
func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			score += 2.0
			matched++
		}
		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matched++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matched++
			case strings.Contains(word, term):
				score += 0.5
				matched++
			}
		}
	}

	if len(terms) > 1 && matched > 1 {
		score *= 1.0 + float64(matched)/float64(len(terms))
	}

	tf := float64(matched) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// findBestSnippet picks the window of text with the most term hits.
func findBestSnippet(text string, terms []string, maxLength int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	window := maxLength / 8
	if window >= len(words) || window == 0 {
		return truncate(text, maxLength)
	}

	bestScore, bestStart := 0, 0
	for i := 0; i <= len(words)-window; i++ {
		chunk := strings.ToLower(strings.Join(words[i:i+window], " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(chunk, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore, bestStart = score, i
		}
	}

	return truncate(strings.Join(words[bestStart:bestStart+window], " "), maxLength)
}

// tokenize lowercases text and splits it into terms of two or more
// letters or digits.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if term := current.String(); len([]rune(term)) > 1 {
			terms = append(terms, term)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			flush()
		}
	}
	flush()

	return terms
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}
