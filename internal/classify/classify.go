// Package classify assigns a news category to an article from keywords in
// its title and description.
package classify

import (
	"strings"
	"unicode"
)

// General is returned when no other category scores.
const General = "general"

// order breaks ties; earlier wins.
var order = []string{"business", "entertainment", "health", "science", "sports", "technology"}

var categoryKeywords = map[string][]string{
	"business": {
		"market", "stocks", "shares", "economy", "economic", "inflation", "bank",
		"earnings", "profit", "revenue", "merger", "acquisition", "ceo", "investor",
		"interest rate", "wall street", "trade", "tariff", "startup", "ipo",
	},
	"entertainment": {
		"film", "movie", "music", "album", "actor", "actress", "celebrity", "oscar",
		"grammy", "box office", "tv series", "netflix", "concert", "festival",
		"premiere", "singer", "hollywood", "streaming",
	},
	"health": {
		"health", "hospital", "doctor", "patient", "disease", "virus", "vaccine",
		"cancer", "covid", "outbreak", "medical", "mental health", "nhs", "drug",
		"treatment", "diet", "obesity",
	},
	"science": {
		"science", "scientist", "research", "study", "nasa", "space", "planet",
		"climate", "species", "fossil", "physics", "telescope", "asteroid",
		"experiment", "genome", "researchers",
	},
	"sports": {
		"football", "soccer", "basketball", "tennis", "cricket", "golf", "nba",
		"nfl", "olympic", "league", "championship", "match", "coach", "goal",
		"tournament", "world cup", "premier league", "playoff",
	},
	"technology": {
		"tech", "software", "app", "apple", "google", "microsoft", "ai",
		"artificial intelligence", "chip", "smartphone", "cyber", "hack", "robot",
		"startup", "internet", "computer", "data breach", "openai",
	},
}

// Classify picks the best-scoring category. Title keywords are weighted 2x.
func Classify(title, description string) string {
	titleTokens := tokenize(title)
	descTokens := tokenize(description)
	titleLower := strings.ToLower(title)
	descLower := strings.ToLower(description)

	best, bestScore := General, 0
	for _, cat := range order {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(kw, " ") {
				// Multi-word keyword: check in pre-lowered text
				if strings.Contains(titleLower, kw) {
					score += 2
				}
				if strings.Contains(descLower, kw) {
					score++
				}
				continue
			}
			score += 2 * count(titleTokens, kw)
			score += count(descTokens, kw)
		}
		if score > bestScore {
			best, bestScore = cat, score
		}
	}
	return best
}

// count matches whole words; short keywords like "ai" would otherwise hit
// inside unrelated words.
func count(tokens []string, kw string) int {
	n := 0
	for _, t := range tokens {
		if t == kw || (len(kw) > 3 && strings.HasPrefix(t, kw)) {
			n++
		}
	}
	return n
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
