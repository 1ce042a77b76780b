package services

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// ScoreComponents exposes the sub-scores behind a final score so dashboards
// can show why an entry ranked where it did. SpamDensity is reported for
// observability only; the spam penalty is gated on SpamCount alone.
type ScoreComponents struct {
	Sentiment   int     `json:"sentiment"`
	Engagement  int     `json:"engagement"`
	SpamCount   int     `json:"spam"`
	SpamDensity float64 `json:"spam_density"`
	WordCount   int     `json:"word_count"`
}

// ScoreResult is the advisory quality score for one sanitized answer set.
// Flagged marks an entry as high-value and worth manual review, not as spam.
type ScoreResult struct {
	Score      int             `json:"score"`
	Flagged    bool            `json:"flagged"`
	Components ScoreComponents `json:"components"`
}

// Keyword tables are fixed contract constants. The weights and thresholds
// below were tuned against real submissions; do not adjust them without
// re-ranking the historical corpus.
var (
	positiveWords = []string{
		"good", "great", "excellent", "amazing", "awesome", "fantastic",
		"wonderful", "love", "loved", "helpful", "perfect", "best", "nice",
		"happy", "satisfied", "enjoy", "enjoyed", "easy", "smooth",
	}
	negativeWords = []string{
		"bad", "poor", "terrible", "awful", "horrible", "worst", "hate",
		"hated", "disappointing", "disappointed", "useless", "broken",
		"slow", "confusing", "frustrating", "annoying",
	}
	constructiveWords = []string{
		"suggest", "suggestion", "improve", "improvement", "recommend",
		"recommendation", "consider", "should", "wish", "prefer", "idea",
		"instead", "perhaps", "maybe",
	}
	spamPhrases = []string{
		"buy now", "click here", "limited offer", "act now", "free money",
		"make money", "earn cash", "work from home", "visit my", "check out my",
		"subscribe to my", "follow me", "promo code", "discount code",
		"http://", "https://", "www.",
	}
)

var (
	wordRe     = regexp.MustCompile(`[a-z0-9']+`)
	digitRunRe = regexp.MustCompile(`\d+`)
	sentenceRe = regexp.MustCompile(`[.!?]+`)
)

const (
	positiveWeight     = 20
	negativeWeight     = 15
	constructiveWeight = 10

	engagementWeight = 0.4
	sentimentWeight  = 0.3
	lengthWeight     = 0.2

	qualityMultiplier   = 1.1
	spamMultiplier      = 0.3
	veryShortMultiplier = 0.2

	flagScoreThreshold    = 70
	flagConstructiveScore = 50
	flagConstructiveCount = 2
	flagVerboseWordCount  = 50
	minScorableChars      = 3
)

// ScoreFeedback derives a bounded 0-100 quality score and a review flag from
// the free-text content of a sanitized answer set. Scoring is advisory and
// never gates acceptance, so any internal panic degrades to a zero result
// instead of propagating.
func ScoreFeedback(answers map[string]any) (result ScoreResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ScoreResult{}
		}
	}()

	text := combinedText(answers)
	charCount := utf8.RuneCountInString(text)
	if charCount < minScorableChars {
		return ScoreResult{}
	}

	wordCount := len(strings.Fields(text))
	avgWordLength := 0.0
	if wordCount > 0 {
		avgWordLength = float64(charCount) / float64(wordCount)
	}

	positive, negative, constructive := sentimentCounts(text)
	rawSentiment := clampInt(positive*positiveWeight-negative*negativeWeight+constructive*constructiveWeight, -100, 100)
	engagement := engagementScore(text, wordCount, avgWordLength)

	spamCount := 0
	for _, phrase := range spamPhrases {
		spamCount += strings.Count(text, phrase)
	}
	spamDensity := float64(spamCount) / math.Max(1, float64(charCount)) * 1000

	normalizedSentiment := float64(rawSentiment+100) / 2
	lengthScore := math.Min(100, float64(wordCount*2))
	score := float64(engagement)*engagementWeight + normalizedSentiment*sentimentWeight + lengthScore*lengthWeight

	// Multiplier order matters for rounding: quality, then spam, then the
	// very-short penalty. All three compound when their conditions overlap.
	if wordCount >= 20 && constructive > 0 {
		score *= qualityMultiplier
	}
	if spamCount > 0 {
		score *= spamMultiplier
	}
	if wordCount < 3 {
		score *= veryShortMultiplier
	}

	final := clampInt(int(math.Round(score)), 0, 100)
	flagged := final >= flagScoreThreshold ||
		(final >= flagConstructiveScore && constructive >= flagConstructiveCount) ||
		(wordCount >= flagVerboseWordCount && rawSentiment != 0)

	return ScoreResult{
		Score:   final,
		Flagged: flagged,
		Components: ScoreComponents{
			Sentiment:   rawSentiment,
			Engagement:  engagement,
			SpamCount:   spamCount,
			SpamDensity: spamDensity,
			WordCount:   wordCount,
		},
	}
}

// combinedText concatenates the string form of every answer, lowercased and
// space-separated. Keys are walked in sorted order so the result (and thus
// the score) is deterministic for a given answer set.
func combinedText(answers map[string]any) string {
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if s := valueText(answers[id]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// valueText renders one answer as text. Arrays and objects are JSON-encoded
// so their string content still participates in keyword matching.
func valueText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), "\"")
	}
}

// sentimentCounts tallies whole-word hits against the three keyword tables.
func sentimentCounts(text string) (positive, negative, constructive int) {
	freq := map[string]int{}
	for _, w := range wordRe.FindAllString(text, -1) {
		freq[w]++
	}
	for _, w := range positiveWords {
		positive += freq[w]
	}
	for _, w := range negativeWords {
		negative += freq[w]
	}
	for _, w := range constructiveWords {
		constructive += freq[w]
	}
	return positive, negative, constructive
}

// engagementScore is an additive 0-100 proxy for how substantive the text is.
func engagementScore(text string, wordCount int, avgWordLength float64) int {
	score := 0
	switch {
	case wordCount >= 50:
		score += 30
	case wordCount >= 20:
		score += 20
	case wordCount >= 10:
		score += 10
	case wordCount >= 5:
		score += 5
	}
	if avgWordLength > 4 {
		score += 10
	}
	if strings.Contains(text, "?") {
		score += 5
	}
	if strings.Contains(text, "!") {
		score += 5
	}
	if countSentences(text) > 1 {
		score += 10
	}
	if digitRunRe.MatchString(text) {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

func countSentences(text string) int {
	n := 0
	for _, part := range sentenceRe.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
