package services

import (
	"strings"
	"testing"
)

func TestScoreDegenerateTextIsZero(t *testing.T) {
	cases := []map[string]any{
		{},
		{"a": ""},
		{"a": "ok"},
		{"a": "!"},
	}
	for _, answers := range cases {
		res := ScoreFeedback(answers)
		if res.Score != 0 || res.Flagged {
			t.Fatalf("ScoreFeedback(%v) = %+v, want zero result", answers, res)
		}
	}
}

func TestScoreSubstantiveFeedback(t *testing.T) {
	answers := map[string]any{
		"fb": "The onboarding flow was excellent and the support team was helpful. I would recommend this product to anyone evaluating options.",
	}
	res := ScoreFeedback(answers)
	if res.Components.WordCount != 20 {
		t.Fatalf("word count = %d, want 20", res.Components.WordCount)
	}
	if res.Components.Sentiment != 50 {
		t.Fatalf("sentiment = %d, want 50", res.Components.Sentiment)
	}
	if res.Components.Engagement != 40 {
		t.Fatalf("engagement = %d, want 40", res.Components.Engagement)
	}
	// engagement 40*0.4 + normalized sentiment 75*0.3 + length 40*0.2 = 46.5,
	// times the 1.1 quality multiplier = 51.15.
	if res.Score != 51 {
		t.Fatalf("score = %d, want 51", res.Score)
	}
	if res.Flagged {
		t.Fatal("mid-range score should not be flagged")
	}
}

func TestScoreSpamPenaltyIsMonotonic(t *testing.T) {
	clean := map[string]any{
		"fb": "The onboarding flow was excellent and the support team was helpful. I would recommend this product to anyone evaluating options.",
	}
	spammy := map[string]any{
		"fb": "The onboarding flow was excellent and the support team was helpful. I would recommend this product to anyone evaluating options. Buy now!",
	}
	cleanRes := ScoreFeedback(clean)
	spamRes := ScoreFeedback(spammy)

	if cleanRes.Components.SpamCount != 0 {
		t.Fatalf("clean spam count = %d", cleanRes.Components.SpamCount)
	}
	if spamRes.Components.SpamCount != 1 {
		t.Fatalf("spam count = %d, want 1", spamRes.Components.SpamCount)
	}
	if spamRes.Components.SpamDensity <= 0 {
		t.Fatalf("spam density = %v, want > 0", spamRes.Components.SpamDensity)
	}
	if spamRes.Score >= cleanRes.Score {
		t.Fatalf("spam score %d not below clean score %d", spamRes.Score, cleanRes.Score)
	}
	// The 0.3 multiplier cuts at least 60% off, rounding aside.
	if float64(spamRes.Score) > 0.4*float64(cleanRes.Score) {
		t.Fatalf("spam score %d dropped less than 60%% from %d", spamRes.Score, cleanRes.Score)
	}
}

func TestScoreFlagThreshold(t *testing.T) {
	tail := "excellent excellent excellent excellent excellent amazing suggest 123 works! really?"

	// 15 filler words + 10 tail words = 25 words, engagement 60, sentiment
	// clamped at 100: (60*0.4 + 100*0.3 + 50*0.2) * 1.1 = 70.4 -> 70.
	at := map[string]any{"fb": strings.Repeat("zzzzz ", 15) + tail}
	res := ScoreFeedback(at)
	if res.Score != 70 {
		t.Fatalf("score = %d, want 70", res.Score)
	}
	if !res.Flagged {
		t.Fatal("score 70 must be flagged")
	}

	// 12 filler words shrinks the length score: (60*0.4 + 100*0.3 +
	// 44*0.2) * 1.1 = 69.08 -> 69, one constructive word, under 50 words.
	below := map[string]any{"fb": strings.Repeat("zzzzz ", 12) + tail}
	res = ScoreFeedback(below)
	if res.Score != 69 {
		t.Fatalf("score = %d, want 69", res.Score)
	}
	if res.Flagged {
		t.Fatal("score 69 with one constructive word must not be flagged")
	}
}

func TestScoreConstructiveFlagRoute(t *testing.T) {
	answers := map[string]any{
		"fb": strings.Repeat("zzzzz ", 15) + "excellent amazing suggest improve 123 works! really?",
	}
	res := ScoreFeedback(answers)
	if res.Score < 50 || res.Score >= 70 {
		t.Fatalf("score = %d, want in [50,70)", res.Score)
	}
	if !res.Flagged {
		t.Fatal("two constructive words above 50 must be flagged")
	}
}

func TestScoreVerboseFlagRoute(t *testing.T) {
	answers := map[string]any{
		"fb": strings.Repeat("zzzzz ", 49) + "good",
	}
	res := ScoreFeedback(answers)
	if res.Components.WordCount != 50 {
		t.Fatalf("word count = %d, want 50", res.Components.WordCount)
	}
	if res.Score >= 70 {
		t.Fatalf("score = %d, expected below plain threshold", res.Score)
	}
	if !res.Flagged {
		t.Fatal("50+ words with non-zero sentiment must be flagged")
	}
}

func TestScoreIsDeterministicAcrossFields(t *testing.T) {
	answers := map[string]any{
		"a": "great service overall!",
		"b": "delivery was slow though.",
		"c": []any{"price", "support"},
		"d": float64(4),
	}
	first := ScoreFeedback(answers)
	for i := 0; i < 20; i++ {
		if got := ScoreFeedback(answers); got != first {
			t.Fatalf("run %d = %+v, want %+v", i, got, first)
		}
	}
}

func TestScoreStringifiesNonTextAnswers(t *testing.T) {
	answers := map[string]any{
		"m": []any{"excellent", "helpful"},
		"f": map[string]any{"name": "receipt.pdf", "size": float64(12), "type": "application/pdf"},
	}
	res := ScoreFeedback(answers)
	if res.Components.Sentiment <= 0 {
		t.Fatalf("sentiment = %d, keywords inside arrays should count", res.Components.Sentiment)
	}
}
