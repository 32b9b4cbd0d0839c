// Package sentiment classifies scraped social posts into positive, negative,
// and neutral buckets using keyword matching. It is deliberately simple: the
// report feeds a language-model prompt, not a trading decision.
package sentiment

import (
	"fmt"
	"strings"

	"github.com/quarterpin/oraclebot/internal/domain"
)

var positiveWords = []string{
	"win", "winning", "great", "good", "strong", "confident", "best",
	"dominant", "unbeaten", "form", "excellent", "amazing", "victory",
	"brilliant", "clinical", "unstoppable",
}

var negativeWords = []string{
	"lose", "losing", "bad", "weak", "injured", "injury", "worst",
	"struggling", "poor", "terrible", "awful", "crisis", "suspended",
	"doubt", "missing", "slump",
}

// Analyze scores each post against the keyword lists and returns the bucket
// ratios. A post counting hits in both directions lands in whichever bucket
// has more; ties and no-hit posts are neutral.
func Analyze(posts []string) domain.SentimentReport {
	report := domain.SentimentReport{SampleSize: len(posts)}
	if len(posts) == 0 {
		report.Summary = "no social posts available"
		return report
	}

	var pos, neg, neu int
	for _, post := range posts {
		p, n := score(post)
		switch {
		case p > n:
			pos++
		case n > p:
			neg++
		default:
			neu++
		}
	}

	total := float64(len(posts))
	report.PositiveRatio = float64(pos) / total
	report.NegativeRatio = float64(neg) / total
	report.NeutralRatio = float64(neu) / total
	report.Summary = summarize(pos, neg, neu, len(posts))
	return report
}

// score counts positive and negative keyword hits for one post.
func score(post string) (pos, neg int) {
	lower := strings.ToLower(post)
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	return pos, neg
}

func summarize(pos, neg, neu, total int) string {
	lean := "mixed"
	switch {
	case pos > neg && pos > neu:
		lean = "mostly positive"
	case neg > pos && neg > neu:
		lean = "mostly negative"
	case neu >= pos && neu >= neg:
		lean = "mostly neutral"
	}
	return fmt.Sprintf("%s sentiment across %d posts (%d positive, %d negative, %d neutral)",
		lean, total, pos, neg, neu)
}
