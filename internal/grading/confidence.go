package grading

import "math"

// Confidence weights: missing bubbles in the image weigh more than a
// student leaving a question blank.
const (
	detectionWeight = 0.6
	answerWeight    = 0.4
)

// DefaultLowConfidenceThreshold is the score under which a result is flagged
// for manual verification.
const DefaultLowConfidenceThreshold = 70

// LowConfidenceWarning is attached to flagged results.
const LowConfidenceWarning = "low detection confidence: verify this sheet manually"

// Confidence scores detection quality in [0,100] from the number of marks
// found and the answers resolved from them.
func Confidence(marksDetected int, answers []*int, alternatives int) int {
	total := len(answers)
	if total == 0 || alternatives <= 0 {
		return 0
	}
	detectionRate := math.Min(float64(marksDetected)/float64(total*alternatives), 1)
	if detectionRate < 0 {
		detectionRate = 0
	}
	answered := 0
	for _, a := range answers {
		if a != nil {
			answered++
		}
	}
	answerRate := float64(answered) / float64(total)

	score := int(math.Round(100 * (detectionWeight*detectionRate + answerWeight*answerRate)))
	return min(max(score, 0), 100)
}
