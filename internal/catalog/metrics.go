package catalog

import (
	"math"
	"strings"
)

// Narration pace used to estimate how long a script runs when read aloud.
const wordsPerSecond = 2.5

// WordCount counts whitespace-separated words in script content.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// EstimateDurationSeconds converts a word count into an estimated narration
// duration, rounded up to whole seconds.
func EstimateDurationSeconds(words int) int {
	if words <= 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / wordsPerSecond))
}

// ApplyContent sets script content along with its derived metrics.
func (s *Script) ApplyContent(content string) {
	s.Content = content
	s.WordCount = WordCount(content)
	s.EstimatedDuration = EstimateDurationSeconds(s.WordCount)
}
