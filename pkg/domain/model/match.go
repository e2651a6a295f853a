package model

import "time"

// DefaultTopK is the number of matches returned when the caller does not ask
// for a specific count
const DefaultTopK = 3

// Match is a ranked catalog hit. Confidence is (score+1)/2 clamped to [0, 1].
type Match struct {
	ID         BottleID `json:"id"`
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	ImageURL   string   `json:"image_url,omitempty"`
}

// MatchResult is the answer to one identification request
type MatchResult struct {
	Matches        []Match       `json:"matches"`
	ProcessingTime time.Duration `json:"-"`
}

// ProcessingTimeMS returns the processing time in milliseconds
func (r *MatchResult) ProcessingTimeMS() float64 {
	return float64(r.ProcessingTime) / float64(time.Millisecond)
}

// Confidence converts a cosine similarity in [-1, 1] to a confidence in
// [0, 1]. The mapping is linear and strictly monotonic inside the range;
// values pushed outside it by rounding are clamped.
func Confidence(score float64) float64 {
	c := (score + 1) / 2
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
