package transcript

import (
	"strings"
	"unicode/utf8"
)

// Segment is one timed line of a transcript. Times are in seconds.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Chunk is a contiguous run of segments joined by single spaces.
type Chunk struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Split packs segments, in order, into chunks of at most maxLength characters.
// A chunk closes at the start of the segment that would overflow it; the last chunk
// closes at the end of the final segment. A segment longer than maxLength on its own
// is never split and becomes an oversized chunk.
func Split(segments []Segment, maxLength int) []Chunk {
	var (
		chunks  []Chunk
		parts   []string
		length  int
		startAt float64
	)

	for _, seg := range segments {
		n := utf8.RuneCountInString(seg.Text)
		if len(parts) > 0 && length+n+1 > maxLength {
			chunks = append(chunks, Chunk{
				Text:      strings.Join(parts, " "),
				StartTime: startAt,
				EndTime:   seg.Start,
			})
			parts, length = nil, 0
		}
		if len(parts) == 0 {
			startAt = seg.Start
			length = n
		} else {
			length += n + 1
		}
		parts = append(parts, seg.Text)
	}

	if len(parts) > 0 {
		last := segments[len(segments)-1]
		chunks = append(chunks, Chunk{
			Text:      strings.Join(parts, " "),
			StartTime: startAt,
			EndTime:   last.Start + last.Duration,
		})
	}
	return chunks
}
