package transcript

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("fits in one chunk", func(t *testing.T) {
		segs := []Segment{
			{Text: "Hello", Start: 0, Duration: 2},
			{Text: "World", Start: 2, Duration: 2},
		}
		chunks := Split(segs, 100)
		require.Len(t, chunks, 1)
		assert.Equal(t, Chunk{Text: "Hello World", StartTime: 0, EndTime: 4}, chunks[0])
	})

	t.Run("splits where the limit would be exceeded", func(t *testing.T) {
		segs := []Segment{
			{Text: "abc", Start: 1, Duration: 2},
			{Text: "def", Start: 3, Duration: 1.5},
		}
		chunks := Split(segs, 5)
		require.Len(t, chunks, 2)
		assert.Equal(t, Chunk{Text: "abc", StartTime: 1, EndTime: 3}, chunks[0])
		assert.Equal(t, Chunk{Text: "def", StartTime: 3, EndTime: 4.5}, chunks[1])
	})

	t.Run("exact fit stays together", func(t *testing.T) {
		segs := []Segment{
			{Text: "ab", Start: 0, Duration: 1},
			{Text: "cd", Start: 1, Duration: 1},
		}
		chunks := Split(segs, 5)
		require.Len(t, chunks, 1)
		assert.Equal(t, "ab cd", chunks[0].Text)
	})

	t.Run("oversized segment gets its own chunk", func(t *testing.T) {
		segs := []Segment{
			{Text: "hi", Start: 0, Duration: 1},
			{Text: strings.Repeat("x", 20), Start: 1, Duration: 5},
			{Text: "yo", Start: 6, Duration: 1},
		}
		chunks := Split(segs, 10)
		require.Len(t, chunks, 3)
		assert.Equal(t, "hi", chunks[0].Text)
		assert.Equal(t, strings.Repeat("x", 20), chunks[1].Text)
		assert.Equal(t, 1.0, chunks[1].StartTime)
		assert.Equal(t, 6.0, chunks[1].EndTime)
		assert.Equal(t, Chunk{Text: "yo", StartTime: 6, EndTime: 7}, chunks[2])
	})

	t.Run("oversized first segment", func(t *testing.T) {
		chunks := Split([]Segment{{Text: "toolongtext", Start: 0, Duration: 3}}, 4)
		require.Len(t, chunks, 1)
		assert.Equal(t, "toolongtext", chunks[0].Text)
	})

	t.Run("counts characters, not bytes", func(t *testing.T) {
		segs := []Segment{
			{Text: "héé", Start: 0, Duration: 1},
			{Text: "ñ", Start: 1, Duration: 1},
		}
		chunks := Split(segs, 5)
		require.Len(t, chunks, 1)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Split(nil, 100))
	})
}

func TestSplitProperties(t *testing.T) {
	words := strings.Fields("the quick brown fox jumps over the lazy dog while a very long sentence keeps on going and going without any end in sight")
	var segs []Segment
	for i, w := range words {
		segs = append(segs, Segment{Text: strings.Repeat(w, 1+i%3), Start: float64(i), Duration: 1})
	}
	segs = append(segs, Segment{Text: strings.Repeat("z", 40), Start: float64(len(words)), Duration: 1})

	for _, max := range []int{1, 5, 12, 30, 1000} {
		chunks := Split(segs, max)

		var texts []string
		for _, c := range chunks {
			texts = append(texts, c.Text)
			if utf8.RuneCountInString(c.Text) > max {
				assert.NotContains(t, c.Text, " ", "only a lone segment may exceed the limit (max=%d)", max)
			}
			assert.LessOrEqual(t, c.StartTime, c.EndTime)
		}

		var all []string
		for _, s := range segs {
			all = append(all, s.Text)
		}
		assert.Equal(t, strings.Join(all, " "), strings.Join(texts, " "), "max=%d", max)
	}
}
