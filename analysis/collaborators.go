package analysis

import (
	"context"
	"fmt"
	"strings"

	"ytanalyzer/cache"
	"ytanalyzer/transcript"
)

// Completer is a generative text service.
type Completer interface {
	Complete(ctx context.Context, apiKey, prompt string) (string, error)
}

// TranscriptSource resolves video metadata and timed transcripts.
type TranscriptSource interface {
	Title(ctx context.Context, videoID string) (string, error)
	Transcript(ctx context.Context, videoID string) ([]transcript.Segment, error)
}

// Cache holds finished analyses keyed by video id.
type Cache interface {
	Lookup(videoID string) (cache.Entry, bool)
	Save(e cache.Entry) error
}

// Analyzer asks the completion service to assess one chunk against the rubric.
type Analyzer struct {
	llm Completer
}

func NewAnalyzer(llm Completer) *Analyzer {
	return &Analyzer{llm: llm}
}

func (a *Analyzer) AnalyzeSection(ctx context.Context, apiKey, text string) (string, error) {
	out, err := a.llm.Complete(ctx, apiKey, sectionPrompt(text))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSectionAnalysisFailed, err)
	}
	return out, nil
}

// Synthesizer merges ordered chunk analyses into one sectioned summary.
type Synthesizer struct {
	llm Completer
}

func NewSynthesizer(llm Completer) *Synthesizer {
	return &Synthesizer{llm: llm}
}

// Synthesize returns the raw summary text and its parsed sections.
func (s *Synthesizer) Synthesize(ctx context.Context, apiKey string, analyses []string, title string) (string, []Section, error) {
	out, err := s.llm.Complete(ctx, apiKey, summaryPrompt(analyses, title))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", nil, fmt.Errorf("%w: empty summary", ErrSynthesisFailed)
	}
	return out, ParseSections(out), nil
}
