package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"ytanalyzer/cache"
	"ytanalyzer/config"
	"ytanalyzer/logger"
	"ytanalyzer/task"
	"ytanalyzer/transcript"
)

const unknownTitle = "Unknown Title"

// Progress checkpoints reported while a video is processed.
const (
	progressTranscript = 10
	progressAnalyzed   = 90
)

type Options struct {
	ChunkMaxLength int
	Concurrency    int
}

// Report is the outcome of one video analysis.
type Report struct {
	VideoID  string
	Title    string
	HTML     string
	Sections []Section
	Cached   bool
}

// Service runs the full pipeline for one video: transcript, chunk analyses,
// synthesis and rendering.
type Service struct {
	source   TranscriptSource
	analyzer *Analyzer
	synth    *Synthesizer
	cache    Cache
	opts     Options
}

func NewService(source TranscriptSource, llm Completer, store Cache, opts Options) *Service {
	if opts.ChunkMaxLength <= 0 {
		opts.ChunkMaxLength = config.DefaultChunkMaxLength
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Service{
		source:   source,
		analyzer: NewAnalyzer(llm),
		synth:    NewSynthesizer(llm),
		cache:    store,
		opts:     opts,
	}
}

// ResolveVideo returns the video id of locator or ErrInvalidInput.
func ResolveVideo(locator string) (string, error) {
	id, ok := transcript.VideoID(locator)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidInput, locator)
	}
	return id, nil
}

// Work binds a video analysis to the scheduler's work function signature.
func (s *Service) Work(locator, apiKey string) task.WorkFunc {
	return func(ctx context.Context, progress task.ProgressFunc) (string, error) {
		report, err := s.Analyze(ctx, locator, apiKey, progress)
		if err != nil {
			return "", err
		}
		return report.HTML, nil
	}
}

// Analyze runs the pipeline. progress may be nil.
func (s *Service) Analyze(ctx context.Context, locator, apiKey string, progress func(int)) (Report, error) {
	if progress == nil {
		progress = func(int) {}
	}

	videoID, err := ResolveVideo(locator)
	if err != nil {
		return Report{}, err
	}
	report := Report{VideoID: videoID, Title: s.title(ctx, videoID)}

	if s.cache != nil {
		if entry, ok := s.cache.Lookup(videoID); ok {
			logger.Infof("Using cached analysis for video %s", videoID)
			report.HTML = entry.Analysis
			report.Cached = true
			return report, nil
		}
	}

	segments, err := s.source.Transcript(ctx, videoID)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrTranscriptUnavailable, err)
	}
	if len(segments) == 0 {
		return report, ErrTranscriptUnavailable
	}
	progress(progressTranscript)

	chunks := transcript.Split(segments, s.opts.ChunkMaxLength)
	logger.Infof("Video %s: %d segment(s) in %d chunk(s)", videoID, len(segments), len(chunks))

	analyses, err := s.analyzeChunks(ctx, apiKey, chunks, progress)
	if err != nil {
		return report, err
	}
	progress(progressAnalyzed)

	_, sections, err := s.synth.Synthesize(ctx, apiKey, analyses, report.Title)
	if err != nil {
		return report, err
	}
	report.Sections = sections
	report.HTML = RenderHTML(sections)

	if s.cache != nil {
		entry := cache.Entry{Title: report.Title, VideoID: videoID, Analysis: report.HTML}
		if err := s.cache.Save(entry); err != nil {
			logger.Warnf("Error caching analysis for %s: %v", videoID, err)
		}
	}
	return report, nil
}

func (s *Service) title(ctx context.Context, videoID string) string {
	title, err := s.source.Title(ctx, videoID)
	if err != nil || strings.TrimSpace(title) == "" {
		if err != nil {
			logger.Warnf("Video %s: %v", videoID, err)
		}
		return unknownTitle
	}
	return title
}

// analyzeChunks analyzes every chunk and returns the results in chunk order. A failed
// chunk is replaced by a placeholder; only a total failure is an error.
func (s *Service) analyzeChunks(ctx context.Context, apiKey string, chunks []transcript.Chunk, progress func(int)) ([]string, error) {
	if len(chunks) == 0 {
		return nil, ErrNoAnalysesGenerated
	}

	results := make([]string, len(chunks))
	var failed, finished atomic.Int32

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			out, err := s.analyzer.AnalyzeSection(ctx, apiKey, chunk.Text)
			if err != nil {
				logger.Warnf("Chunk %d/%d (%.0fs-%.0fs): %v", i+1, len(chunks), chunk.StartTime, chunk.EndTime, err)
				out = failedSectionMarker
				failed.Add(1)
			}
			results[i] = out
			n := int(finished.Add(1))
			progress(progressTranscript + (progressAnalyzed-progressTranscript)*n/len(chunks))
			return nil
		})
	}
	_ = g.Wait()

	if int(failed.Load()) == len(chunks) {
		return nil, ErrNoAnalysesGenerated
	}
	return results, nil
}
