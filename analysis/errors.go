package analysis

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid video locator")
	ErrTranscriptUnavailable = errors.New("failed to retrieve transcript")
	ErrSectionAnalysisFailed = errors.New("section analysis failed")
	ErrNoAnalysesGenerated   = errors.New("no analyses were generated")
	ErrSynthesisFailed       = errors.New("summary generation failed")
)

// failedSectionMarker stands in for a chunk whose analysis call failed.
const failedSectionMarker = "Analysis failed."
