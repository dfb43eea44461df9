package transcript

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"ytanalyzer/logger"
)

const (
	defaultBaseURL      = "https://www.youtube.com"
	defaultMaxBodyBytes = 10 << 20
	captionTracksMarker = `"captionTracks":`
)

var (
	ErrNoTranscript = errors.New("no transcript available")

	videoIDPattern = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)
)

// VideoID extracts the 11 character video id from a watch, short or embed URL.
func VideoID(locator string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(strings.TrimSpace(locator))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// YouTube fetches video metadata and caption tracks from the public watch page.
type YouTube struct {
	http      *resty.Client
	baseURL   string
	languages []string
	maxBody   int64
}

// Option customizes the YouTube client.
type Option func(*YouTube)

// WithBaseURL points the client at a different host (used by tests).
func WithBaseURL(u string) Option {
	return func(y *YouTube) {
		if u != "" {
			y.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithMaxBodySize caps how many bytes are read from any single response.
func WithMaxBodySize(n int64) Option {
	return func(y *YouTube) {
		if n > 0 {
			y.maxBody = n
		}
	}
}

func NewYouTube(timeout time.Duration, languages []string, opts ...Option) *YouTube {
	y := &YouTube{
		baseURL:   defaultBaseURL,
		languages: languages,
		maxBody:   defaultMaxBodyBytes,
	}
	if len(y.languages) == 0 {
		y.languages = []string{"en"}
	}
	for _, opt := range opts {
		opt(y)
	}
	y.http = resty.New().
		SetHeader("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetTimeout(timeout)
	return y
}

// WatchURL returns the canonical watch page for a video id.
func (y *YouTube) WatchURL(videoID string) string {
	return y.baseURL + "/watch?v=" + videoID
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

// Transcript returns the timed segments of the best matching caption track.
// Manually authored tracks win over auto-generated ones in the same language.
func (y *YouTube) Transcript(ctx context.Context, videoID string) ([]Segment, error) {
	page, err := y.get(ctx, y.WatchURL(videoID))
	if err != nil {
		return nil, fmt.Errorf("transcript %s: %w", videoID, err)
	}

	tracks, err := parseCaptionTracks(page)
	if err != nil {
		return nil, fmt.Errorf("transcript %s: %w", videoID, err)
	}
	track, ok := pickTrack(tracks, y.languages)
	if !ok {
		return nil, fmt.Errorf("transcript %s: no track for %v: %w", videoID, y.languages, ErrNoTranscript)
	}
	logger.Debugf("Using %s caption track (kind=%q) for %s", track.LanguageCode, track.Kind, videoID)

	body, err := y.get(ctx, track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("transcript %s: %w", videoID, err)
	}
	segments, err := parseTimedText(body)
	if err != nil {
		return nil, fmt.Errorf("transcript %s: %w", videoID, err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("transcript %s: empty track: %w", videoID, ErrNoTranscript)
	}
	return segments, nil
}

func parseCaptionTracks(page []byte) ([]captionTrack, error) {
	s := string(page)
	idx := strings.Index(s, captionTracksMarker)
	if idx < 0 {
		return nil, ErrNoTranscript
	}
	var tracks []captionTrack
	dec := json.NewDecoder(strings.NewReader(s[idx+len(captionTracksMarker):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("decode caption tracks: %w", err)
	}
	return tracks, nil
}

func pickTrack(tracks []captionTrack, languages []string) (captionTrack, bool) {
	for _, lang := range languages {
		var generated *captionTrack
		for i := range tracks {
			if !strings.EqualFold(tracks[i].LanguageCode, lang) || tracks[i].BaseURL == "" {
				continue
			}
			if tracks[i].Kind != "asr" {
				return tracks[i], true
			}
			if generated == nil {
				generated = &tracks[i]
			}
		}
		if generated != nil {
			return *generated, true
		}
	}
	return captionTrack{}, false
}

func parseTimedText(body []byte) ([]Segment, error) {
	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode timed text: %w", err)
	}
	segments := make([]Segment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		text := strings.Join(strings.Fields(html.UnescapeString(t.Body)), " ")
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Text: text, Start: t.Start, Duration: t.Dur})
	}
	return segments, nil
}

// get downloads url, refusing bodies larger than the configured cap.
func (y *YouTube) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := y.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %s", url, resp.Status())
	}

	limited := &io.LimitedReader{R: body, N: y.maxBody + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(data)) > y.maxBody {
		return nil, fmt.Errorf("fetch %s: response exceeds limit of %d bytes", url, y.maxBody)
	}
	return data, nil
}
