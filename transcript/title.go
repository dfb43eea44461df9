package transcript

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Title reads the og:title meta tag of the video's watch page.
func (y *YouTube) Title(ctx context.Context, videoID string) (string, error) {
	page, err := y.get(ctx, y.WatchURL(videoID))
	if err != nil {
		return "", fmt.Errorf("title %s: %w", videoID, err)
	}
	title, ok := ogTitle(page)
	if !ok {
		return "", fmt.Errorf("title %s: og:title tag not found", videoID)
	}
	return title, nil
}

func ogTitle(page []byte) (string, bool) {
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "meta" {
				continue
			}
			var property, content string
			for _, a := range tok.Attr {
				switch a.Key {
				case "property":
					property = a.Val
				case "content":
					content = a.Val
				}
			}
			if property == "og:title" {
				return strings.TrimSpace(content), true
			}
		}
	}
}
