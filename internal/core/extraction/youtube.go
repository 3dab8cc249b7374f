package extraction

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

// captionTrackRe pulls the first caption track URL out of the watch page's
// embedded player config.
var captionTrackRe = regexp.MustCompile(`"captionTracks":\s*\[\s*\{[^}]*?"baseUrl":\s*"([^"]+)"`)

// YouTubeStrategy is two-tier. The cheap path scrapes the watch page for a
// caption track and parses the timedtext XML; if that yields more than
// minCaptionChars of text it is used verbatim. Otherwise the video URL goes to
// the multimodal model for a full transcription. Only when both paths fail
// does the job fail, with a hint to upload the audio directly.
type YouTubeStrategy struct {
	ai              core.LLMProvider
	client          *http.Client
	minCaptionChars int
}

func NewYouTubeStrategy(ai core.LLMProvider, client *http.Client, minCaptionChars int) *YouTubeStrategy {
	if client == nil {
		client = DefaultHTTPClient
	}
	return &YouTubeStrategy{ai: ai, client: client, minCaptionChars: minCaptionChars}
}

func (s *YouTubeStrategy) Extract(ctx context.Context, ref *models.Reference) (string, error) {
	captions, capErr := s.fetchCaptions(ctx, ref.StoragePath)
	if capErr == nil && len([]rune(captions)) > s.minCaptionChars {
		return captions, nil
	}

	text, err := s.ai.GenerateWithFileURI(ctx, youtubePrompt, "video/mp4", ref.StoragePath)
	if err == nil && text != "" {
		return text, nil
	}
	if err == nil {
		err = fmt.Errorf("model returned no transcript")
	}
	return "", fmt.Errorf("%w: no usable captions (%v) and transcription failed (%v); try uploading the audio track directly",
		core.ErrProviderFailure, capErr, err)
}

// fetchCaptions scrapes the watch page for a caption track and returns its
// text content.
func (s *YouTubeStrategy) fetchCaptions(ctx context.Context, videoURL string) (string, error) {
	page, err := s.get(ctx, videoURL)
	if err != nil {
		return "", fmt.Errorf("fetch watch page: %w", err)
	}

	m := captionTrackRe.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("no caption tracks on page")
	}
	trackURL := strings.ReplaceAll(string(m[1]), "\\u0026", "&")
	trackURL = strings.ReplaceAll(trackURL, `\/`, "/")

	raw, err := s.get(ctx, trackURL)
	if err != nil {
		return "", fmt.Errorf("fetch caption track: %w", err)
	}
	return parseTimedText(raw)
}

func (s *YouTubeStrategy) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseTimedText flattens YouTube's timedtext XML into plain text.
func parseTimedText(raw []byte) (string, error) {
	var doc struct {
		Texts []struct {
			Content string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("parse caption xml: %w", err)
	}

	var parts []string
	for _, t := range doc.Texts {
		line := strings.TrimSpace(html.UnescapeString(t.Content))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n"), nil
}
