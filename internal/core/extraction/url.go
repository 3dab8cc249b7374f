package extraction

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// URLStrategy fetches a page, strips script/style blocks and all markup,
// collapses whitespace and truncates to the configured cap.
type URLStrategy struct {
	client      *http.Client
	maxURLChars int
}

func NewURLStrategy(client *http.Client, maxURLChars int) *URLStrategy {
	if client == nil {
		client = DefaultHTTPClient
	}
	return &URLStrategy{client: client, maxURLChars: maxURLChars}
}

func (s *URLStrategy) Extract(ctx context.Context, ref *models.Reference) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.StoragePath, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrNetworkFailure, err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s returned status %d", core.ErrNetworkFailure, ref.StoragePath, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", core.ErrNetworkFailure, err)
	}

	doc.Find("script, style, noscript").Remove()
	text := strings.TrimSpace(whitespaceRe.ReplaceAllString(doc.Text(), " "))

	if s.maxURLChars > 0 {
		if runes := []rune(text); len(runes) > s.maxURLChars {
			text = string(runes[:s.maxURLChars])
		}
	}
	return text, nil
}
