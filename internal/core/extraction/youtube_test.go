package extraction

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/core/coretest"
	"github.com/inkwell-app/inkwell/internal/models"
)

const captionXML = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="2.1">Welcome back to the channel</text>
  <text start="2.1" dur="3.0">today we are talking about sourdough &amp; rye</text>
  <text start="5.1" dur="2.4">let&#39;s get started</text>
</transcript>`

// watchPageServer serves a fake watch page whose player config points at a
// caption track on the same server.
func watchPageServer(t *testing.T, caption string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		trackURL := strings.ReplaceAll(server.URL+"/api/timedtext?v=abc&lang=en", "&", "\\u0026")
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%s","languageCode":"en"}]}}};</script></html>`, trackURL)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, _ *http.Request) {
		if caption == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(caption))
	})
	return server
}

func ytRef(u string) *models.Reference {
	return &models.Reference{ID: "ref-yt", Name: u, Kind: models.KindYouTube, StoragePath: u}
}

func TestYouTubeStrategy_CaptionPathSkipsModel(t *testing.T) {
	server := watchPageServer(t, captionXML)
	ai := &coretest.FakeLLM{Reply: "should never be used"}

	s := NewYouTubeStrategy(ai, server.Client(), 50)
	text, err := s.Extract(context.Background(), ytRef(server.URL+"/watch"))
	require.NoError(t, err)

	assert.Equal(t, "Welcome back to the channel\ntoday we are talking about sourdough & rye\nlet's get started", text)
	assert.Zero(t, ai.FileURICalls, "caption path must not invoke the model")
}

func TestYouTubeStrategy_ShortCaptionsFallBackToModel(t *testing.T) {
	short := `<transcript><text start="0" dur="1">hi</text></transcript>`
	server := watchPageServer(t, short)
	ai := &coretest.FakeLLM{Reply: "full model transcript of the video"}

	s := NewYouTubeStrategy(ai, server.Client(), 50)
	videoURL := server.URL + "/watch"
	text, err := s.Extract(context.Background(), ytRef(videoURL))
	require.NoError(t, err)

	assert.Equal(t, "full model transcript of the video", text)
	assert.Equal(t, 1, ai.FileURICalls)
	assert.Equal(t, videoURL, ai.LastFileURI)
}

func TestYouTubeStrategy_NoCaptionsAndModelFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>no player config here</body></html>`))
	})

	ai := &coretest.FakeLLM{FileURIFunc: func(_, _, _ string) (string, error) {
		return "", fmt.Errorf("model unavailable")
	}}

	s := NewYouTubeStrategy(ai, server.Client(), 50)
	_, err := s.Extract(context.Background(), ytRef(server.URL+"/watch"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProviderFailure)
	assert.Contains(t, err.Error(), "uploading the audio track")
}

func TestParseTimedText_UnescapesEntities(t *testing.T) {
	text, err := parseTimedText([]byte(captionXML))
	require.NoError(t, err)
	assert.Contains(t, text, "sourdough & rye")
	assert.Contains(t, text, "let's get started")
}
