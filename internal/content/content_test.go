package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/rss-digest/internal/config"
	"github.com/ryosukesatoh/rss-digest/internal/retry"
)

func TestReaderResolverEmbedsTargetURL(t *testing.T) {
	var gotPath, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		fmt.Fprint(w, "# Title\n\nBody of the article.")
	}))
	defer ts.Close()

	r := NewReaderResolver(ts.URL+"/", 5*time.Second)
	text, err := r.Fetch(context.Background(), "https://blog.example.com/post/1")
	require.NoError(t, err)

	assert.Equal(t, "# Title\n\nBody of the article.", text)
	assert.Equal(t, "/https://blog.example.com/post/1", gotPath)
	assert.Equal(t, "text/markdown", gotAccept)
}

func TestReaderResolverFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "non success status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
			},
			check: func(t *testing.T, err error) {
				var statusErr *retry.StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "   \n")
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyContent)
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(500 * time.Millisecond):
				case <-r.Context().Done():
				}
			},
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "request failed")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				tt.handler(w, r)
			}))
			defer ts.Close()

			r := NewReaderResolver(ts.URL, 50*time.Millisecond)
			_, err := r.Fetch(context.Background(), "https://example.com/a")
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, 1, calls, "resolver must not retry")
		})
	}
}

const articleHTML = `<!DOCTYPE html>
<html><head><title>Readable Post</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Readable Post</h1>
<p>The first paragraph explains the main finding of the research in considerable detail so that the extractor sees enough text to score it.</p>
<p>The second paragraph adds supporting evidence, numbers and quotes from the people involved, which again makes this look like real content.</p>
<p>A third paragraph wraps up the discussion and mentions what happens next for the project and its community of contributors.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestReadabilityResolverExtractsText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articleHTML)
	}))
	defer ts.Close()

	r := NewReadabilityResolver(5 * time.Second)
	text, err := r.Fetch(context.Background(), ts.URL+"/post")
	require.NoError(t, err)
	assert.Contains(t, text, "first paragraph explains the main finding")
	assert.NotContains(t, text, "<p>")
}

func TestReadabilityResolverStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := NewReadabilityResolver(time.Second).Fetch(context.Background(), ts.URL)
	var statusErr *retry.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestNewSelectsExtractor(t *testing.T) {
	cfg := &config.Config{Content: config.ContentConfig{Extractor: config.ExtractorReader, ReaderBaseURL: "https://r.example"}}
	r, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &ReaderResolver{}, r)

	cfg.Content.Extractor = config.ExtractorReadability
	r, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &ReadabilityResolver{}, r)

	cfg.Content.Extractor = "bogus"
	_, err = New(cfg)
	assert.Error(t, err)
}
