package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"

	"github.com/ryosukesatoh/rss-digest/internal/report"
)

const pageStyle = `body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 760px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
h2 { color: #16213e; margin-top: 2em; }
h3 a { color: #0f3460; }
blockquote { color: #666; border-left: 3px solid #ddd; margin-left: 0; padding-left: 12px; }
hr { border: none; border-top: 1px solid #eee; }`

// WebPublisher serves the latest digest over HTTP: rendered HTML at / and the
// raw Markdown at /digest.md.
type WebPublisher struct {
	addr   string
	server *http.Server
	policy *bluemonday.Policy
	logger *slog.Logger

	mu     sync.RWMutex
	latest *report.Digest
}

func NewWebPublisher(addr string, logger *slog.Logger) *WebPublisher {
	wp := &WebPublisher{
		addr:   addr,
		policy: bluemonday.UGCPolicy(),
		logger: logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", wp.handleIndex)
	mux.HandleFunc("/digest.md", wp.handleMarkdown)
	wp.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return wp
}

// Start begins serving HTTP in the background. Call Shutdown to stop.
func (wp *WebPublisher) Start() error {
	ln, err := net.Listen("tcp", wp.addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", wp.addr, err)
	}
	go func() {
		wp.logger.Info("web publisher listening", "addr", ln.Addr().String())
		if err := wp.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wp.logger.Error("web publisher stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (wp *WebPublisher) Shutdown(ctx context.Context) error {
	return wp.server.Shutdown(ctx)
}

func (wp *WebPublisher) Publish(_ context.Context, digest *report.Digest) error {
	wp.mu.Lock()
	wp.latest = digest
	wp.mu.Unlock()
	wp.logger.Info("web publisher updated", "date", digest.Date.Format("2006-01-02"), "articles", len(digest.Summaries))
	return nil
}

func (wp *WebPublisher) current() *report.Digest {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.latest
}

func (wp *WebPublisher) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	digest := wp.current()
	if digest == nil {
		fmt.Fprint(w, `<!DOCTYPE html><html><body><h1>RSS Digest</h1><p>No digest available yet. Check back later.</p></body></html>`)
		return
	}

	fmt.Fprint(w, wp.renderHTML(digest))
}

func (wp *WebPublisher) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	digest := wp.current()
	if digest == nil {
		http.Error(w, "no digest available yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, digest.Markdown)
}

// renderHTML converts the digest Markdown to HTML filtered by the UGC policy.
func (wp *WebPublisher) renderHTML(digest *report.Digest) string {
	body := wp.policy.SanitizeBytes(blackfriday.Run([]byte(digest.Markdown)))
	title := "RSS Digest - " + digest.Date.Format("2006-01-02")
	return fmt.Sprintf("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title><style>%s</style></head><body>%s</body></html>",
		title, pageStyle, body)
}
