package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

type ReplayProtectionOptions struct {
	// Paths is the exact set of request paths to protect.
	Paths []string

	// KeyHeaders are folded into the dedupe key so requests that differ only
	// in these headers (tenant scope, for one) are never mistaken for each
	// other.
	KeyHeaders []string

	TTL          time.Duration
	MaxBodyBytes int64
}

type replayProtector struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newReplayProtector() *replayProtector {
	return &replayProtector{
		seen: make(map[string]time.Time),
	}
}

func (p *replayProtector) isSeen(key string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, exp := range p.seen {
		if !now.Before(exp) {
			delete(p.seen, k)
		}
	}

	exp, ok := p.seen[key]
	if !ok {
		return false
	}
	return now.Before(exp)
}

func (p *replayProtector) mark(key string, exp time.Time) {
	p.mu.Lock()
	p.seen[key] = exp
	p.mu.Unlock()
}

type statusCaptureWriter struct {
	http.ResponseWriter
	statusCode    int
	statusWritten bool
}

func (w *statusCaptureWriter) WriteHeader(code int) {
	if !w.statusWritten {
		w.statusCode = code
		w.statusWritten = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusCaptureWriter) Write(p []byte) (int, error) {
	if !w.statusWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusCaptureWriter) Status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

// ReplayProtection provides best-effort dedupe for event ingestion routes.
// Relayers on flaky connections tend to re-post the same payload; a request is
// considered a replay iff an identical (path + body) POST previously returned
// 2xx within the TTL window, and is acknowledged with an empty 200.
func ReplayProtection(opts ReplayProtectionOptions) mux.MiddlewareFunc {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20 // 1 MiB
	}
	if len(opts.Paths) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	protected := make(map[string]struct{}, len(opts.Paths))
	for _, p := range opts.Paths {
		protected[p] = struct{}{}
	}
	protector := newReplayProtector()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r == nil || r.URL == nil {
				next.ServeHTTP(w, r)
				return
			}
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := protected[r.URL.Path]; !ok {
				next.ServeHTTP(w, r)
				return
			}

			var body []byte
			if r.Body != nil {
				limited := io.LimitReader(r.Body, opts.MaxBodyBytes+1)
				b, readErr := io.ReadAll(limited)
				if readErr != nil {
					http.Error(w, "failed to read request body", http.StatusBadRequest)
					return
				}
				if int64(len(b)) > opts.MaxBodyBytes {
					http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				body = b
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			h := sha256.New()
			h.Write([]byte(r.URL.Path))
			for _, name := range opts.KeyHeaders {
				h.Write([]byte{'\n'})
				h.Write([]byte(r.Header.Get(name)))
			}
			h.Write([]byte{'\n'})
			h.Write(body)
			key := hex.EncodeToString(h.Sum(nil))

			now := time.Now()
			if protector.isSeen(key, now) {
				w.WriteHeader(http.StatusOK)
				return
			}

			captured := &statusCaptureWriter{ResponseWriter: w}
			next.ServeHTTP(captured, r)

			status := captured.Status()
			if status >= 200 && status < 300 {
				protector.mark(key, now.Add(opts.TTL))
			}
		})
	}
}
