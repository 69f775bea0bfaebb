package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"
)

const (
	// etagCacheTTL is how long clients may reuse a response before
	// revalidating.
	etagCacheTTL             = 60 * time.Second
	etagStaleWhileRevalidate = 300 * time.Second
)

// etagWriter buffers the body so the hash is known before anything is sent.
type etagWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *etagWriter) WriteHeader(status int) {
	w.status = status
}

func (w *etagWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

// ETag hashes successful GET responses and answers a matching If-None-Match
// with 304, sparing clients the body when nothing changed.
func ETag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		ew := &etagWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ew, r)

		// Non-200s are not cacheable; replay them untouched.
		if ew.status != http.StatusOK {
			w.WriteHeader(ew.status)
			w.Write(ew.buf.Bytes())
			return
		}

		hash := sha256.Sum256(ew.buf.Bytes())
		etag := fmt.Sprintf(`"%x"`, hash[:16])

		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
			int(etagCacheTTL.Seconds()), int(etagStaleWhileRevalidate.Seconds())))

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.WriteHeader(ew.status)
		w.Write(ew.buf.Bytes())
	})
}
