package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

const (
	// minCompressSize is the smallest body worth compressing. Below it the
	// encoder overhead outweighs the savings and the response ships as is.
	minCompressSize = 1000

	encodingGzip   = "gzip"
	encodingBrotli = "br"
)

// Pool encoders to reduce allocations; Reset rebinds them per response.
var (
	gzipPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	brotliPool = sync.Pool{
		New: func() interface{} {
			return brotli.NewWriter(io.Discard)
		},
	}
)

// resetWriter is the shared surface of gzip.Writer and brotli.Writer.
type resetWriter interface {
	io.WriteCloser
	Reset(w io.Writer)
}

// compressWriter buffers the response until it knows whether the body
// clears minCompressSize. Headers are held back until that decision,
// since Content-Encoding cannot change once the status line is sent.
type compressWriter struct {
	http.ResponseWriter
	encoding    string
	status      int
	buf         []byte
	enc         resetWriter
	started     bool
	wroteHeader bool
}

func (cw *compressWriter) WriteHeader(status int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	cw.status = status
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	if cw.started {
		return cw.enc.Write(b)
	}
	cw.buf = append(cw.buf, b...)
	if len(cw.buf) < minCompressSize {
		return len(b), nil
	}
	if err := cw.start(); err != nil {
		return 0, err
	}
	return len(b), nil
}

// start commits to the compressed form: headers go out, the pooled
// encoder takes over, and the buffered prefix is replayed through it.
func (cw *compressWriter) start() error {
	h := cw.Header()
	h.Set("Content-Encoding", cw.encoding)
	h.Del("Content-Length")
	h.Add("Vary", "Accept-Encoding")
	cw.ResponseWriter.WriteHeader(cw.status)

	switch cw.encoding {
	case encodingBrotli:
		enc := brotliPool.Get().(*brotli.Writer)
		enc.Reset(cw.ResponseWriter)
		cw.enc = enc
	default:
		enc := gzipPool.Get().(*gzip.Writer)
		enc.Reset(cw.ResponseWriter)
		cw.enc = enc
	}
	cw.started = true

	_, err := cw.enc.Write(cw.buf)
	cw.buf = nil
	return err
}

// Close finishes the response. Bodies that never reached the floor are
// written out unmodified with the status the handler chose.
func (cw *compressWriter) Close() error {
	if !cw.started {
		cw.ResponseWriter.WriteHeader(cw.status)
		if len(cw.buf) > 0 {
			_, err := cw.ResponseWriter.Write(cw.buf)
			return err
		}
		return nil
	}

	err := cw.enc.Close()
	switch cw.encoding {
	case encodingBrotli:
		brotliPool.Put(cw.enc)
	default:
		gzipPool.Put(cw.enc)
	}
	cw.enc = nil
	return err
}

// Compress returns a middleware that compresses response bodies with brotli
// or gzip, preferring brotli when the client accepts both. Bodies smaller
// than minCompressSize are sent unmodified.
func Compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding := pickEncoding(r.Header.Get("Accept-Encoding"))
		// Range responses carry byte offsets into the stored
		// representation and must not be re-encoded.
		if encoding == "" || r.Header.Get("Range") != "" {
			next.ServeHTTP(w, r)
			return
		}

		cw := &compressWriter{
			ResponseWriter: w,
			encoding:       encoding,
			status:         http.StatusOK,
		}
		defer cw.Close()
		next.ServeHTTP(cw, r)
	})
}

// pickEncoding chooses the strongest encoding the client offers. Quality
// values are not weighed; an offered token counts as acceptance.
func pickEncoding(acceptEncoding string) string {
	var gzipOK, brotliOK bool
	for _, part := range strings.Split(acceptEncoding, ",") {
		token, _, _ := strings.Cut(part, ";")
		switch strings.ToLower(strings.TrimSpace(token)) {
		case encodingBrotli:
			brotliOK = true
		case encodingGzip:
			gzipOK = true
		}
	}
	if brotliOK {
		return encodingBrotli
	}
	if gzipOK {
		return encodingGzip
	}
	return ""
}
