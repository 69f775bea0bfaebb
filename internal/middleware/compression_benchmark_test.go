package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

// buildSubredditListing simulates a large JSON listing of tagged subreddits,
// the biggest body the API serves.
func buildSubredditListing(n int) string {
	var b strings.Builder
	b.WriteString(`{"subreddits":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"name":"sub_`)
		b.WriteString(strconv.Itoa(i))
		b.WriteString(`","subscribers":`)
		b.WriteString(strconv.Itoa(i * 137))
		b.WriteString(`,"review":"Ok","tags":["body:curvy","style:lingerie"],"primary_category":"body"}`)
	}
	b.WriteString(`]}`)
	return b.String()
}

// TestCompressionRatio verifies that compression achieves >70% reduction on
// the repetitive JSON the listing endpoints return.
func TestCompressionRatio(t *testing.T) {
	payload := buildSubredditListing(1500)
	uncompressedSize := len(payload)

	tests := []struct {
		name                string
		acceptEncoding      string
		expectedEncoding    string
		minCompressionRatio float64 // Maximum acceptable ratio (compressed/uncompressed)
	}{
		{
			name:                "gzip compression",
			acceptEncoding:      "gzip",
			expectedEncoding:    "gzip",
			minCompressionRatio: 0.30,
		},
		{
			name:                "brotli compression",
			acceptEncoding:      "br",
			expectedEncoding:    "br",
			minCompressionRatio: 0.25, // Brotli typically achieves better compression
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(payload))
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/subreddits", nil)
			req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}

			contentEncoding := rr.Header().Get("Content-Encoding")
			if contentEncoding != tt.expectedEncoding {
				t.Fatalf("expected Content-Encoding: %s, got %s", tt.expectedEncoding, contentEncoding)
			}

			compressedSize := rr.Body.Len()
			compressionRatio := float64(compressedSize) / float64(uncompressedSize)
			compressionPercent := (1.0 - compressionRatio) * 100

			t.Logf("Uncompressed size: %d bytes", uncompressedSize)
			t.Logf("Compressed size (%s): %d bytes", tt.expectedEncoding, compressedSize)
			t.Logf("Compression ratio: %.2f%% reduction", compressionPercent)

			if compressionRatio > tt.minCompressionRatio {
				t.Errorf("compression ratio %.2f exceeds maximum %.2f (achieved only %.2f%% reduction)",
					compressionRatio, tt.minCompressionRatio, compressionPercent)
			}

			// Verify the compressed data decodes back to the original.
			var body []byte
			var err error

			if tt.expectedEncoding == "gzip" {
				gr, err := gzip.NewReader(rr.Body)
				if err != nil {
					t.Fatalf("failed to create gzip reader: %v", err)
				}
				defer gr.Close()
				body, err = io.ReadAll(gr)
				if err != nil {
					t.Fatalf("failed to read gzipped body: %v", err)
				}
			} else {
				body, err = io.ReadAll(brotli.NewReader(rr.Body))
				if err != nil {
					t.Fatalf("failed to read brotli body: %v", err)
				}
			}

			if string(body) != payload {
				t.Error("decompressed body doesn't match original payload")
			}
		})
	}
}

func benchmarkCompression(b *testing.B, acceptEncoding string) {
	var buf bytes.Buffer
	buf.WriteString(buildSubredditListing(10000))
	payload := buf.Bytes()

	handler := Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
	}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/subreddits", nil)
		req.Header.Set("Accept-Encoding", acceptEncoding)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
	}
}

func BenchmarkGzipCompression(b *testing.B) {
	benchmarkCompression(b, "gzip")
}

func BenchmarkBrotliCompression(b *testing.B) {
	benchmarkCompression(b, "br")
}
