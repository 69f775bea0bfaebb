package middleware

import (
	"net/http"
	"os"
	"strconv"
	"time"
)

// processTimeWriter stamps the timing headers immediately before the status
// line goes out, which is the last moment headers can still change.
type processTimeWriter struct {
	http.ResponseWriter
	start       time.Time
	server      string
	wroteHeader bool
}

func (w *processTimeWriter) stamp() {
	elapsedMs := float64(time.Since(w.start).Microseconds()) / 1000.0
	w.Header().Set("X-Process-Time", strconv.FormatFloat(elapsedMs, 'f', 2, 64))
	w.Header().Set("X-Server", w.server)
}

func (w *processTimeWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.stamp()
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *processTimeWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// ProcessTime measures how long each request takes and reports it in the
// X-Process-Time header (milliseconds). X-Server names the host so responses
// can be traced back to an instance behind a load balancer.
func ProcessTime(next http.Handler) http.Handler {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ptw := &processTimeWriter{
			ResponseWriter: w,
			start:          time.Now(),
			server:         host,
		}
		next.ServeHTTP(ptw, r)

		// Handlers that send nothing still get the headers; net/http
		// writes the implicit 200 only after this returns.
		if !ptw.wroteHeader {
			ptw.stamp()
		}
	})
}
