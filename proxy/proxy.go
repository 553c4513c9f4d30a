// Package proxy forwards requests the mock API does not intercept.
package proxy

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"practicelab/reqlog"
)

// Upstream forwards every request to a fixed origin.
type Upstream struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
	logger *slog.Logger
}

// NewUpstream creates a reverse proxy to target, e.g. http://localhost:5173.
func NewUpstream(target string, logger *slog.Logger) (*Upstream, error) {
	remote, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	u := &Upstream{target: remote, logger: logger}
	u.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(remote)
			pr.SetXForwarded()
			pr.Out.Host = remote.Host
		},
		ErrorHandler: func(rw http.ResponseWriter, req *http.Request, e error) {
			logger.Warn("upstream error", "target", remote.String(), "path", req.URL.Path, "error", e)
			http.Error(rw, "Upstream error: "+e.Error(), http.StatusBadGateway)
		},
	}
	return u, nil
}

// ServeHTTP forwards r and logs the outcome.
func (u *Upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lw := NewRecorder(w)
	u.proxy.ServeHTTP(lw, r)
	u.logger.Debug("forwarded",
		"method", r.Method,
		"path", r.URL.Path,
		"target", u.target.String(),
		"status", lw.Status(),
		"bytes", lw.Bytes(),
		"dur", time.Since(start),
	)
}

// Recorder wraps a ResponseWriter to capture the status code, size and the
// first bytes of the body for the request log.
type Recorder struct {
	http.ResponseWriter
	status int
	bytes  int64
	head   []byte
}

const recordedBodyLimit = 4 << 10

// NewRecorder wraps w.
func NewRecorder(w http.ResponseWriter) *Recorder {
	return &Recorder{ResponseWriter: w}
}

func (lw *Recorder) WriteHeader(statusCode int) {
	if lw.status == 0 {
		lw.status = statusCode
	}
	lw.ResponseWriter.WriteHeader(statusCode)
}

func (lw *Recorder) Write(b []byte) (int, error) {
	if lw.status == 0 {
		lw.status = http.StatusOK
	}
	if room := recordedBodyLimit - len(lw.head); room > 0 {
		lw.head = append(lw.head, b[:min(room, len(b))]...)
	}
	n, err := lw.ResponseWriter.Write(b)
	lw.bytes += int64(n)
	return n, err
}

// Flush lets streaming upstream responses through.
func (lw *Recorder) Flush() {
	if f, ok := lw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Status returns the written status, 200 if only a body was written.
func (lw *Recorder) Status() int {
	if lw.status == 0 {
		return http.StatusOK
	}
	return lw.status
}

// Bytes returns the number of body bytes written.
func (lw *Recorder) Bytes() int64 { return lw.bytes }

// Entry fills the response side of a log entry.
func (lw *Recorder) Entry(e reqlog.Entry) reqlog.Entry {
	e.Status = lw.Status()
	e.Response = append([]byte(nil), lw.head...)
	return e
}
