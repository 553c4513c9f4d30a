package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"practicelab/latency"
	"practicelab/proxy"
	"practicelab/reqlog"
	"practicelab/state"
)

// Options configure an Interceptor. Everything except the table is optional.
type Options struct {
	// BasePath is stripped before matching; requests outside it bypass.
	BasePath string
	// Rules injects latency or failures in front of matched routes.
	Rules *state.RuleState
	// Log records every request seen.
	Log *reqlog.Log
	// Fallback receives bypassed requests. Defaults to 404.
	Fallback http.Handler
	Logger   *slog.Logger
}

// Interceptor diverts requests matching the route table to their handlers and
// passes everything else through to the fallback untouched.
type Interceptor struct {
	table    *Table
	basePath string
	rules    *state.RuleState
	log      *reqlog.Log
	fallback http.Handler
	logger   *slog.Logger
}

// NewInterceptor creates an interceptor for table.
func NewInterceptor(table *Table, opts Options) *Interceptor {
	i := &Interceptor{
		table:    table,
		basePath: "/" + strings.Trim(opts.BasePath, "/"),
		rules:    opts.Rules,
		log:      opts.Log,
		fallback: opts.Fallback,
		logger:   opts.Logger,
	}
	if i.fallback == nil {
		i.fallback = http.NotFoundHandler()
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	return i
}

// BasePath returns the normalized mount point, "/" when unset.
func (i *Interceptor) BasePath() string { return i.basePath }

// ServeHTTP implements http.Handler.
func (i *Interceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rel, ok := i.relative(r.URL.Path)
	if !ok {
		i.bypass(w, r, start)
		return
	}
	route, params, ok := i.table.Match(r.Method, rel)
	if !ok {
		i.bypass(w, r, start)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		i.logger.Warn("read request body", "path", r.URL.Path, "error", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	entry := reqlog.Entry{
		Name:        route.Name,
		URL:         r.URL.RequestURI(),
		Method:      r.Method,
		Body:        body,
		Intercepted: true,
	}
	log := i.logger.With("route", route.Name, "method", r.Method, "path", r.URL.Path)

	if rule, ok := i.findRule(rel); ok {
		entry.Fault = rule.Failure.Type
		resp, handled, cancelled := i.injectFailure(r, rule, log)
		if cancelled {
			return
		}
		if handled {
			i.write(w, resp.Status, resp.Body, entry, start, log)
			return
		}
	}

	if err := latency.Sleep(r.Context(), route.Latency.Next()); err != nil {
		log.Debug("caller went away while pending", "error", err)
		return
	}

	resp := route.Handler(r, params)
	i.write(w, resp.Status, resp.Body, entry, start, log)
}

// relative strips the base path. ok is false for paths outside it.
func (i *Interceptor) relative(path string) (string, bool) {
	if i.basePath == "/" {
		return path, true
	}
	if path == i.basePath {
		return "/", true
	}
	if rest, ok := strings.CutPrefix(path, i.basePath+"/"); ok {
		return "/" + rest, true
	}
	return "", false
}

func (i *Interceptor) findRule(rel string) (state.Rule, bool) {
	if i.rules == nil {
		return state.Rule{}, false
	}
	if err := i.rules.CheckAndReloadIfModified(); err != nil {
		i.logger.Warn("reload fault rules", "error", err)
	}
	return i.rules.FindRuleForTarget(rel)
}

// injectFailure applies a fault rule. handled reports that resp is the
// injected answer; cancelled that the caller left during an injected delay.
func (i *Interceptor) injectFailure(r *http.Request, rule state.Rule, log *slog.Logger) (resp Response, handled, cancelled bool) {
	switch rule.Failure.Type {
	case state.FailureLatency:
		d := time.Duration(rule.Failure.LatencyMs) * time.Millisecond
		log.Info("inject latency", "latency", d, "target", rule.Target)
		if err := latency.Sleep(r.Context(), d); err != nil {
			return Response{}, false, true
		}
	case state.FailureError:
		log.Info("inject error", "status", rule.Failure.ErrorCode, "target", rule.Target)
		return Response{rule.Failure.ErrorCode, message{"Injected error response"}}, true, false
	case state.FailureFlaky:
		if rand.Float64() < rule.Failure.Probability {
			log.Info("inject flaky error", "p", rule.Failure.Probability, "target", rule.Target)
			return Response{http.StatusServiceUnavailable, message{"Injected flaky error"}}, true, false
		}
		log.Debug("flaky pass-through", "p", rule.Failure.Probability, "target", rule.Target)
	}
	return Response{}, false, false
}

func (i *Interceptor) write(w http.ResponseWriter, status int, body any, entry reqlog.Entry, start time.Time, log *slog.Logger) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Error("encode response", "error", err)
		status = http.StatusInternalServerError
		payload = []byte(`{"message":"internal error"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		log.Debug("write response", "error", err)
	}

	dur := time.Since(start)
	log.Info("intercepted", "status", status, "bytes", len(payload), "dur", dur)
	if i.log != nil {
		entry.Status = status
		entry.Response = payload
		entry.DurationMs = dur.Milliseconds()
		i.log.Record(entry)
	}
}

func (i *Interceptor) bypass(w http.ResponseWriter, r *http.Request, start time.Time) {
	rec := proxy.NewRecorder(w)
	i.fallback.ServeHTTP(rec, r)

	dur := time.Since(start)
	i.logger.Debug("bypass", "method", r.Method, "path", r.URL.Path, "status", rec.Status(), "dur", dur)
	if i.log != nil {
		entry := rec.Entry(reqlog.Entry{
			Name:       "bypass",
			URL:        r.URL.RequestURI(),
			Method:     r.Method,
			DurationMs: dur.Milliseconds(),
		})
		i.log.Record(entry)
	}
}
