package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/arloliu/otxhook"
	"go.opentelemetry.io/otel/trace"
)

// Parameter names of a hooked request, in argument order.
const (
	ParamMethod        = "method"
	ParamPath          = "path"
	ParamQuery         = "query"
	ParamContentLength = "contentLength"
)

// ErrStatus is wrapped by the error hooks observe for 5xx responses.
var ErrStatus = errors.New("otxhook/http: server error status")

// RequestSignature describes an HTTP route as a hookable operation. Its
// parameters are the request method, path, raw query and content length;
// the result is the response status code.
func RequestSignature(class, function string) otxhook.Signature {
	return otxhook.Signature{
		Class:    class,
		Function: function,
		Params:   []string{ParamMethod, ParamPath, ParamQuery, ParamContentLength},
	}
}

func requestInvocation(target any, operation string, r *http.Request) *otxhook.Invocation {
	class, function := otxhook.SplitOperation(operation)

	return &otxhook.Invocation{
		Target:   target,
		Args:     []any{r.Method, r.URL.Path, r.URL.RawQuery, r.ContentLength},
		Class:    class,
		Function: function,
	}
}

func statusError(code int) error {
	if code < http.StatusInternalServerError {
		return nil
	}

	return fmt.Errorf("%w: %d %s", ErrStatus, code, http.StatusText(code))
}

// Hooked runs every request served by next through the hooks installed in t
// under operation. The handler's response status is the result; a 5xx
// status is reported to the hooks as a failure. A request context without a
// span is first parented to the trace context found in its headers.
func Hooked(t *otxhook.Table, operation string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Installed(operation) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		if !trace.SpanContextFromContext(ctx).IsValid() {
			ctx = otxhook.ExtractHTTP(ctx, r.Header)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		_, _ = t.Call(ctx, operation, requestInvocation(next, operation, r), func(ctx context.Context) (any, error) {
			next.ServeHTTP(rec, r.WithContext(ctx))
			return rec.status, statusError(rec.status)
		})
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// hookedTransport runs outgoing requests through a hook table.
type hookedTransport struct {
	table     *otxhook.Table
	operation string
	base      http.RoundTripper
}

// HookedTransport runs every request sent through base as a call of
// operation in t, and injects the trace context of the hook span into the
// outgoing headers. The response status is the result. Transport errors and
// 5xx statuses are reported to the hooks as failures; only transport errors
// are returned to the caller. If base is nil, http.DefaultTransport is used.
func HookedTransport(t *otxhook.Table, operation string, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	return &hookedTransport{table: t, operation: operation, base: base}
}

func (h *hookedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if !h.table.Installed(h.operation) {
		return h.base.RoundTrip(r)
	}

	var (
		resp    *http.Response
		sendErr error
	)
	_, _ = h.table.Call(r.Context(), h.operation, requestInvocation(h.base, h.operation, r),
		func(ctx context.Context) (any, error) {
			out := r.Clone(ctx)
			otxhook.InjectHTTP(ctx, out.Header)

			resp, sendErr = h.base.RoundTrip(out)
			if sendErr != nil {
				return nil, sendErr
			}

			return resp.StatusCode, statusError(resp.StatusCode)
		})

	return resp, sendErr
}
