package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/emicklei/go-restful/v3"

	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
)

// MaxBodyBytes caps a request body. Search and lookup bodies are a few
// short strings.
const MaxBodyBytes = 64 << 10

// BodyLimitFilter caps the bytes a handler can read from the request body.
func BodyLimitFilter(limit int64) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		if req.Request.Body != nil {
			req.Request.Body = http.MaxBytesReader(resp.ResponseWriter, req.Request.Body, limit)
		}
		chain.ProcessFilter(req, resp)
	}
}

// LoggingFilter logs one line per request.
func LoggingFilter(logger *slog.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()
		chain.ProcessFilter(req, resp)
		logger.Info("http request",
			slog.String("method", req.Request.Method),
			slog.String("path", req.Request.URL.Path),
			slog.Int("status", resp.StatusCode()),
			slog.Duration("latency", time.Since(start)))
	}
}

// RecoverFilter turns a panicking handler into a 500 with an error body.
func RecoverFilter(logger *slog.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("handler panicked",
					slog.String("path", req.Request.URL.Path),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
				writeError(resp, http.StatusInternalServerError,
					tserrors.InternalError(fmt.Sprintf("internal error: %v", r), nil))
			}
		}()
		chain.ProcessFilter(req, resp)
	}
}
