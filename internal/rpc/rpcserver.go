package rpc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/6529-Collections/arctic/internal/rpc/handlers"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// NewRouter wires the echo endpoint. Accepted request bodies are written to diag.
func NewRouter(diag io.Writer) http.Handler {
	mux := http.NewServeMux()

	echo := handlers.NewEchoPostHandler(diag)
	handlers.SetupHandlers(mux, handlers.MethodHandlers{
		handlers.ApiPath: {
			handlers.HTTP_POST: func(r *http.Request) (any, error) {
				return echo.Handle(r)
			},
		},
	})

	return loggingMiddleware(mux)
}

// StartRPCServer binds host:port and serves in the background. The listener is
// bound before returning so callers can send requests immediately. The returned
// func shuts the server down.
func StartRPCServer(ctx context.Context, host string, port int, diag io.Writer) (func(), error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	zap.L().Info("Starting RPC server", zap.String("addr", ln.Addr().String()))

	server := &http.Server{
		Handler:           NewRouter(diag),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(ln); err != nil {
			if err == http.ErrServerClosed {
				zap.L().Info("RPC server closed")
			} else {
				zap.L().Error("RPC server failed", zap.Error(err))
			}
		}
	}()
	closeFunc := func() {
		zap.L().Info("Closing RPC server...")
		// ctx is usually already canceled here; only its values are kept
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("server shutdown failed", zap.Error(err))
		}
	}
	return closeFunc, nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(rw, r)

		zap.L().Info("Request",
			zap.String("ip", r.RemoteAddr),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
		)
	})
}
