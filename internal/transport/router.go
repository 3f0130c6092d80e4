package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/graphmemory/graphmemory/internal/auth"
	"github.com/graphmemory/graphmemory/internal/dispatcher"
)

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// NewMux assembles the full HTTP surface: the server-push stream, its
// per-session POST-back endpoint, and the Bearer-authenticated REST
// routes, all sharing one auth.Manager and dispatcher.Dispatcher.
func NewMux(d *dispatcher.Dispatcher, authManager *auth.Manager, version, basePath string) http.Handler {
	sessions := NewManager()
	stream := NewStreamHandler(sessions, basePath)
	rpc := NewRPCHandler(sessions, d, sessionIDFromPath)
	rest := NewRESTHandlers(d, version, memoryIDFromPath)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", rest.Health)
	mux.Handle("/stream", stream)
	mux.Handle("/rpc/", rpc)
	mux.HandleFunc("/api/memories", rest.Memories)
	mux.HandleFunc("/api/graph/", rest.Graph)
	mux.HandleFunc("/api/ask", rest.Ask)
	mux.HandleFunc("/api/query", rest.Query)

	protected := auth.RequireAuth(mux, authManager, "/health", "/stream")
	rateLimited := auth.RateLimitMiddleware(protected, auth.NewRateLimiter(10.0, 20))
	return securityHeadersMiddleware(rateLimited)
}

// sessionIDFromPath extracts the trailing path segment of /rpc/{id}.
func sessionIDFromPath(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/rpc/")
}

// memoryIDFromPath extracts the trailing path segment of /api/graph/{memory_id}.
func memoryIDFromPath(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/api/graph/")
}

// Start listens on addr and serves the mux until ctx is cancelled, at
// which point it shuts the server down with a bounded grace period.
// Grounded on internal/server/server.go's Start: listener then goroutine
// serve, ctx.Done()-triggered graceful Shutdown.
func Start(ctx context.Context, addr string, handler http.Handler) (string, error) {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("transport: server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("transport: shutdown error: %v", err)
		}
	}()

	return actualAddr, nil
}
