package loginclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RedirectListener stands in for the page the provider redirects back to. It
// hands over the first full redirect URL it receives.
type RedirectListener struct {
	listener net.Listener
	server   *http.Server
	received chan string
	logger   *slog.Logger
}

func ListenForRedirect(addr string, logger *slog.Logger) (*RedirectListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &RedirectListener{
		listener: ln,
		received: make(chan string, 1),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/*", l.handleRedirect)

	l.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Redirect listener failed", "error", err)
		}
	}()

	return l, nil
}

func (l *RedirectListener) Addr() string {
	return l.listener.Addr().String()
}

func (l *RedirectListener) handleRedirect(w http.ResponseWriter, r *http.Request) {
	redirect := "http://" + r.Host + r.URL.RequestURI()

	select {
	case l.received <- redirect:
		l.logger.Debug("Received provider redirect", "path", r.URL.Path)
	default:
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Login received. You can close this window and return to the terminal.\n"))
}

// Wait blocks until a redirect arrives or ctx is done.
func (l *RedirectListener) Wait(ctx context.Context) (string, error) {
	select {
	case redirect := <-l.received:
		return redirect, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *RedirectListener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.server.Shutdown(ctx)
}
