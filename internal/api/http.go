package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Memetrix/holder-price-bot/internal/types"
)

// Server exposes the Service over HTTP plus the websocket push endpoint and
// the embedded dashboard.
type Server struct {
	svc  *Service
	hub  *Hub
	addr string
	log  *zap.Logger
}

func NewServer(svc *Service, hub *Hub, addr string, log *zap.Logger) *Server {
	return &Server{svc: svc, hub: hub, addr: addr, log: log}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/prices", s.handle(func(r *http.Request) Envelope {
		return s.svc.GetLatestPrices(r.Context())
	}))
	mux.HandleFunc("/api/stats", s.handle(func(r *http.Request) Envelope {
		return s.svc.GetStats(r.Context(), types.Source(r.URL.Query().Get("source")))
	}))
	mux.HandleFunc("/api/history", s.handle(func(r *http.Request) Envelope {
		q := r.URL.Query()
		return s.svc.GetHistory(r.Context(),
			types.Source(q.Get("source")),
			atoi(q.Get("hours")),
			atoi(q.Get("limit")),
		)
	}))
	mux.HandleFunc("/api/arbitrage", s.handle(func(r *http.Request) Envelope {
		return s.svc.GetArbitrage(r.Context())
	}))
	mux.HandleFunc("/ws", s.hub.HandleWS)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexHTML)
	})

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           withCORS(mux),
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("api server listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// handle renders an Envelope as JSON. A panic inside a handler becomes an
// ok=false response instead of tearing down the connection.
func (s *Server) handle(fn func(*http.Request) Envelope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("api: handler panic", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				writeJSON(w, fail(errUnavailable))
			}
		}()
		writeJSON(w, fn(r))
	}
}

func writeJSON(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(env)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
