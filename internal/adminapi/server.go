package adminapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/rs/zerolog/log"
)

// Server runs the admin API in the background.
type Server struct {
	hertz *server.Hertz
	addr  string
}

// NewServer builds a server listening on addr with h's routes.
func NewServer(addr string, h Handler) *Server {
	s := server.New(
		server.WithHostPorts(addr),
		server.WithDisablePrintRoute(true),
	)
	h.RegisterRoutes(s)
	return &Server{hertz: s, addr: addr}
}

// Start serves until Shutdown is called.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("Admin API listening")
		if err := s.hertz.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Admin API stopped")
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.hertz.Shutdown(ctx)
}
