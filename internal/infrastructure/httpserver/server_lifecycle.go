package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// readHeaderTimeout bounds slow clients before the body limit applies.
const readHeaderTimeout = 10 * time.Second

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:           s.echo,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
}

// Start serves until Shutdown is called, which makes it return nil.
func (s *Server) Start() error {
	s.LogMetricsInitialization()

	useTLS := s.config.TLSCertFile != "" && s.config.TLSKeyFile != ""
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"addr": s.httpServer.Addr, "tls": useTLS}).Info("petportrait listening")
		if !useTLS {
			s.logger.Warn("TLS certificates not configured; uploads travel in plain HTTP")
		}
	}

	var err error
	if useTLS {
		err = s.httpServer.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight generations
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
