package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api")
	api.POST("/generate-image", s.generateImage, s.middleware.RateLimit.Handler())
	api.GET("/stats", s.getStats)
	api.GET("/generations", s.listGenerations)
}
