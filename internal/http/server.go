// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"wander/internal/http/handlers"
	"wander/internal/http/middleware"
	"wander/internal/infra"
)

type ServerDeps struct {
	Trips    handlers.TripHandlerDeps
	Wishlist handlers.WishlistService
	// Verifier may be nil; authenticated routes then always answer 401.
	Verifier    infra.TokenVerifier
	Logger      *zap.Logger
	ServiceName string
}

type Server struct {
	trips       *handlers.TripHandler
	wishlist    *handlers.WishlistHandler
	verifier    infra.TokenVerifier
	logger      *zap.Logger
	serviceName string
}

func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := deps.ServiceName
	if name == "" {
		name = "wander-api"
	}
	return &Server{
		trips:       handlers.NewTripHandler(deps.Trips, logger),
		wishlist:    handlers.NewWishlistHandler(deps.Wishlist),
		verifier:    deps.Verifier,
		logger:      logger,
		serviceName: name,
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(otelgin.Middleware(s.serviceName))
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Recovery(s.logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")

	authed := api.Group("", middleware.Auth(s.verifier))
	authed.POST("/trips/generate", s.trips.Generate)
	authed.POST("/trips/generate/stream", s.trips.Stream)
	authed.GET("/trips", s.trips.List)
	authed.GET("/trips/:id", s.trips.Get)
	authed.DELETE("/trips/:id", s.trips.Delete)
	authed.GET("/wishlist", s.wishlist.List)
	authed.POST("/wishlist", s.wishlist.Add)
	authed.DELETE("/wishlist/:id", s.wishlist.Remove)

	return r
}
