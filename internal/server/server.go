// Package server assembles the gin router and runs the HTTP server.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"contactsss/internal/auth"
	"contactsss/internal/contacts"
	"contactsss/internal/rate"
	"contactsss/internal/server/handler"
	"contactsss/internal/server/middleware"
)

// Server is the assembled HTTP front end.
type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// New builds the router: admission middleware per route class, bearer auth
// in front of the contact routes, and the auth/email/contact handlers.
func New(authService *auth.Service, contactService *contacts.Service, limiter *rate.Limiter, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))

	s := &Server{router: router, logger: logger}

	authHandler := handler.NewAuthHandler(authService, logger)
	contactsHandler := handler.NewContactsHandler(contactService, logger)

	admit := func(class rate.Class) gin.HandlerFunc {
		return middleware.Admission(limiter, class, logger)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "It works!"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", admit(rate.ClassSignup), authHandler.Signup)
	authGroup.POST("/login", admit(rate.ClassLogin), authHandler.Login)
	authGroup.GET("/refresh_token", admit(rate.ClassRefresh), authHandler.RefreshToken)
	authGroup.POST("/request_email", admit(rate.ClassEmailRequest), authHandler.RequestEmail)
	authGroup.POST("/reset_pwd", admit(rate.ClassPasswordReset), authHandler.ResetPassword)

	api.GET("/email/confirm/:email_token", admit(rate.ClassConfirm), authHandler.ConfirmEmail)

	contactsGroup := api.Group("/contacts", middleware.BearerAuth(authService))
	contactsGroup.GET("", admit(rate.ClassContactsRead), contactsHandler.List)
	contactsGroup.GET("/bd", admit(rate.ClassContactsRead), contactsHandler.UpcomingBirthdays)
	contactsGroup.GET("/:query", admit(rate.ClassContactsRead), contactsHandler.Get)
	contactsGroup.POST("", admit(rate.ClassContactsWrite), contactsHandler.Create)
	contactsGroup.PUT("/:contact_id", admit(rate.ClassContactsWrite), contactsHandler.Update)
	contactsGroup.DELETE("/:contact_id", admit(rate.ClassContactsWrite), contactsHandler.Delete)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then drains with a bounded
// shutdown timeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
