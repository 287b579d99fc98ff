package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"giveora.backend/internal/interfaces/http/handlers"
	"giveora.backend/internal/interfaces/http/middleware"
	"giveora.backend/pkg/metrics"
)

// newEngine builds the gin engine with the shared middleware chain.
// X-Forwarded-For is honoured only when the peer is in trustedProxies.
func newEngine(trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	return r, nil
}

type routeDeps struct {
	registrationHandler  *handlers.RegistrationHandler
	passwordResetHandler *handlers.PasswordResetHandler
	accountHandler       *handlers.AccountHandler
	authMiddleware       gin.HandlerFunc
	sessionMiddleware    gin.HandlerFunc
	ipLimiter            *middleware.IPRateLimiter
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			// Public, throttled per client IP
			public := auth.Group("")
			if d.ipLimiter != nil {
				public.Use(d.ipLimiter.Middleware())
			}
			public.Use(d.sessionMiddleware)
			{
				public.POST("/register", d.registrationHandler.Register)
				public.POST("/resend-verification-code", d.registrationHandler.ResendCode)
				public.POST("/verify-email-code", d.registrationHandler.VerifyCode)

				public.POST("/forgot-password", d.passwordResetHandler.ForgotPassword)
				public.POST("/resend-reset-code", d.passwordResetHandler.ResendResetCode)
				public.POST("/verify-reset-code", d.passwordResetHandler.VerifyResetCode)
				public.POST("/reset-password", d.passwordResetHandler.ResetPassword)
			}

			auth.GET("/me", d.authMiddleware, d.accountHandler.GetMe)
		}
	}
}

func registerOperationalRoutes(r *gin.Engine, health *handlers.HealthHandler) {
	r.GET("/health", health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
}

func applyCORSMiddleware(r *gin.Engine, allowedOrigins []string) {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}
