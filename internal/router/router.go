// Package router builds the echo instance: global middleware in order,
// then the system and API routes.
package router

import (
	"net"

	"github.com/deppfellow/portfolio-backend/internal/handler"
	"github.com/deppfellow/portfolio-backend/internal/middleware"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/labstack/echo/v4"
)

func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler
	router.IPExtractor = ipExtractor(s.Config.Server.TrustedProxies)

	// Order matters: the logger built by EnhanceContext needs the request
	// id and the New Relic transaction, and RequestLogger needs the logger.
	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.Secure(),
		middlewares.Global.CORS(),
		middlewares.Global.BodyLimit(),
	)

	registerSystemRoutes(router, h)
	registerContactRoutes(router, h, middlewares)
	registerChatRoutes(router, h, middlewares)

	return router
}

// ipExtractor resolves the client address used by the rate limiter and the
// request logs. Forwarding headers are only read when the request arrives
// from one of the configured proxy ranges; otherwise the TCP peer is used.
// Internal ranges are not trusted implicitly.
func ipExtractor(trustedProxies []string) echo.IPExtractor {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect()
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		options = append(options, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(options...)
}
