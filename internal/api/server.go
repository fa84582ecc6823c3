package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"clinic_queue/internal/config"
	"clinic_queue/internal/response"
)

type Server struct {
	engine *gin.Engine
	logger logrus.FieldLogger
}

func New(cfg config.HTTP, appEnv config.AppEnv, logger logrus.FieldLogger) *Server {
	if appEnv == config.ProductionEnv {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.Use(gin.Recovery(), requestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, response.MessageResponse{Message: "ok"})
	})

	return &Server{engine: r, logger: logger}
}

// Router is where feature handlers register their routes.
func (s *Server) Router() gin.IRouter {
	return s.engine
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on address until ctx is done, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info(fmt.Sprintf("rest server starting at: %s", address))
	srvError := make(chan error, 1)
	go func() {
		srvError <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("rest server is shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-srvError:
		return err
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request")
			return
		}
		entry.Debug("request")
	}
}
