package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/hazadus/go-abloop/internal/session"
)

// Controller - то, что нужно серверу от сессии
type Controller interface {
	Dispatch(intent session.Intent) error
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Event)) (unsubscribe func())
}

// Options - настройки сервера
type Options struct {
	AllowOrigins []string
	Logger       *slog.Logger
}

// Server - HTTP API и WebSocket поток событий сессии
type Server struct {
	controller Controller
	hub        *Hub
	router     *gin.Engine
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	started    time.Time
}

// defaultOrigins - адреса dev-серверов фронтенда
var defaultOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// NewServer создает сервер и настраивает маршруты
func NewServer(controller Controller, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	s := &Server{
		controller: controller,
		hub:        NewHub(logger),
		router:     gin.New(),
		logger:     logger,
		upgrader:   newUpgrader(origins),
		started:    time.Now(),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(logger))
	s.router.Use(corsMiddleware(origins))
	s.setupRoutes()
	return s
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOrigins = origins
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type"}
	return cors.New(config)
}

// requestLogger пишет запросы в slog вместо стандартного логгера gin
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http запрос",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.POST("/intents", s.handleIntent)
		api.GET("/ws", s.handleWebSocket)
	}
}

// Handler возвращает http.Handler сервера
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub возвращает хаб клиентов
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start запускает хаб и подписку на события сессии до отмены ctx
func (s *Server) Start(ctx context.Context) {
	go s.hub.Run(ctx)

	unsubscribe := s.controller.Subscribe(func(event session.Event) {
		data, err := session.EncodeEvent(event)
		if err != nil {
			s.logger.Warn("не удалось сериализовать событие", "type", event.EventType(), "error", err)
			return
		}
		s.hub.Broadcast(data)
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
}

// ListenAndServe обслуживает запросы на addr до отмены ctx
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.Start(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("сервер запущен", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ошибка сервера: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("остановка сервера")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "abloop",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"clients": s.hub.Clients(),
	})
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleIntent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось прочитать тело запроса"})
		return
	}

	intent, err := session.DecodeIntent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"kind":  session.KindOf(err),
		})
		return
	}

	if err := s.controller.Dispatch(intent); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"kind":  session.KindOf(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"state":  s.controller.Snapshot(),
	})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("не удалось установить WebSocket", "error", err)
		return
	}

	client := NewClient(s.hub, conn, s.controller, s.logger)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}
	client.StartPumps()

	// Новый клиент сразу получает текущее состояние
	data, err := session.EncodeEvent(session.LoopStateChanged{State: s.controller.Snapshot().Loop})
	if err == nil {
		s.hub.SendTo(client, data)
	}
}
