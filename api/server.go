package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/scandrop/api/controllers"
	"github.com/moyoez/scandrop/api/middlewares"
	"github.com/moyoez/scandrop/api/notifyhub"
	"github.com/moyoez/scandrop/orchestrator"
	"github.com/moyoez/scandrop/tool"
	"github.com/moyoez/scandrop/types"
	"github.com/moyoez/scandrop/validate"
)

// Server is the local control API of the uploader.
type Server struct {
	port      int
	orch      *orchestrator.Orchestrator
	validator *validate.Validator
	hub       *notifyhub.Hub
	engine    *gin.Engine
	server    *http.Server
	mu        sync.RWMutex
}

// NewServer creates a control API server. hub may be nil to disable /notify-ws.
func NewServer(port int, orch *orchestrator.Orchestrator, validator *validate.Validator, hub *notifyhub.Hub) *Server {
	return &Server{
		port:      port,
		orch:      orch,
		validator: validator,
		hub:       hub,
	}
}

// Handler builds the routes; exposed for tests.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		s.engine = s.setupRoutes()
	}
	return s.engine
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	taskCtrl := controllers.NewTaskController(s.orch)

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", controllers.UserStatus)
		self.GET("/accept", controllers.AcceptHandler(s.validator))
		self.GET("/tasks", taskCtrl.ListTasks)
		self.POST("/tasks", taskCtrl.AddFiles)
		self.DELETE("/tasks", taskCtrl.ClearTasks)
		self.GET("/tasks/:id", taskCtrl.GetTask)
		self.DELETE("/tasks/:id", taskCtrl.RemoveTask)
		self.POST("/tasks/:id/retry", taskCtrl.RetryTask)
		self.GET("/batches/:id", taskCtrl.GetBatch)
		if s.hub != nil {
			self.GET("/notify-ws", notifyhub.HandleNotifyWS(s.hub, s.snapshot))
		}
	}
	return engine
}

// snapshot is the first message on a fresh notify-ws connection.
func (s *Server) snapshot() []byte {
	tasks := s.orch.Tasks()
	if tasks == nil {
		tasks = []types.UploadTask{}
	}
	payload, err := sonic.Marshal(&types.Notification{
		Type: "snapshot",
		Data: map[string]any{"tasks": tasks},
	})
	if err != nil {
		return []byte("{}")
	}
	return payload
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	handler := s.Handler()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: handler,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting control API on http://%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
