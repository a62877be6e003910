// Package httpapi exposes the ingestion and chat use cases over HTTP.
package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driving"
	"github.com/atelier-labs/ragdrive/internal/logger"
)

// busyMessage is returned verbatim when all generation models are rate
// limited.
const busyMessage = "The system is currently experiencing high load. Please wait a moment and try again."

// Server wires the driving ports to HTTP routes.
type Server struct {
	ingestor driving.Ingestor
	chat     driving.Chat
	store    driven.VectorStore
	engine   *gin.Engine

	// defaultFolderID is used when a process-files request names no
	// folder.
	defaultFolderID string
}

// Option configures a Server.
type Option func(*Server)

// WithDefaultFolder sets the folder ingested when a request does not
// name one.
func WithDefaultFolder(folderID string) Option {
	return func(s *Server) {
		s.defaultFolderID = folderID
	}
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(ingestor driving.Ingestor, chat driving.Chat, store driven.VectorStore, opts ...Option) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())

	s := &Server{
		ingestor: ingestor,
		chat:     chat,
		store:    store,
		engine:   engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/stats", s.handleStats)
	s.engine.POST("/process-files", s.handleProcessFiles)
	s.engine.POST("/chat", s.handleChat)
	s.engine.DELETE("/files/:fileId", s.handleDeleteFile)
}

// Handler returns the underlying HTTP handler, for mounting and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the server on the given address and blocks.
func (s *Server) Run(addr string) error {
	logger.Info("listening on %s", addr)
	return s.engine.Run(addr)
}

type processFilesRequest struct {
	FolderID string `json:"folderId"`
}

type processFilesResponse struct {
	Success  bool                       `json:"success"`
	Message  string                     `json:"message"`
	Progress *domain.ProcessingProgress `json:"progress"`
}

// handleProcessFiles runs a full ingestion pass over the requested
// folder. The response is sent only once the run finishes.
func (s *Server) handleProcessFiles(c *gin.Context) {
	// A bodyless request is valid and means "use the default folder".
	var req processFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	folderID := req.FolderID
	if folderID == "" {
		folderID = s.defaultFolderID
	}
	if folderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "folderId is required"})
		return
	}

	progress, summary, err := s.ingestor.ProcessFolder(c.Request.Context(), folderID)
	if err != nil {
		logger.Error("ingestion failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":  false,
			"error":    err.Error(),
			"progress": progress,
		})
		return
	}

	c.JSON(http.StatusOK, processFilesResponse{
		Success:  true,
		Message:  summary,
		Progress: progress,
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

// handleChat streams the generated answer as plain text. Errors before
// the first fragment map onto status codes; once streaming has begun
// the connection is simply closed on failure.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	stream, err := s.chat.Answer(c.Request.Context(), req.Message)
	if err != nil {
		s.writeChatError(c, err)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)

	for {
		fragment, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			logger.Error("chat stream interrupted: %v", err)
			return
		}
		if _, err := c.Writer.WriteString(fragment); err != nil {
			return
		}
		c.Writer.Flush()
	}
}

// writeChatError maps a pre-stream chat failure onto a response. Rate
// limiting is reported as plain text so chat clients can render the
// message directly.
func (s *Server) writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
	case errors.Is(err, domain.ErrRateLimited):
		c.Data(http.StatusTooManyRequests, "text/plain; charset=utf-8", []byte(busyMessage))
	default:
		logger.Error("chat failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// handleDeleteFile removes every stored vector belonging to a file.
func (s *Server) handleDeleteFile(c *gin.Context) {
	fileID := c.Param("fileId")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileId is required"})
		return
	}

	if err := s.store.DeleteByFileID(c.Request.Context(), fileID); err != nil {
		logger.Error("delete vectors for file %s: %v", fileID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "fileId": fileID})
}

// handleStats reports vector index statistics.
func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		logger.Error("fetch index stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
