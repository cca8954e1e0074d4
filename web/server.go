// ABOUTME: JSON web API over the dispatch engine
// ABOUTME: Chat with input sanitizing and per-IP rate limits, plus partner and conversation endpoints
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/harperreed/partneros/config"
	"github.com/harperreed/partneros/engine"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/memory"
	"github.com/harperreed/partneros/models"
	"github.com/harperreed/partneros/skills"
	"go.uber.org/zap"
)

// WebConversationID is used when a chat request names no conversation.
const WebConversationID = "web"

const (
	emptyMessage       = "Please enter a message."
	rateLimitedMessage = "Too many requests. Please wait a moment and try again."
	shutdownTimeout    = 5 * time.Second
)

var htmlTag = regexp.MustCompile(`<[^>]*?>`)

type Server struct {
	engine  *engine.Engine
	cfg     config.ServerConfig
	logger  *zap.Logger
	limiter *ipLimiter
	router  *gin.Engine
}

func NewServer(e *engine.Engine, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = config.DefaultRateLimit
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = config.DefaultRateWindow
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = config.DefaultMaxMessageLength
	}

	s := &Server{
		engine:  e,
		cfg:     cfg,
		logger:  logger,
		limiter: newIPLimiter(cfg.RateLimit, cfg.RateWindow),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.health)
	r.POST("/chat", s.chat)

	api := r.Group("/api")
	{
		api.POST("/chat", s.chat)

		partners := api.Group("/partners")
		partners.GET("", s.listPartners)
		partners.POST("", s.createPartner)
		partners.GET("/:name", s.getPartner)
		partners.PATCH("/:name", s.updatePartner)
		partners.DELETE("/:name", s.deletePartner)
		partners.GET("/:name/documents", s.listDocuments)

		conversations := api.Group("/conversations")
		conversations.GET("", s.listConversations)
		conversations.GET("/:id", s.getConversation)
		conversations.DELETE("/:id", s.clearConversation)
	}

	s.router = r
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// chat handles POST /api/chat
func (s *Server) chat(c *gin.Context) {
	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusOK, engine.Response{Response: emptyMessage, Agent: skills.AgentSystem})
		return
	}
	if utf8.RuneCountInString(req.Message) > s.cfg.MaxMessageLength {
		c.JSON(http.StatusOK, engine.Response{
			Response: fmt.Sprintf("Message too long. Please limit to %d characters.", s.cfg.MaxMessageLength),
			Agent:    skills.AgentSystem,
		})
		return
	}

	req.Message = strings.TrimSpace(htmlTag.ReplaceAllString(req.Message, ""))

	if !s.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, engine.Response{
			Response:    rateLimitedMessage,
			Agent:       skills.AgentSystem,
			RateLimited: true,
		})
		return
	}

	if req.ConversationID == "" {
		req.ConversationID = WebConversationID
	}
	c.JSON(http.StatusOK, s.engine.Dispatch(c.Request.Context(), req))
}

// listPartners handles GET /api/partners
func (s *Server) listPartners(c *gin.Context) {
	l := s.engine.Ledger()
	partners, err := l.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stats, err := l.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": partners, "stats": stats})
}

type createPartnerRequest struct {
	Name    string `json:"name" binding:"required"`
	Tier    string `json:"tier"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
}

// createPartner handles POST /api/partners
func (s *Server) createPartner(c *gin.Context) {
	var req createPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.engine.Ledger().Add(req.Name, req.Tier, req.Contact, req.Email)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidName) || errors.Is(err, ledger.ErrInvalidTier) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// getPartner handles GET /api/partners/:name
func (s *Server) getPartner(c *gin.Context) {
	p, err := s.engine.Ledger().Get(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Partner not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type updatePartnerRequest struct {
	Tier    *string `json:"tier"`
	Status  *string `json:"status"`
	Contact *string `json:"contact"`
	Email   *string `json:"email"`
	Note    string  `json:"note"`
}

// updatePartner handles PATCH /api/partners/:name
func (s *Server) updatePartner(c *gin.Context) {
	var req updatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := ledger.Patch{Status: req.Status, Contact: req.Contact, Email: req.Email, Note: req.Note}
	if req.Tier != nil {
		tier := models.Tier(*req.Tier)
		patch.Tier = &tier
	}

	p, err := s.engine.Ledger().Update(c.Param("name"), patch)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidTier) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Partner not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// deletePartner handles DELETE /api/partners/:name
func (s *Server) deletePartner(c *gin.Context) {
	name := c.Param("name")
	deleted, err := s.engine.Ledger().Delete(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Partner not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("Partner '%s' deleted", name)})
}

// listDocuments handles GET /api/partners/:name/documents
func (s *Server) listDocuments(c *gin.Context) {
	p, err := s.engine.Ledger().Get(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Partner not found"})
		return
	}

	files, err := s.engine.Docs().ListDocuments(p.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if files == nil {
		files = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"partner": p.Name, "documents": p.Documents, "files": files})
}

// getConversation handles GET /api/conversations/:id
func (s *Server) getConversation(c *gin.Context) {
	id := c.Param("id")
	if err := memory.ValidateID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv := s.engine.Memory().GetOrCreate(id)
	messages := conv.Messages
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation_id": id,
		"messages":        messages,
		"current_partner": conv.Context[models.ContextCurrentPartner],
	})
}

// listConversations handles GET /api/conversations
func (s *Server) listConversations(c *gin.Context) {
	ids := s.engine.Memory().IDs()
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": ids})
}

// clearConversation handles DELETE /api/conversations/:id
func (s *Server) clearConversation(c *gin.Context) {
	id := c.Param("id")
	if err := memory.ValidateID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.Memory().Clear(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
