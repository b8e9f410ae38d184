// Package server exposes the Botterverse HTTP API: the timeline surface,
// DM and like endpoints, director controls, and introspection.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adrianhensler/botterverse/internal/director"
	"github.com/adrianhensler/botterverse/internal/llm"
	"github.com/adrianhensler/botterverse/internal/scheduler"
	"github.com/adrianhensler/botterverse/internal/store"
	"github.com/adrianhensler/botterverse/internal/tooling"
	"github.com/adrianhensler/botterverse/pkg/logging"
)

type Server struct {
	store    store.Store
	director *director.Director
	state    *director.SchedulerState
	client   *llm.Client
	tools    *tooling.Router
	logger   logging.Logger
}

func New(st store.Store, d *director.Director, state *director.SchedulerState, client *llm.Client, tools *tooling.Router, logger logging.Logger) *Server {
	return &Server{store: st, director: d, state: state, client: client, tools: tools, logger: logger}
}

// RegisterRoutes attaches the API surface to an already-configured engine.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/timeline", s.handleTimeline)
	router.GET("/authors", s.handleListAuthors)

	router.POST("/posts", s.handleCreatePost)
	router.POST("/posts/:id/reply", s.handleReply)
	router.POST("/posts/:id/quote", s.handleQuote)
	router.POST("/posts/:id/like", s.handleLike)

	router.POST("/dms", s.handleSendDM)
	router.GET("/dms/:user_a/:user_b", s.handleDMThread)

	router.POST("/director/events", s.handleInjectEvent)
	router.POST("/director/tick", s.handleTick)
	router.POST("/director/pause", s.handlePause)
	router.POST("/director/resume", s.handleResume)

	router.GET("/audit", s.handleAudit)
	router.GET("/tools", s.handleListTools)
}

func (s *Server) handleTimeline(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	posts, err := s.store.ListPosts(c.Request.Context(), limit, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}
	entries := make([]store.TimelineEntry, 0, len(posts))
	for _, post := range posts {
		author, err := s.store.GetAuthor(c.Request.Context(), post.AuthorID)
		if err != nil {
			continue
		}
		entries = append(entries, store.TimelineEntry{Post: post, Author: author})
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleListAuthors(c *gin.Context) {
	authors, err := s.store.ListAuthors(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list authors"})
		return
	}
	c.JSON(http.StatusOK, authors)
}

func (s *Server) handleCreatePost(c *gin.Context) {
	var payload store.PostCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	author, err := s.store.GetAuthor(c.Request.Context(), payload.AuthorID)
	if err != nil {
		s.notFoundOrError(c, err, "author not found")
		return
	}

	post, err := s.store.CreatePost(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create post"})
		return
	}
	if author.Type == store.AuthorHuman {
		s.planConversationalReplies(c.Request.Context(), post)
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleReply(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}
	var payload store.PostCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	author, err := s.store.GetAuthor(c.Request.Context(), payload.AuthorID)
	if err != nil {
		s.notFoundOrError(c, err, "author not found")
		return
	}
	if _, err := s.store.GetPost(c.Request.Context(), postID); err != nil {
		s.notFoundOrError(c, err, "post not found")
		return
	}

	payload.ReplyTo = &postID
	post, err := s.store.CreatePost(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reply"})
		return
	}
	if author.Type == store.AuthorHuman {
		s.planConversationalReplies(c.Request.Context(), post)
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleQuote(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}
	var payload store.PostCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	author, err := s.store.GetAuthor(c.Request.Context(), payload.AuthorID)
	if err != nil {
		s.notFoundOrError(c, err, "author not found")
		return
	}
	if _, err := s.store.GetPost(c.Request.Context(), postID); err != nil {
		s.notFoundOrError(c, err, "post not found")
		return
	}

	payload.QuoteOf = &postID
	post, err := s.store.CreatePost(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create quote"})
		return
	}
	if author.Type == store.AuthorHuman {
		s.planConversationalReplies(c.Request.Context(), post)
	}
	c.JSON(http.StatusCreated, post)
}

// planConversationalReplies reacts to a fresh human post: @-mentioned
// personas answer, and a reply to a bot's post asks that persona whether it
// wants to continue the thread. Failures are logged, never surfaced.
func (s *Server) planConversationalReplies(ctx context.Context, post store.Post) {
	recent, err := s.store.ListPosts(ctx, 50, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load recent posts for conversational planning")
		recent = nil
	}

	planned := s.director.PlanDirectMentions(ctx, post, recent, s.store, s.client)

	if post.ReplyTo != nil {
		if parent, err := s.store.GetPost(ctx, *post.ReplyTo); err == nil {
			if p, ok := s.director.PersonaByID(parent.AuthorID); ok {
				if plan := s.director.PlanDirectReplyToBot(ctx, p, post, recent, s.store, s.client); plan != nil {
					planned = append(planned, *plan)
				}
			}
		}
	}

	for _, plan := range planned {
		created, err := s.store.CreatePost(ctx, plan.Post)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to persist conversational reply")
			continue
		}
		if plan.Audit != nil {
			plan.Audit.PostID = &created.ID
			if err := s.store.AddAuditEntry(ctx, *plan.Audit); err != nil {
				s.logger.WithError(err).Warn("Failed to persist audit entry")
			}
		}
	}
}

func (s *Server) handleLike(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}
	authorID, err := uuid.Parse(c.Query("author_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author_id is required"})
		return
	}
	if _, err := s.store.GetAuthor(c.Request.Context(), authorID); err != nil {
		s.notFoundOrError(c, err, "author not found")
		return
	}
	if _, err := s.store.GetPost(c.Request.Context(), postID); err != nil {
		s.notFoundOrError(c, err, "post not found")
		return
	}
	count, err := s.store.ToggleLike(c.Request.Context(), postID, authorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle like"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": postID, "likes": count})
}

func (s *Server) handleSendDM(c *gin.Context) {
	var payload store.DMCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if _, err := s.store.GetAuthor(c.Request.Context(), payload.SenderID); err != nil {
		s.notFoundOrError(c, err, "sender not found")
		return
	}
	if _, err := s.store.GetAuthor(c.Request.Context(), payload.RecipientID); err != nil {
		s.notFoundOrError(c, err, "recipient not found")
		return
	}
	dm, err := s.store.CreateDM(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create dm"})
		return
	}
	c.JSON(http.StatusCreated, dm)
}

func (s *Server) handleDMThread(c *gin.Context) {
	userA, err := uuid.Parse(c.Param("user_a"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	userB, err := uuid.Parse(c.Param("user_b"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	thread, err := s.store.ListDMThread(c.Request.Context(), userA, userB, queryInt(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list thread"})
		return
	}
	c.JSON(http.StatusOK, thread)
}

type injectEventRequest struct {
	Topic   string         `json:"topic" binding:"required"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

func (s *Server) handleInjectEvent(c *gin.Context) {
	var req injectEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}
	event := director.NewEvent(req.Topic, req.Kind, req.Payload)
	s.director.RegisterEvent(event)
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

func (s *Server) handleTick(c *gin.Context) {
	if s.state.Paused() {
		c.JSON(http.StatusOK, gin.H{"created": []store.Post{}, "paused": true})
		return
	}
	created, err := scheduler.RunDirectorTick(c.Request.Context(), s.director, s.store, s.client)
	if err != nil {
		s.logger.WithError(err).Error("Manual director tick failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tick failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created, "paused": false})
}

func (s *Server) handlePause(c *gin.Context) {
	s.state.Pause()
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (s *Server) handleResume(c *gin.Context) {
	s.state.Resume()
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (s *Server) handleAudit(c *gin.Context) {
	entries, err := s.store.ListAuditEntries(c.Request.Context(), queryInt(c, "limit", 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit entries"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleListTools(c *gin.Context) {
	if s.tools == nil {
		c.JSON(http.StatusOK, []tooling.Schema{})
		return
	}
	c.JSON(http.StatusOK, s.tools.Registry().List())
}

func (s *Server) notFoundOrError(c *gin.Context, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": message})
		return
	}
	s.logger.WithError(err).Error("Store lookup failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
