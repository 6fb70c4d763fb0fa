package handlers

import (
	"context"
	"net/http"
	"time"

	"quizfunnel/api/funnel"
	"quizfunnel/api/models"

	"github.com/gin-gonic/gin"
)

type CommentLister interface {
	ListComments(ctx context.Context, f models.Filter) ([]models.Comment, error)
}

type CommentHandlers struct {
	Store  funnel.CommentStore
	Lister CommentLister
}

func NewCommentHandlers(store funnel.CommentStore, lister CommentLister) *CommentHandlers {
	return &CommentHandlers{Store: store, Lister: lister}
}

func (h *CommentHandlers) SubmitComment(c *gin.Context) {
	var req models.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	comment, err := funnel.SubmitComment(ctx, h.Store, req)
	if err != nil {
		respondError(c, err, "Failed to save comment")
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandlers) ListComments(c *gin.Context) {
	f, err := parseFilter(c, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	comments, err := h.Lister.ListComments(ctx, f)
	if err != nil {
		respondError(c, err, "Failed to list comments")
		return
	}
	c.JSON(http.StatusOK, comments)
}
