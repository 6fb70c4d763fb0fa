package funnel

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"quizfunnel/api/models"
	"quizfunnel/api/utils"
)

const maxCommentLen = 1000

type CommentStore interface {
	InsertComment(ctx context.Context, c *models.Comment) error
}

// SubmitComment stores a visitor comment shown on the sales page.
func SubmitComment(ctx context.Context, store CommentStore, req models.CommentRequest) (*models.Comment, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" || utf8.RuneCountInString(text) > maxCommentLen {
		return nil, ErrInvalidComment
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID != "" && !utils.IsValidSessionToken(req.SessionID) {
		return nil, ErrInvalidSession
	}

	c := &models.Comment{
		SessionToken: req.SessionID,
		Name:         utils.Truncate(req.Name, 100),
		Text:         text,
		Product:      strings.TrimSpace(req.Product),
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.InsertComment(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return c, nil
}
