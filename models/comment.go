package models

import "time"

type Comment struct {
	ID           int64     `json:"id"`
	SessionToken string    `json:"sessionId"`
	Name         string    `json:"name"`
	Text         string    `json:"text"`
	Product      string    `json:"product"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CommentRequest struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name" binding:"required,max=100"`
	Text      string `json:"text" binding:"required,min=1,max=1000"`
	Product   string `json:"product"`
}
