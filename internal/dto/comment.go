package dto

import (
	"Orion_Tube/internal/model"
	"time"
)

// UserInfo 是在DTO中使用的、简化的用户信息
type UserInfo struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type CommentResponse struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    UserInfo  `json:"author"`
}

type CommentPage struct {
	Docs      []CommentResponse `json:"docs"`
	TotalDocs int64             `json:"total_docs"`
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
}

func ToCommentResponse(comment *model.Comment) CommentResponse {
	resp := CommentResponse{
		ID:        comment.ID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
	// 安全地填充作者信息，没有preload时只有ID
	if comment.User.ID != 0 {
		resp.Author = UserInfo{
			ID:       comment.User.ID,
			Username: comment.User.Username,
			Avatar:   comment.User.Avatar,
		}
	} else {
		resp.Author.ID = comment.UserID
	}
	return resp
}

func ToCommentPage(comments []model.Comment, total int64, page, limit int) *CommentPage {
	docs := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		docs = append(docs, ToCommentResponse(&comments[i]))
	}
	return &CommentPage{Docs: docs, TotalDocs: total, Page: page, Limit: limit}
}
