package service

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/repository"
	"Orion_Tube/internal/staging"
	"math"
	"strings"
)

// CreateVideoInput 校验通过的创建参数，后续步骤不再判断可选性
type CreateVideoInput struct {
	ActorID     uint64
	Title       string
	Description string
	Video       staging.Upload
	Thumbnail   staging.Upload
}

// NewCreateVideoInput 一次性做完全部校验，在任何副作用之前返回 ErrValidation
func NewCreateVideoInput(actorID uint64, title, description string, video, thumbnail *staging.Upload) (CreateVideoInput, error) {
	if actorID == 0 {
		return CreateVideoInput{}, apperr.Validation("actor is required")
	}
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" || description == "" {
		return CreateVideoInput{}, apperr.Validation("title and description are required")
	}
	if !present(video) {
		return CreateVideoInput{}, apperr.Validation("video file is required")
	}
	if !present(thumbnail) {
		return CreateVideoInput{}, apperr.Validation("thumbnail is required")
	}
	return CreateVideoInput{
		ActorID:     actorID,
		Title:       title,
		Description: description,
		Video:       *video,
		Thumbnail:   *thumbnail,
	}, nil
}

// UpdateVideoInput Thumbnail 为空表示保留原封面
type UpdateVideoInput struct {
	VideoID     uint64
	ActorID     uint64
	Title       string
	Description string
	Thumbnail   *staging.Upload
}

func NewUpdateVideoInput(videoID, actorID uint64, title, description string, thumbnail *staging.Upload) (UpdateVideoInput, error) {
	if videoID == 0 {
		return UpdateVideoInput{}, apperr.Validation("invalid video id")
	}
	if actorID == 0 {
		return UpdateVideoInput{}, apperr.Validation("actor is required")
	}
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" || description == "" {
		return UpdateVideoInput{}, apperr.Validation("title and description are required")
	}
	in := UpdateVideoInput{VideoID: videoID, ActorID: actorID, Title: title, Description: description}
	if present(thumbnail) {
		up := *thumbnail
		in.Thumbnail = &up
	}
	return in, nil
}

func present(up *staging.Upload) bool {
	return up != nil && up.Reader != nil
}

// ListFilter 公开列表的查询参数。Page 和 Limit 都为空时进入随机抽样模式
type ListFilter struct {
	Query    string
	OwnerID  uint64
	SortBy   string
	SortType string
	Page     *int
	Limit    *int
}

func (f ListFilter) sampleMode() bool {
	return f.Page == nil && f.Limit == nil
}

// toQuery 校验排序字段和分页参数，返回仓库层查询条件以及实际的 page/limit
func (f ListFilter) toQuery(defaultLimit, maxLimit int) (repository.VideoQuery, int, int, error) {
	q := repository.VideoQuery{
		Search:        f.Query,
		OwnerID:       f.OwnerID,
		PublishedOnly: true,
		SortColumn:    "created_at",
		Desc:          true,
	}
	if f.SortBy != "" {
		col, ok := repository.SortColumns[f.SortBy]
		if !ok {
			return q, 0, 0, apperr.Validation("unsupported sortBy %q", f.SortBy)
		}
		q.SortColumn = col
	}
	switch strings.ToLower(f.SortType) {
	case "", "desc":
		q.Desc = true
	case "asc":
		q.Desc = false
	default:
		return q, 0, 0, apperr.Validation("sortType must be asc or desc")
	}

	page, limit := 1, defaultLimit
	if f.Page != nil {
		page = *f.Page
	}
	if f.Limit != nil {
		limit = *f.Limit
	}
	if page < 1 || limit < 1 {
		return q, 0, 0, apperr.Validation("page and limit must be positive")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	// offset 不能溢出成负数
	if page-1 > math.MaxInt/limit {
		return q, 0, 0, apperr.Validation("page %d is out of range", page)
	}
	q.Offset = (page - 1) * limit
	q.Limit = limit
	return q, page, limit, nil
}
