package dto

import (
	"testing"

	"Orion_Tube/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestNewVideoPage(t *testing.T) {
	videos := []model.Video{{BaseModel: model.BaseModel{ID: 1}, OwnerID: 3}}

	p := NewVideoPage(videos, 21, 2, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)
	assert.Equal(t, uint64(3), p.Docs[0].Owner.ID)

	p = NewVideoPage(nil, 0, 1, 10)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.False(t, p.HasPrevPage)
	assert.NotNil(t, p.Docs)
}

func TestVideoListing_Payload(t *testing.T) {
	sample := &VideoSample{}
	assert.Same(t, sample, VideoListing{Sample: sample}.Payload())

	page := &VideoPage{}
	assert.Same(t, page, VideoListing{Page: page}.Payload())
}
