package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/dto"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLikeHandler(t *testing.T) {
	tests := []struct {
		name   string
		method string
		err    error
		code   int
	}{
		{"like", http.MethodPost, nil, http.StatusOK},
		{"like twice", http.MethodPost, fmt.Errorf("create like: %w", apperr.ErrConflict), http.StatusConflict},
		{"unlike not liked", http.MethodDelete, apperr.Validation("video is not liked"), http.StatusBadRequest},
		{"draft of someone else", http.MethodPost, apperr.NotFound("video"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockLikeService)
			call := "LikeVideo"
			if tt.method == http.MethodDelete {
				call = "UnlikeVideo"
			}
			svc.On(call, mock.Anything, uint64(2), uint64(8)).Return(tt.err)

			h := NewLikeHandler(svc)
			r := gin.New()
			r.Use(asUser(2))
			r.POST("/videos/:video_id/like", h.LikeVideo)
			r.DELETE("/videos/:video_id/like", h.UnlikeVideo)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, "/videos/8/like", nil))
			assert.Equal(t, tt.code, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestChannelHandler(t *testing.T) {
	subs := new(mockSubscriptionService)
	agg := new(mockAggregator)
	h := NewChannelHandler(subs, agg)
	r := gin.New()
	r.Use(asUser(2))
	r.POST("/channels/:channel/subscribe", h.ToggleSubscription)
	r.GET("/channels/:channel", h.GetChannelProfile)
	r.GET("/history", h.GetWatchHistory)

	subs.On("ToggleSubscription", mock.Anything, uint64(2), uint64(1)).Return(true, nil).Once()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/channels/1/subscribe", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed":true}`, string(decode(t, w).Data))

	subs.On("ToggleSubscription", mock.Anything, uint64(2), uint64(2)).Return(false, apperr.Validation("cannot subscribe to your own channel"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/channels/2/subscribe", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	agg.On("GetChannelProfile", mock.Anything, "alice", uint64(2)).
		Return(&dto.ChannelView{SubscribersCount: 5, IsSubscribed: true}, nil)
	agg.On("GetChannelProfile", mock.Anything, "ghost", uint64(2)).Return(nil, apperr.NotFound("channel"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/channels/alice", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var profile dto.ChannelView
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &profile))
	assert.Equal(t, int64(5), profile.SubscribersCount)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/channels/ghost", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	agg.On("GetWatchHistory", mock.Anything, uint64(2)).Return([]dto.VideoSummary{{ID: 4}}, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history []dto.VideoSummary
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &history))
	assert.Equal(t, uint64(4), history[0].ID)
}
