package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"Orion_Tube/internal/dto"
	"Orion_Tube/internal/model"
	"Orion_Tube/internal/service"
	"Orion_Tube/internal/staging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockVideoService struct {
	mock.Mock
}

func (m *mockVideoService) CreateVideo(ctx context.Context, in service.CreateVideoInput) (*dto.VideoSummary, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.VideoSummary), args.Error(1)
}

func (m *mockVideoService) UpdateVideo(ctx context.Context, in service.UpdateVideoInput) (*dto.VideoSummary, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.VideoSummary), args.Error(1)
}

func (m *mockVideoService) DeleteVideo(ctx context.Context, videoID, actorID uint64) error {
	return m.Called(ctx, videoID, actorID).Error(0)
}

func (m *mockVideoService) TogglePublish(ctx context.Context, videoID, actorID uint64) (bool, error) {
	args := m.Called(ctx, videoID, actorID)
	return args.Bool(0), args.Error(1)
}

func (m *mockVideoService) GetVideo(ctx context.Context, videoID, viewerID uint64) (*dto.VideoView, error) {
	args := m.Called(ctx, videoID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.VideoView), args.Error(1)
}

func (m *mockVideoService) ListVideos(ctx context.Context, filter service.ListFilter) (dto.VideoListing, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(dto.VideoListing), args.Error(1)
}

func (m *mockVideoService) ListOwnedVideos(ctx context.Context, actorID uint64) ([]dto.VideoSummary, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.VideoSummary), args.Error(1)
}

type mockLikeService struct {
	mock.Mock
}

func (m *mockLikeService) LikeVideo(ctx context.Context, userID, videoID uint64) error {
	return m.Called(ctx, userID, videoID).Error(0)
}

func (m *mockLikeService) UnlikeVideo(ctx context.Context, userID, videoID uint64) error {
	return m.Called(ctx, userID, videoID).Error(0)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) userResult(args mock.Arguments) (*model.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserService) tokenResult(args mock.Arguments) (*service.TokenPair, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenPair), args.Error(1)
}

func (m *mockUserService) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	return m.userResult(m.Called(ctx, in))
}

func (m *mockUserService) Login(ctx context.Context, username, email, password string) (*service.TokenPair, error) {
	return m.tokenResult(m.Called(ctx, username, email, password))
}

func (m *mockUserService) RefreshToken(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	return m.tokenResult(m.Called(ctx, refreshToken))
}

func (m *mockUserService) Logout(ctx context.Context, userID uint64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockUserService) GetCurrentUser(ctx context.Context, userID uint64) (*model.User, error) {
	return m.userResult(m.Called(ctx, userID))
}

func (m *mockUserService) UpdateAccountDetails(ctx context.Context, userID uint64, fullName, email string) (*model.User, error) {
	return m.userResult(m.Called(ctx, userID, fullName, email))
}

func (m *mockUserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	return m.Called(ctx, userID, oldPassword, newPassword).Error(0)
}

func (m *mockUserService) UpdateAvatar(ctx context.Context, userID uint64, up *staging.Upload) (*model.User, error) {
	return m.userResult(m.Called(ctx, userID, up))
}

func (m *mockUserService) UpdateCoverImage(ctx context.Context, userID uint64, up *staging.Upload) (*model.User, error) {
	return m.userResult(m.Called(ctx, userID, up))
}

type mockSubscriptionService struct {
	mock.Mock
}

func (m *mockSubscriptionService) ToggleSubscription(ctx context.Context, subscriberID, channelID uint64) (bool, error) {
	args := m.Called(ctx, subscriberID, channelID)
	return args.Bool(0), args.Error(1)
}

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) GetEnrichedVideo(ctx context.Context, videoID, viewerID uint64) (*dto.VideoView, error) {
	args := m.Called(ctx, videoID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.VideoView), args.Error(1)
}

func (m *mockAggregator) GetChannelProfile(ctx context.Context, username string, viewerID uint64) (*dto.ChannelView, error) {
	args := m.Called(ctx, username, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ChannelView), args.Error(1)
}

func (m *mockAggregator) GetWatchHistory(ctx context.Context, viewerID uint64) ([]dto.VideoSummary, error) {
	args := m.Called(ctx, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.VideoSummary), args.Error(1)
}

// asUser 模拟认证中间件，把userID放进context
func asUser(userID uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != 0 {
			c.Set("userID", userID)
			c.Set("username", "alice")
		}
		c.Next()
	}
}

type apiResponse struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
