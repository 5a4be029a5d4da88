package handler

import (
	"Orion_Tube/internal/model"
	"Orion_Tube/internal/service"
	"Orion_Tube/internal/staging"
	"Orion_Tube/pkg/logger"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserHandler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	RefreshToken(c *gin.Context)
	Logout(c *gin.Context)

	GetCurrentUser(c *gin.Context)
	UpdateAccountDetails(c *gin.Context)
	ChangePassword(c *gin.Context)
	UpdateAvatar(c *gin.Context)
	UpdateCoverImage(c *gin.Context)
}

type userHandler struct {
	UserService service.UserService
}

func NewUserHandler(userService service.UserService) UserHandler {
	return &userHandler{UserService: userService}
}

// LoginRequest 用户名和邮箱二选一
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AccountRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

type PasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// authFailure 凭证类错误统一401，其余按业务错误映射
func authFailure(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		// 不区分用户不存在和密码错误
		sendErrorResponse(c, http.StatusUnauthorized, "用户名或密码错误")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		sendErrorResponse(c, http.StatusUnauthorized, "refresh token 无效或已失效")
	default:
		sendServiceError(c, err, fallback)
	}
}

// 注册：multipart 表单，头像必填，coverImage 可选
func (h *userHandler) Register(c *gin.Context) {
	username := c.PostForm("username")
	logCtx := logger.Log.WithField("username", username)

	avatar, ac, err := formUpload(c, "avatar")
	if err != nil {
		logCtx.WithError(err).Error("头像文件解析失败")
		sendErrorResponse(c, http.StatusBadRequest, "无效的头像文件")
		return
	}
	cover, cc, err := formUpload(c, "coverImage")
	if err != nil {
		closeAll(ac)
		logCtx.WithError(err).Error("封面图解析失败")
		sendErrorResponse(c, http.StatusBadRequest, "无效的封面图")
		return
	}
	defer closeAll(ac, cc)

	fullName := c.PostForm("fullName")
	if fullName == "" {
		fullName = c.PostForm("full_name")
	}
	in, err := service.NewRegisterInput(username, c.PostForm("password"), fullName, c.PostForm("email"), avatar, cover)
	if err != nil {
		sendServiceError(c, err, "无效的参数")
		return
	}

	user, err := h.UserService.Register(c.Request.Context(), in)
	if err != nil {
		logCtx.WithError(err).Error("用户注册失败")
		sendServiceError(c, err, "注册失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "注册成功", "data": user})
}

func (h *userHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Username == "" && req.Email == "") {
		sendErrorResponse(c, http.StatusBadRequest, "需要用户名或邮箱以及密码")
		return
	}

	tokens, err := h.UserService.Login(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		logger.Log.WithError(err).WithField("username", req.Username).Warn("登录失败")
		authFailure(c, err, "登录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "登录成功", "data": tokens})
}

// RefreshToken 旧的 refresh token 用过即作废
func (h *userHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(c, http.StatusUnauthorized, "缺少 refresh token")
		return
	}
	tokens, err := h.UserService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		authFailure(c, err, "刷新令牌失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "令牌已刷新", "data": tokens})
}

func (h *userHandler) Logout(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.UserService.Logout(c.Request.Context(), userID); err != nil {
		sendServiceError(c, err, "登出失败")
		return
	}
	logger.Log.WithField("user_id", userID).Info("用户已登出")
	c.JSON(http.StatusOK, gin.H{"message": "已登出", "data": gin.H{}})
}

func (h *userHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	user, err := h.UserService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		sendServiceError(c, err, "获取用户信息失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "成功获取用户信息", "data": user})
}

func (h *userHandler) UpdateAccountDetails(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(c, http.StatusBadRequest, "full_name 和 email 都是必填项")
		return
	}
	user, err := h.UserService.UpdateAccountDetails(c.Request.Context(), userID, req.FullName, req.Email)
	if err != nil {
		sendServiceError(c, err, "修改账户信息失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "账户信息已更新", "data": user})
}

func (h *userHandler) ChangePassword(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(c, http.StatusBadRequest, "旧密码和新密码都是必填项")
		return
	}
	if err := h.UserService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Warn("修改密码失败")
		sendServiceError(c, err, "修改密码失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "密码已修改", "data": gin.H{}})
}

func (h *userHandler) UpdateAvatar(c *gin.Context) {
	h.replaceImage(c, "avatar", h.UserService.UpdateAvatar)
}

func (h *userHandler) UpdateCoverImage(c *gin.Context) {
	h.replaceImage(c, "coverImage", h.UserService.UpdateCoverImage)
}

type imageUpdater func(ctx context.Context, userID uint64, up *staging.Upload) (*model.User, error)

// replaceImage 头像和封面图共用：取出单个文件交给service，缺文件由service返回400
func (h *userHandler) replaceImage(c *gin.Context, field string, update imageUpdater) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	up, closer, err := formUpload(c, field)
	if err != nil {
		sendErrorResponse(c, http.StatusBadRequest, "无效的图片文件")
		return
	}
	defer closeAll(closer)

	user, err := update(c.Request.Context(), userID, up)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).WithField("field", field).Error("更新图片失败")
		sendServiceError(c, err, "更新图片失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "图片已更新", "data": user})
}
