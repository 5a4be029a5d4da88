package service

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/config"
	"Orion_Tube/internal/model"
	"Orion_Tube/internal/pipeline"
	"Orion_Tube/internal/repository"
	"Orion_Tube/internal/staging"
	"Orion_Tube/internal/storage"
	"Orion_Tube/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("用户名或密码错误")
	ErrInvalidRefreshToken = errors.New("refresh token 无效或已失效")
)

// token 的 typ 声明，认证中间件只接受 access
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenPair 登录和刷新都返回一对新令牌
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput 校验通过的注册参数，头像必填，封面图可选
type RegisterInput struct {
	Username   string
	Password   string
	FullName   string
	Email      string
	Avatar     staging.Upload
	CoverImage *staging.Upload
}

// NewRegisterInput 四个文本字段都不能为空，头像必须上传
func NewRegisterInput(username, password, fullName, email string, avatar, coverImage *staging.Upload) (RegisterInput, error) {
	in := RegisterInput{
		Username: strings.ToLower(strings.TrimSpace(username)),
		Password: password,
		FullName: strings.TrimSpace(fullName),
		Email:    strings.ToLower(strings.TrimSpace(email)),
	}
	if in.Username == "" || strings.TrimSpace(in.Password) == "" || in.FullName == "" || in.Email == "" {
		return RegisterInput{}, apperr.Validation("username, password, full name and email are required")
	}
	if !present(avatar) {
		return RegisterInput{}, apperr.Validation("avatar file is required")
	}
	in.Avatar = *avatar
	if present(coverImage) {
		cover := *coverImage
		in.CoverImage = &cover
	}
	return in, nil
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, username, email, password string) (*TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID uint64) error

	GetCurrentUser(ctx context.Context, userID uint64) (*model.User, error)
	UpdateAccountDetails(ctx context.Context, userID uint64, fullName, email string) (*model.User, error)
	ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error
	UpdateAvatar(ctx context.Context, userID uint64, up *staging.Upload) (*model.User, error)
	UpdateCoverImage(ctx context.Context, userID uint64, up *staging.Upload) (*model.User, error)
}

type userService struct {
	assetPipeline
	userRepo   repository.UserRepository
	secretKey  []byte
	tokenTTL   time.Duration
	refreshTTL time.Duration
}

func NewUserService(userRepo repository.UserRepository, stager *staging.Manager, assets AssetStore, janitor AssetJanitor, cfg config.JWTConfig) UserService {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 240 * time.Hour
	}
	return &userService{
		assetPipeline: newAssetPipeline(stager, assets, janitor),
		userRepo:      userRepo,
		secretKey:     []byte(cfg.Secret),
		tokenTTL:      cfg.TTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

// 注册逻辑：1、用户名或邮箱已存在直接拒绝 2、暂存头像和封面图并校验类型 3、上传 4、密码加密后入库，入库失败删除已上传的图片
func (s *userService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	logCtx := logger.Log.WithField("username", in.Username)

	if _, err := s.userRepo.FindByLogin(ctx, in.Username, in.Email); err == nil {
		return nil, fmt.Errorf("用户名或邮箱已存在: %w", apperr.ErrConflict)
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var (
		avatarFile, coverFile *staging.Handle
		avatarRef, coverRef   *storage.AssetRef
		created               *model.User
	)
	defer func() {
		s.stager.Release(avatarFile)
		s.stager.Release(coverFile)
	}()

	saga := pipeline.New("register_user").Then(s.stageStep("stage_avatar", in.Avatar, &avatarFile))
	files := []staged{{&avatarFile, storage.KindImage}}
	if in.CoverImage != nil {
		saga.Then(s.stageStep("stage_cover_image", *in.CoverImage, &coverFile))
		files = append(files, staged{&coverFile, storage.KindImage})
	}
	saga.Then(s.checkStep(files...)).
		Then(s.uploadStep("upload_avatar", &avatarFile, storage.KindImage, &avatarRef))
	if in.CoverImage != nil {
		saga.Then(s.uploadStep("upload_cover_image", &coverFile, storage.KindImage, &coverRef))
	}
	saga.Then(pipeline.Step{
		Name: "persist",
		Run: func(ctx context.Context) error {
			user := &model.User{
				Username:         in.Username,
				Password:         string(hashedPassword),
				FullName:         in.FullName,
				Email:            in.Email,
				Avatar:           avatarRef.URL,
				AvatarExternalID: avatarRef.ExternalID,
			}
			if coverRef != nil {
				user.CoverImage = coverRef.URL
				user.CoverImageExternalID = coverRef.ExternalID
			}
			if err := s.userRepo.Create(ctx, user); err != nil {
				return err
			}
			created = user
			return nil
		},
	})

	if err := saga.Run(ctx); err != nil {
		logCtx.WithError(err).Error("用户注册失败")
		return nil, err
	}
	logCtx.WithField("user_id", created.ID).Info("用户注册成功")
	return created, nil
}

// 登录逻辑：1、按用户名或邮箱找用户 2、加密后密码和输入密码比对 3、签发一对新令牌
func (s *userService) Login(ctx context.Context, username, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.FindByLogin(ctx, username, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(ctx, user)
}

// issueTokens access token 无状态；refresh token 的 jti 落库，刷新时必须和库里一致，用过一次就作废
func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenPair, error) {
	now := time.Now()
	// token对象的Payload，不能将密码放在其中，Payload不加密
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"typ":      TokenTypeAccess,
		"exp":      now.Add(s.tokenTTL).Unix(),
		"iat":      now.Unix(),
	})
	accessToken, err := access.SignedString(s.secretKey)
	if err != nil {
		return nil, err
	}

	jti := uuid.NewString()
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"typ":     TokenTypeRefresh,
		"jti":     jti,
		"exp":     now.Add(s.refreshTTL).Unix(),
		"iat":     now.Unix(),
	})
	refreshToken, err := refresh.SignedString(s.secretKey)
	if err != nil {
		return nil, err
	}

	user.RefreshTokenID = jti
	if err := s.userRepo.Update(ctx, user, "refresh_token_id"); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshToken 1、验签并确认是refresh类型 2、jti必须是库里当前那一个 3、轮换出一对新令牌
func (s *userService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidRefreshToken
	}
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("非预期的签名方法")
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidRefreshToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}
	userID, ok := claims["user_id"].(float64)
	jti, _ := claims["jti"].(string)
	if !ok || userID <= 0 || jti == "" {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(ctx, uint64(userID))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if user.RefreshTokenID == "" || user.RefreshTokenID != jti {
		logger.Log.WithField("user_id", user.ID).Warn("refresh token 已使用或已登出")
		return nil, ErrInvalidRefreshToken
	}
	return s.issueTokens(ctx, user)
}

// Logout 清掉库里的refresh token，已签发的access token等自然过期
func (s *userService) Logout(ctx context.Context, userID uint64) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.RefreshTokenID = ""
	return s.userRepo.Update(ctx, user, "refresh_token_id")
}

func (s *userService) GetCurrentUser(ctx context.Context, userID uint64) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *userService) UpdateAccountDetails(ctx context.Context, userID uint64, fullName, email string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, apperr.Validation("full name and email are required")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.FullName = fullName
	user.Email = email
	if err := s.userRepo.Update(ctx, user, "full_name", "email"); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword 旧密码不对返回 ErrValidation；改密码后refresh token一并作废
func (s *userService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return apperr.Validation("old and new password are required")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return apperr.Validation("invalid password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	user.RefreshTokenID = ""
	return s.userRepo.Update(ctx, user, "password", "refresh_token_id")
}

func (s *userService) UpdateAvatar(ctx context.Context, userID uint64, up *staging.Upload) (*model.User, error) {
	return s.replaceImage(ctx, userID, up, "avatar")
}

func (s *userService) UpdateCoverImage(ctx context.Context, userID uint64, up *staging.Upload) (*model.User, error) {
	return s.replaceImage(ctx, userID, up, "cover_image")
}

// replaceImage 暂存 -> 校验 -> 上传新图 -> 写库 -> 尽力删除旧图。写库失败删除新图，旧图不动
func (s *userService) replaceImage(ctx context.Context, userID uint64, up *staging.Upload, column string) (*model.User, error) {
	if !present(up) {
		return nil, apperr.Validation("%s file is missing", column)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	logCtx := logger.Log.WithField("user_id", userID).WithField("column", column)

	var (
		file     *staging.Handle
		ref      *storage.AssetRef
		previous string
	)
	defer func() { s.stager.Release(file) }()

	err = pipeline.New("replace_"+column).
		Then(s.stageStep("stage_"+column, *up, &file)).
		Then(s.checkStep(staged{&file, storage.KindImage})).
		Then(s.uploadStep("upload_"+column, &file, storage.KindImage, &ref)).
		Then(pipeline.Step{
			Name: "persist",
			Run: func(ctx context.Context) error {
				if column == "avatar" {
					previous = user.AvatarExternalID
					user.Avatar, user.AvatarExternalID = ref.URL, ref.ExternalID
					return s.userRepo.Update(ctx, user, "avatar", "avatar_external_id")
				}
				previous = user.CoverImageExternalID
				user.CoverImage, user.CoverImageExternalID = ref.URL, ref.ExternalID
				return s.userRepo.Update(ctx, user, "cover_image", "cover_image_external_id")
			},
		}).
		Run(ctx)
	if err != nil {
		logCtx.WithError(err).Error("更新用户图片失败")
		return nil, err
	}

	// 新图已经落库，旧图最后删
	if previous != "" && previous != ref.ExternalID {
		s.discard(context.WithoutCancel(ctx), previous, storage.KindImage)
	}
	logCtx.Info("用户图片更新成功")
	return user, nil
}
