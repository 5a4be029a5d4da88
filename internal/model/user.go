package model

type User struct {
	BaseModel
	Username   string `gorm:"unique;not null" json:"username"`
	Password   string `gorm:"not null" json:"-"`
	FullName   string `json:"full_name"`
	Email      string `gorm:"index" json:"email"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"cover_image"`
	// 远端文件的ID，替换头像或封面图时用来删除旧文件
	AvatarExternalID     string `json:"-"`
	CoverImageExternalID string `json:"-"`
	// 当前有效的refresh token的jti，登出后清空
	RefreshTokenID string `gorm:"size:64" json:"-"`
}
