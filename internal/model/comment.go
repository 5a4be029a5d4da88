package model

type Comment struct {
	BaseModel
	VideoID uint64 `gorm:"not null;index"`
	UserID  uint64 `gorm:"not null;index"`
	Content string `gorm:"type:text;not null"`

	User User `gorm:"foreignKey:UserID"`
}

func (Comment) TableName() string {
	return "comments"
}
