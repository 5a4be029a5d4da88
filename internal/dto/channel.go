package dto

import "Orion_Tube/internal/model"

// ChannelView 频道主页
type ChannelView struct {
	ID                        uint64 `json:"id"`
	Username                  string `json:"username"`
	FullName                  string `json:"full_name"`
	Email                     string `json:"email"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"cover_image"`
	SubscribersCount          int64  `json:"subscribers_count"`
	ChannelsSubscribedToCount int64  `json:"channels_subscribed_to_count"`
	IsSubscribed              bool   `json:"is_subscribed"`
}

func ToChannelView(u *model.User, subscribers, subscribedTo int64, isSubscribed bool) *ChannelView {
	return &ChannelView{
		ID:                        u.ID,
		Username:                  u.Username,
		FullName:                  u.FullName,
		Email:                     u.Email,
		Avatar:                    u.Avatar,
		CoverImage:                u.CoverImage,
		SubscribersCount:          subscribers,
		ChannelsSubscribedToCount: subscribedTo,
		IsSubscribed:              isSubscribed,
	}
}
