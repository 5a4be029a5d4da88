package service

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/repository"
	"context"
)

type SubscriptionService interface {
	// ToggleSubscription 返回操作后是否处于订阅状态
	ToggleSubscription(ctx context.Context, subscriberID, channelID uint64) (bool, error)
}

type subscriptionService struct {
	subRepo  repository.SubscriptionRepository
	userRepo repository.UserRepository
}

func NewSubscriptionService(subRepo repository.SubscriptionRepository, userRepo repository.UserRepository) SubscriptionService {
	return &subscriptionService{subRepo: subRepo, userRepo: userRepo}
}

func (s *subscriptionService) ToggleSubscription(ctx context.Context, subscriberID, channelID uint64) (bool, error) {
	if subscriberID == 0 || channelID == 0 {
		return false, apperr.Validation("invalid channel id")
	}
	if subscriberID == channelID {
		return false, apperr.Validation("cannot subscribe to your own channel")
	}
	if _, err := s.userRepo.FindByID(ctx, channelID); err != nil {
		return false, err
	}
	return s.subRepo.Toggle(ctx, subscriberID, channelID)
}
