package store

import (
	"context"

	"gorm.io/gorm"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

func (s *Store) FindProfileByPhone(ctx context.Context, phone string) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&p).Error; err != nil {
		return nil, translate("load profile", "profile", err)
	}
	return &p, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate("load profile", "profile", err)
	}
	return &p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) error {
	return translate("create profile", "profile", s.db.WithContext(ctx).Create(p).Error)
}

// ClaimTrial persists the trial subscription of p. It only matches a profile
// that never had a trial, so a profile gets one trial however often it asks.
func (s *Store) ClaimTrial(ctx context.Context, p *models.Profile) error {
	res := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND trial_used_at IS NULL", p.ID).
		Updates(map[string]interface{}{
			"subscription_active":     p.SubscriptionActive,
			"subscription_tier":       p.SubscriptionTier,
			"subscription_expires_at": p.SubscriptionExpiresAt,
			"trial_used_at":           p.TrialUsedAt,
		})
	if res.Error != nil {
		return apperr.Wrap("start trial", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetProfile(ctx, p.ID); err != nil {
			return err
		}
		return apperr.ErrTrialUnavailable
	}
	return nil
}

func (s *Store) SetLanguage(ctx context.Context, id, lang string) error {
	res := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Update("language", lang)
	if res.Error != nil {
		return apperr.Wrap("update language", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("profile")
	}
	return nil
}

// OnboardingUpdate is the profile part of the onboarding submission.
type OnboardingUpdate struct {
	FullName string
	Email    string
	Company  string
	PAN      string
}

// CompleteOnboarding marks the profile onboarded and creates the initial
// vehicle in one transaction. The conditional update lets exactly one
// concurrent submission win; the loser gets ErrAlreadyOnboarded and nothing
// is written.
func (s *Store) CompleteOnboarding(ctx context.Context, profileID string, u OnboardingUpdate, vehicle *models.Vehicle) (*models.Profile, error) {
	var out models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).
			Where("id = ? AND is_onboarded = ?", profileID, false).
			Updates(map[string]interface{}{
				"full_name":    u.FullName,
				"email":        u.Email,
				"company":      u.Company,
				"pan":          u.PAN,
				"is_onboarded": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var existing models.Profile
			if err := tx.Where("id = ?", profileID).First(&existing).Error; err != nil {
				return err
			}
			return apperr.ErrAlreadyOnboarded
		}

		vehicle.OwnerID = profileID
		if err := tx.Create(vehicle).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", profileID).First(&out).Error
	})
	if err != nil {
		return nil, translate("complete onboarding", "profile", err)
	}
	return &out, nil
}
