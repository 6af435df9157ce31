package auth

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
	"myfleet/internal/session"
	"myfleet/internal/store"
	"myfleet/internal/validation"
)

type OnboardingInput struct {
	FullName      string `json:"full_name" validate:"required,min=2,max=100"`
	VehicleNumber string `json:"vehicle_number" validate:"required,min=4,max=20,alphanum"`
	Company       string `json:"company" validate:"omitempty,max=100"`
	PAN           string `json:"pan" validate:"omitempty,len=10,alphanum"`
	Email         string `json:"email" validate:"omitempty,email"`
}

func (s *Service) validateOnboarding(in *OnboardingInput) error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.VehicleNumber = models.NormalizeRegistration(in.VehicleNumber)
	in.Company = strings.TrimSpace(in.Company)
	in.PAN = strings.ToUpper(strings.TrimSpace(in.PAN))
	in.Email = strings.TrimSpace(in.Email)

	if err := validation.Struct(in); err != nil {
		return err
	}
	switch s.identity {
	case IdentityEmail:
		if in.Email == "" {
			return apperr.Validation("email", "email is required")
		}
	default:
		if in.PAN == "" {
			return apperr.Validation("pan", "pan is required")
		}
	}
	return nil
}

// CompleteOnboarding records the profile details and registers the first
// vehicle. Both happen in one transaction; a second submission is rejected
// with ErrAlreadyOnboarded and creates nothing.
func (s *Service) CompleteOnboarding(ctx context.Context, profileID string, in OnboardingInput) (*models.Profile, error) {
	if err := s.validateOnboarding(&in); err != nil {
		return nil, err
	}

	vehicle := &models.Vehicle{
		RegistrationNumber: in.VehicleNumber,
		Model:              models.DefaultVehicleModel,
		Documents:          models.MissingDocuments(),
	}
	p, err := s.profiles.CompleteOnboarding(ctx, profileID, store.OnboardingUpdate{
		FullName: in.FullName,
		Email:    in.Email,
		Company:  in.Company,
		PAN:      in.PAN,
	}, vehicle)
	if err != nil {
		logrus.WithError(err).WithField("profile_id", profileID).Warn("Onboarding failed")
		return nil, err
	}

	if _, err := s.sessions.HandleAuthStateChange(ctx, session.Event{
		Kind:    session.ProfileUpdated,
		Session: session.Session{UserID: p.ID, Phone: p.Phone, Role: p.Role},
	}); err != nil {
		logrus.WithError(err).WithField("profile_id", p.ID).Warn("Profile update event not delivered")
	}

	logrus.WithFields(logrus.Fields{
		"profile_id": p.ID,
		"vehicle_id": vehicle.ID,
	}).Info("Onboarding completed")
	return p, nil
}
