package google

import (
	"context"
	"fmt"

	"github.com/roomdesk/roomdesk/internal/utils"
	"github.com/roomdesk/roomdesk/pkg/calendar"
	"github.com/roomdesk/roomdesk/pkg/credentials"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type Service interface {
	// Calendar returns an adapter bound to one Google calendar.
	// Fails with calendar.ErrProviderUnavailable when Google is not connected.
	Calendar(ctx context.Context, calendarId string) (calendar.Calendar, error)
}

type ServiceImpl struct {
	credentials *credentials.Provider
	clock       utils.Clock
}

func NewService(credentialsProvider *credentials.Provider) *ServiceImpl {
	return &ServiceImpl{credentials: credentialsProvider, clock: utils.SystemClock{}}
}

func (s *ServiceImpl) Calendar(ctx context.Context, calendarId string) (calendar.Calendar, error) {
	service, err := s.prepareGoogleService(ctx)
	if err != nil {
		return nil, err
	}
	return newGoogleCalendar(service, calendarId, s.clock), nil
}

func (s *ServiceImpl) prepareGoogleService(ctx context.Context) (*gcal.Service, error) {
	credential, err := s.credentials.ValidCredential(ctx, calendar.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	if credential == nil {
		log.Debug("Google Calendar is not connected")
		return nil, calendar.ErrProviderUnavailable
	}

	service, err := gcal.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(credential.Token())))
	if err != nil {
		err := fmt.Errorf("unable to create Google Calendar client: %v", err)
		log.Error(err)
		return nil, fmt.Errorf("%w: %v", calendar.ErrProviderUnavailable, err)
	}
	return service, nil
}
