package microsoft

import (
	"context"
	"net/http"

	"github.com/roomdesk/roomdesk/internal/utils"
	"github.com/roomdesk/roomdesk/pkg/calendar"
	"github.com/roomdesk/roomdesk/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

type Service interface {
	// Calendar returns an adapter bound to one Microsoft 365 calendar.
	// Fails with calendar.ErrProviderUnavailable when Microsoft is not connected.
	Calendar(ctx context.Context, calendarId string) (calendar.Calendar, error)
}

type ServiceImpl struct {
	credentials *credentials.Provider
	httpClient  *http.Client
	baseURL     string
	clock       utils.Clock
}

func NewService(credentialsProvider *credentials.Provider) *ServiceImpl {
	return &ServiceImpl{
		credentials: credentialsProvider,
		httpClient:  http.DefaultClient,
		baseURL:     graphBaseURL,
		clock:       utils.SystemClock{},
	}
}

// NewServiceWithBaseURL is used by tests to point the adapter at a fake
// Graph endpoint.
func NewServiceWithBaseURL(credentialsProvider *credentials.Provider, baseURL string) *ServiceImpl {
	s := NewService(credentialsProvider)
	s.baseURL = baseURL
	return s
}

func (s *ServiceImpl) Calendar(ctx context.Context, calendarId string) (calendar.Calendar, error) {
	credential, err := s.credentials.ValidCredential(ctx, calendar.ProviderMicrosoft)
	if err != nil {
		return nil, err
	}
	if credential == nil {
		log.Debug("Microsoft Calendar is not connected")
		return nil, calendar.ErrProviderUnavailable
	}

	return &Calendar{
		client:      s.httpClient,
		baseURL:     s.baseURL,
		accessToken: credential.AccessToken,
		calendarId:  calendarId,
		clock:       s.clock,
	}, nil
}
