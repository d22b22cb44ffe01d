package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/roomdesk/roomdesk/internal/config"
	"github.com/roomdesk/roomdesk/internal/utils"
	"github.com/roomdesk/roomdesk/pkg/calendar"
	"github.com/roomdesk/roomdesk/pkg/credentials"
	"github.com/roomdesk/roomdesk/pkg/google"
	"github.com/roomdesk/roomdesk/pkg/local"
	"github.com/roomdesk/roomdesk/pkg/microsoft"
	"github.com/roomdesk/roomdesk/pkg/room"
	"github.com/roomdesk/roomdesk/pkg/scheduler"
	"golang.org/x/oauth2"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	CredentialsRepo     credentials.Repository
	CredentialsProvider *credentials.Provider

	GoogleAuth    *google.Auth
	GoogleService google.Service

	MicrosoftAuth    *microsoft.Auth
	MicrosoftService microsoft.Service

	LocalEventRepo local.Repository
	LocalService   *local.Service

	RoomRepo    room.Repository
	RoomService room.Service
	RoomHandler *room.Handler

	SchedulerService scheduler.Service
	SchedulerHandler *scheduler.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = utils.SystemClock{}

	googleOAuth := google.OAuthConfig(cfg)
	microsoftOAuth := microsoft.OAuthConfig(cfg)

	deps.CredentialsRepo = credentials.NewRepository(db)
	deps.CredentialsProvider = credentials.NewProvider(deps.CredentialsRepo, map[string]*oauth2.Config{
		calendar.ProviderGoogle:    googleOAuth,
		calendar.ProviderMicrosoft: microsoftOAuth,
	})

	deps.GoogleAuth = google.NewAuth(deps.CredentialsProvider, googleOAuth)
	deps.GoogleService = google.NewService(deps.CredentialsProvider)

	deps.MicrosoftAuth = microsoft.NewAuth(deps.CredentialsProvider, microsoftOAuth)
	deps.MicrosoftService = microsoft.NewService(deps.CredentialsProvider)

	deps.LocalEventRepo = local.NewRepository(db)
	deps.LocalService = local.NewService(deps.LocalEventRepo)

	deps.RoomRepo = room.NewRepository(db)
	deps.RoomService = room.NewService(deps.RoomRepo)
	deps.RoomHandler = room.NewHandler(deps.RoomService)

	deps.SchedulerService = scheduler.NewService(deps.RoomService, deps.GoogleService, deps.MicrosoftService, deps.LocalService)
	deps.SchedulerHandler = scheduler.NewHandler(deps.SchedulerService)

	return deps
}
