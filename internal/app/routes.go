package app

import (
	"github.com/gorilla/mux"
	"github.com/roomdesk/roomdesk/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Rooms
	r.HandleFunc("/api/rooms", deps.RoomHandler.ListRooms).Methods("GET")
	r.HandleFunc("/api/rooms", deps.RoomHandler.CreateRoom).Methods("POST")
	r.HandleFunc("/api/rooms/{roomId}", deps.RoomHandler.GetRoom).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}", deps.RoomHandler.DeleteRoom).Methods("DELETE")

	// Schedules
	r.HandleFunc("/api/rooms/{roomId}/events", deps.SchedulerHandler.GetDaySchedule).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}/events/week", deps.SchedulerHandler.GetWeekSchedule).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}/events/month", deps.SchedulerHandler.GetMonthSchedule).Methods("GET")

	// Bookings
	r.HandleFunc("/api/rooms/{roomId}/bookings", deps.SchedulerHandler.BookRoom).Methods("POST")
	r.HandleFunc("/api/rooms/{roomId}/bookings/recurring", deps.SchedulerHandler.BookRecurring).Methods("POST")
	r.HandleFunc("/api/rooms/{roomId}/bookings/{eventId}", deps.SchedulerHandler.CancelBooking).Methods("DELETE")
	r.HandleFunc("/api/rooms/{roomId}/meetings/current/extend", deps.SchedulerHandler.ExtendCurrentMeeting).Methods("POST")
	r.HandleFunc("/api/rooms/{roomId}/meetings/current", deps.SchedulerHandler.EndCurrentMeeting).Methods("DELETE")

	// Google integration
	r.HandleFunc("/api/integrations/google/auth/login", deps.GoogleAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/logout", deps.GoogleAuth.OAuthLogout).Methods("DELETE")
	r.HandleFunc("/api/integrations/google/auth", deps.GoogleAuth.Status).Methods("GET")

	// Microsoft integration
	r.HandleFunc("/api/integrations/microsoft/auth/login", deps.MicrosoftAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/integrations/microsoft/auth/callback", deps.MicrosoftAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/integrations/microsoft/auth/logout", deps.MicrosoftAuth.OAuthLogout).Methods("DELETE")
	r.HandleFunc("/api/integrations/microsoft/auth", deps.MicrosoftAuth.Status).Methods("GET")
}
