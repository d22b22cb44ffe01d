package room

// Room is a bookable physical room. CalendarId and Provider select which
// calendar backend serves it; a room without a provider uses the local
// event store.
type Room struct {
	Id         int
	Name       string
	CalendarId string
	Provider   string
}
