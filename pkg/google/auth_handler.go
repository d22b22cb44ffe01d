package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/roomdesk/roomdesk/internal/config"
	"github.com/roomdesk/roomdesk/internal/rest"
	"github.com/roomdesk/roomdesk/pkg/calendar"
	"github.com/roomdesk/roomdesk/pkg/credentials"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

type authRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

type authStatus struct {
	Connected bool `json:"connected"`
}

// OAuthConfig builds the Google OAuth2 configuration shared by the auth
// handler and the credential provider's refresh path.
func OAuthConfig(cfg config.Application) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.Google.ClientId,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
		RedirectURL:  cfg.Host + "/api/integrations/google/auth/callback",
		Scopes:       []string{gcal.CalendarEventsScope, gcal.CalendarReadonlyScope},
	}
}

type Auth struct {
	credentials *credentials.Provider
	oauthConfig *oauth2.Config

	mu     sync.Mutex
	nonces map[string]struct{}
}

func NewAuth(credentialsProvider *credentials.Provider, oauthConfig *oauth2.Config) *Auth {
	return &Auth{
		credentials: credentialsProvider,
		oauthConfig: oauthConfig,
		nonces:      map[string]struct{}{},
	}
}

func (g *Auth) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stateNonce := uuid.New().String()
	finalUrl := r.URL.Query().Get("finalUrl")

	g.mu.Lock()
	g.nonces[stateNonce] = struct{}{}
	g.mu.Unlock()

	log.Tracef("Redirecting to Google auth URL with nonce: %s", stateNonce)
	u := g.oauthConfig.AuthCodeURL(finalUrl+"|"+stateNonce, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	w.WriteHeader(http.StatusOK)
	encodeErr := json.NewEncoder(w).Encode(authRedirect{
		RedirectUrl: u,
	})
	if encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}

func (g *Auth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	state := r.FormValue("state")

	parts := strings.SplitN(state, "|", 2)
	if len(parts) != 2 {
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}
	finalUrl := parts[0]
	nonce := parts[1]

	if !g.consumeNonce(nonce) {
		log.Errorf("unknown Google auth nonce: %s", nonce)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	token, err := g.oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		err := fmt.Errorf("unable to exchange code for token: %v", err)
		log.Error(err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	scope := strings.Join(g.oauthConfig.Scopes, " ")
	if err := g.credentials.StoreToken(r.Context(), calendar.ProviderGoogle, token, scope); err != nil {
		err := fmt.Errorf("unable to store Google auth token: %v", err)
		log.Error(err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}
	log.Debug("Successfully stored Google auth token")
	http.Redirect(w, r, finalUrl+"?success=true", http.StatusFound)
}

func (g *Auth) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := g.credentials.Disconnect(r.Context(), calendar.ProviderGoogle); err != nil {
		log.Errorf("failed to delete Google credential: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Failed to disconnect Google Calendar",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Auth) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	connected, err := g.credentials.IsConnected(r.Context(), calendar.ProviderGoogle)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(authStatus{Connected: connected}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (g *Auth) consumeNonce(nonce string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nonces[nonce]; !ok {
		return false
	}
	delete(g.nonces, nonce)
	return true
}
