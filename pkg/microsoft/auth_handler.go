package microsoft

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
	microsoftoauth "golang.org/x/oauth2/microsoft"
)

type authRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

type authStatus struct {
	Connected bool `json:"connected"`
}

// OAuthConfig builds the Microsoft OAuth2 configuration shared by the auth
// handler and the credential provider's refresh path. The tenant defaults
// to "common" for multi-tenant applications.
func OAuthConfig(cfg config.Application) *oauth2.Config {
	tenant := cfg.Microsoft.TenantId
	if tenant == "" {
		tenant = "common"
	}
	return &oauth2.Config{
		ClientID:     cfg.Microsoft.ClientId,
		ClientSecret: cfg.Microsoft.ClientSecret,
		Endpoint:     microsoftoauth.AzureADEndpoint(tenant),
		RedirectURL:  cfg.Host + "/api/integrations/microsoft/auth/callback",
		Scopes: []string{
			"offline_access",
			"https://graph.microsoft.com/Calendars.ReadWrite",
			"https://graph.microsoft.com/User.Read",
		},
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

func (m *Auth) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stateNonce := uuid.New().String()
	finalUrl := r.URL.Query().Get("finalUrl")

	m.mu.Lock()
	m.nonces[stateNonce] = struct{}{}
	m.mu.Unlock()

	log.Tracef("Redirecting to Microsoft auth URL with nonce: %s", stateNonce)
	u := m.oauthConfig.AuthCodeURL(finalUrl + "|" + stateNonce)

	w.WriteHeader(http.StatusOK)
	encodeErr := json.NewEncoder(w).Encode(authRedirect{
		RedirectUrl: u,
	})
	if encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}

func (m *Auth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	state := r.FormValue("state")

	parts := strings.SplitN(state, "|", 2)
	if len(parts) != 2 {
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}
	finalUrl := parts[0]
	nonce := parts[1]

	if !m.consumeNonce(nonce) {
		log.Errorf("unknown Microsoft auth nonce: %s", nonce)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	token, err := m.oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		err := fmt.Errorf("unable to exchange code for token: %v", err)
		log.Error(err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	scope := strings.Join(m.oauthConfig.Scopes, " ")
	if err := m.credentials.StoreToken(r.Context(), calendar.ProviderMicrosoft, token, scope); err != nil {
		err := fmt.Errorf("unable to store Microsoft auth token: %v", err)
		log.Error(err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}
	log.Debug("Successfully stored Microsoft auth token")
	http.Redirect(w, r, finalUrl+"?success=true", http.StatusFound)
}

func (m *Auth) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := m.credentials.Disconnect(r.Context(), calendar.ProviderMicrosoft); err != nil {
		log.Errorf("failed to delete Microsoft credential: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Failed to disconnect Microsoft Calendar",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Auth) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	connected, err := m.credentials.IsConnected(r.Context(), calendar.ProviderMicrosoft)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(authStatus{Connected: connected}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (m *Auth) consumeNonce(nonce string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nonces[nonce]; !ok {
		return false
	}
	delete(m.nonces, nonce)
	return true
}
