package credentials

import (
	"context"
	"fmt"
	"sync"

	"github.com/roomdesk/roomdesk/internal/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Provider hands out currently-valid credentials for external calendar
// providers, refreshing expired access tokens through the provider's
// OAuth2 endpoint. It is the only writer of credential records.
//
// Refresh failures are never surfaced as errors: a broken calendar
// connection degrades to "not connected" so that display reads keep
// working with empty results.
type Provider struct {
	repo    Repository
	configs map[string]*oauth2.Config
	clock   utils.Clock

	// one mutex per provider so concurrent refreshes against the same
	// refresh token are serialized (refresh-token rotation would otherwise
	// invalidate the token for one of the two callers)
	mu      sync.Mutex
	refresh map[string]*sync.Mutex
}

func NewProvider(repo Repository, configs map[string]*oauth2.Config) *Provider {
	return &Provider{
		repo:    repo,
		configs: configs,
		clock:   utils.SystemClock{},
		refresh: map[string]*sync.Mutex{},
	}
}

// NewProviderWithClock is used by tests to control expiry evaluation.
func NewProviderWithClock(repo Repository, configs map[string]*oauth2.Config, clock utils.Clock) *Provider {
	p := NewProvider(repo, configs)
	p.clock = clock
	return p
}

// ValidCredential returns a usable credential for the provider, or nil when
// the provider is not connected or the credential could not be refreshed.
// The error return is reserved for storage failures.
func (p *Provider) ValidCredential(ctx context.Context, provider string) (*Credential, error) {
	lock := p.refreshLock(provider)
	lock.Lock()
	defer lock.Unlock()

	credential, err := p.repo.Get(ctx, provider)
	if err != nil {
		return nil, err
	}
	if credential == nil {
		log.Debugf("no %s credential stored, provider is not connected", provider)
		return nil, nil
	}

	if !credential.Expired(p.clock.Now()) {
		return credential, nil
	}

	if credential.RefreshToken == "" {
		log.Debugf("%s access token expired and no refresh token is stored", provider)
		return nil, nil
	}

	refreshed, err := p.refreshCredential(ctx, provider, credential)
	if err != nil {
		log.Warnf("failed to refresh %s credential: %v", provider, err)
		return nil, nil
	}
	return refreshed, nil
}

func (p *Provider) refreshCredential(ctx context.Context, provider string, credential *Credential) (*Credential, error) {
	oauthConfig, ok := p.configs[provider]
	if !ok {
		return nil, fmt.Errorf("no oauth configuration registered for provider %s", provider)
	}

	token, err := oauthConfig.TokenSource(ctx, credential.Token()).Token()
	if err != nil {
		return nil, err
	}

	refreshed := Credential{
		Provider:     provider,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry.UTC(),
		Scope:        credential.Scope,
	}
	// keep the previous refresh token when the provider did not rotate it
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = credential.RefreshToken
	}

	if err := p.repo.Store(ctx, refreshed); err != nil {
		return nil, err
	}
	log.Debugf("refreshed %s credential, new expiry: %s", provider, refreshed.Expiry)
	return &refreshed, nil
}

// StoreToken persists a token obtained from an OAuth authorization flow.
// It is the single write path into credential storage besides refresh.
func (p *Provider) StoreToken(ctx context.Context, provider string, token *oauth2.Token, scope string) error {
	lock := p.refreshLock(provider)
	lock.Lock()
	defer lock.Unlock()

	credential := Credential{
		Provider:     provider,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry.UTC(),
		Scope:        scope,
	}
	if credential.RefreshToken == "" {
		existing, err := p.repo.Get(ctx, provider)
		if err != nil {
			return err
		}
		if existing != nil {
			credential.RefreshToken = existing.RefreshToken
		}
	}
	return p.repo.Store(ctx, credential)
}

// Disconnect removes the stored credential for the provider.
func (p *Provider) Disconnect(ctx context.Context, provider string) error {
	lock := p.refreshLock(provider)
	lock.Lock()
	defer lock.Unlock()

	return p.repo.Delete(ctx, provider)
}

// IsConnected reports whether any credential is stored for the provider,
// regardless of its expiry state.
func (p *Provider) IsConnected(ctx context.Context, provider string) (bool, error) {
	credential, err := p.repo.Get(ctx, provider)
	if err != nil {
		return false, err
	}
	return credential != nil, nil
}

func (p *Provider) refreshLock(provider string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.refresh[provider]
	if !ok {
		lock = &sync.Mutex{}
		p.refresh[provider] = lock
	}
	return lock
}
