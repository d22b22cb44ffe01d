package credentials

import "context"

type StubRepository struct {
	Credentials map[string]Credential
}

func NewStubRepository() *StubRepository {
	return &StubRepository{Credentials: map[string]Credential{}}
}

func (s *StubRepository) Get(_ context.Context, provider string) (*Credential, error) {
	credential, ok := s.Credentials[provider]
	if !ok {
		return nil, nil
	}
	return &credential, nil
}

func (s *StubRepository) Store(_ context.Context, credential Credential) error {
	s.Credentials[credential.Provider] = credential
	return nil
}

func (s *StubRepository) Delete(_ context.Context, provider string) error {
	delete(s.Credentials, provider)
	return nil
}
