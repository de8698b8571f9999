package shares

import "github.com/google/uuid"

// SecretProvider issues bearer secrets for newly created shares.
type SecretProvider interface {
	NewSecret() (string, error)
}

type uuidSecretProvider struct{}

// NewUUIDSecretProvider constructs a SecretProvider backed by random UUIDv4 values.
func NewUUIDSecretProvider() SecretProvider {
	return &uuidSecretProvider{}
}

func (p *uuidSecretProvider) NewSecret() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
