package session

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
)

// Principal yields the authenticated user the verification is filed under.
// The session never interprets it.
type Principal interface {
	PrincipalID(ctx context.Context) (string, error)
}

type StaticPrincipal string

func (p StaticPrincipal) PrincipalID(context.Context) (string, error) {
	id := strings.TrimSpace(string(p))
	if id == "" {
		return "", errors.New("no authenticated principal")
	}
	return id, nil
}

// Sink persists a finished verification. It is called once per verification
// after the session reaches Ready.
type Sink interface {
	SaveAuthorization(ctx context.Context, principal string, record signing.VerificationRecord, permits []signing.PermitResult) error
}
