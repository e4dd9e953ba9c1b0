package account

import (
	"context"
	"strings"

	"github.com/sportifyhq/roster/internal/domain/user"
	"github.com/sportifyhq/roster/internal/usecase"
)

// InsecureVerifier treats the bearer token itself as the user id. Dev and
// seed-data mode only; never enable against real traffic.
type InsecureVerifier struct{}

func NewInsecureVerifier() *InsecureVerifier {
	return &InsecureVerifier{}
}

func (v *InsecureVerifier) VerifyToken(_ context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, usecase.ErrUnauthorized
	}

	return user.Principal{UserID: token, DisplayName: token}, nil
}
