package user

// Principal is a resolved identity attached to an authenticated request.
// This service never authenticates users itself; it consumes whatever the
// configured token verifier resolves.
type Principal struct {
	UserID      string
	DisplayName string
}
