// README: Shared identifiers and the authenticated caller passed between layers.
package types

// ID is an internal identifier (UUID text) for users, trips, reservations and incidents.
type ID string

func (id ID) String() string { return string(id) }

// Credential is what a token verifier vouches for. Subject is the external
// provider's id (Firebase uid, or "local:<uuid>" for password accounts).
type Credential struct {
	Subject string
	Email   string
	Name    string
}

// Identity is a verified credential resolved to an internal user.
// Ownership checks compare UserID only.
type Identity struct {
	UserID     ID
	ExternalID string
	Email      string
	Name       string
}
