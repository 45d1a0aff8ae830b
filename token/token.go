package token

import "time"

// Token is a bearer access token for the central node REST API.
// Devices present it on every request; the sync endpoints reject
// requests carrying an unknown, invalidated or expired token.
type Token struct {
	ID             any    `json:"-"               bson:"_id,omitempty"   db:"id"`
	Token          string `json:"token"           bson:"token"           db:"token"`
	Valid          bool   `json:"valid"           bson:"valid"           db:"valid"`
	ExpirationDate int64  `json:"expiration_date" bson:"expiration_date" db:"expiration_date"`
}

// Expired reports if the token expiration date passed at the given moment.
// ExpirationDate is kept in unix nanoseconds.
func (t Token) Expired(now time.Time) bool {
	return t.ExpirationDate < now.UnixNano()
}
