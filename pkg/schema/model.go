package schema

import "time"

// CommType is the kind of a Communication node.
type CommType string

const (
	CommCall CommType = "CALL"
	CommSMS  CommType = "SMS"
)

// SMSDurationSentinel is the duration value that marks a row as an SMS.
const SMSDurationSentinel = "SMS"

// CommTypeForDuration derives the Communication type from the raw duration
// field. Only the literal sentinel "SMS" yields an SMS.
func CommTypeForDuration(duration string) CommType {
	if duration == SMSDurationSentinel {
		return CommSMS
	}
	return CommCall
}

// Record is one validated call-detail row, ready to be written as a single
// merge-or-create mutation. The csv tags name the upload column each field
// comes from.
type Record struct {
	Timestamp time.Time `csv:"timestamp_str" validate:"required"`
	Type      CommType  `csv:"duration_str" validate:"required,oneof=CALL SMS"`
	Duration  string    `csv:"duration_str"`
	Caller    string    `csv:"caller_num" validate:"required"`
	Callee    string    `csv:"callee_num" validate:"required"`
	IMEI      string    `csv:"imei" validate:"required"`
	TowerName string    `csv:"tower_name" validate:"required"`

	// Tower coordinates are only applied when the tower is created. A nil
	// coordinate is left unset.
	TowerLongitude any `csv:"tower_long"`
	TowerLatitude  any `csv:"tower_lat"`
}

// ListingSetCreate is the caller-supplied part of a new listing set.
type ListingSetCreate struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// ListingSet is a named, owned batch of ingested communication records.
type ListingSet struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	OwnerUsername string    `json:"owner_username"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Roles understood by the transport layer.
const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

// User is an account in the user directory. Only the username matters to the
// graph core; the rest belongs to the authentication collaborator.
type User struct {
	Username     string `json:"username"`
	FullName     string `json:"full_name,omitempty"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	IsActive     bool   `json:"is_active"`
}
