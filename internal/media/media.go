// Package media wraps the external real-time media transport: signed join
// capabilities for clients and an admin API for room teardown. The transport
// itself (tracks, codecs) is entirely out of scope.
package media

import "context"

// TokenParams describe one participant's entry into one room.
type TokenParams struct {
	Room       string
	Identity   string
	Username   string
	Role       string
	PlatformID string
}

// RoomService is the contract with the media transport. DeleteRoom and
// RemoveParticipant must tolerate "already absent" as non-fatal.
type RoomService interface {
	JoinToken(p TokenParams) (string, error)
	ClientURL() string
	DeleteRoom(ctx context.Context, room string) error
	RemoveParticipant(ctx context.Context, room, identity string) error
}
