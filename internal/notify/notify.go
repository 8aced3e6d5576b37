// Package notify fans room events out to connected clients over MQTT.
// Every occurrence has a room topic all members subscribe to; every member
// additionally has a personal topic for targeted messages (kicked, banned).
package notify

// Room event names. These are the client contract.
const (
	EventActiveParticipants = "active-participants"
	EventNewParticipant     = "new-participant"
	EventUserLeft           = "userLeft"
	EventUserKicked         = "userKicked"
	EventUserBanned         = "userBanned"
	EventKicked             = "kicked"
	EventBanned             = "banned"
	EventRoomClosed         = "roomClosed"
	EventMeetingEndSoon     = "meetingEndSoon"
	EventDeleteMessage      = "deleteMessage"
	EventNewChat            = "newChat"
	EventPoll               = "pollEvent"
	EventVote               = "voteEvent"
	EventPollStatus         = "pollStatusUpdate"
	EventHand               = "handEvent"
)

// Notifier is the outbound push channel. Implementations are best-effort:
// callers treat a failed publish as a logged degradation, never as a reason
// to abort the operation that produced the event.
type Notifier interface {
	Room(occurrenceID, event string, payload any) error
	Member(memberKey, event string, payload any) error
}
