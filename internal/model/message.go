package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Message is a durable chat message. Text is stored encrypted; the chat
// service decrypts before broadcasting or returning history.
type Message struct {
	ID           int       `db:"id" json:"-"`
	ScheduleID   string    `db:"schedule_id" json:"scheduleId"`
	OccurrenceID string    `db:"occurrence_id" json:"occurrenceId"`
	SenderID     string    `db:"sender_id" json:"senderId"`
	SenderName   string    `db:"sender_name" json:"senderName"`
	SenderRole   string    `db:"sender_role" json:"senderRole"`
	PlatformID   string    `db:"platform_id" json:"platformId"`
	Text         string    `db:"text" json:"text"`
	SentAt       time.Time `db:"sent_at" json:"sentAt"`
}

type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollOptions is stored as a JSONB column.
type PollOptions []PollOption

func (p PollOptions) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PollOptions) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = nil
		return nil
	}
	return fmt.Errorf("cannot scan %T into PollOptions", src)
}

// Poll is the durable copy of a room poll; live vote counts are kept in the
// session store and flushed here on vote.
type Poll struct {
	PollID       string      `db:"poll_id" json:"pollId"`
	ScheduleID   string      `db:"schedule_id" json:"scheduleId"`
	OccurrenceID string      `db:"occurrence_id" json:"occurrenceId"`
	Question     string      `db:"question" json:"question"`
	Options      PollOptions `db:"options" json:"options"`
	CreatedBy    string      `db:"created_by" json:"createdBy"`
	IsActive     bool        `db:"is_active" json:"isActive"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
}
