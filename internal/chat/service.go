// Package chat serves in-room messaging, polls and hand raising. Recent
// messages live in a capped Redis list for fast history; a durable encrypted
// copy goes to Postgres for moderation and audit. Everything here is
// ephemeral room state and is purged by the termination cascade.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/model"
	"github.com/parleylabs/parley/internal/notify"
)

const (
	historyLimit = 50
	cacheTTL     = 9000 * time.Second
	handTTL      = 10800 * time.Second

	chatInterval = 300 * time.Millisecond
	pollInterval = 2 * time.Second

	maxPollOptions = 10
	minPollOptions = 2
)

type Service struct {
	store    db.Store
	rdb      *redis.Client
	cipher   *Cipher
	notifier notify.Notifier

	chatGate *gate
	pollGate *gate
}

func NewService(store db.Store, rdb *redis.Client, cipher *Cipher, notifier notify.Notifier) *Service {
	return &Service{
		store:    store,
		rdb:      rdb,
		cipher:   cipher,
		notifier: notifier,
		chatGate: newGate(chatInterval),
		pollGate: newGate(pollInterval),
	}
}

func chatKey(scheduleID, occurrenceID string) string {
	return fmt.Sprintf("chat:%s:%s", scheduleID, occurrenceID)
}

func handsKey(scheduleID, occurrenceID string) string {
	return fmt.Sprintf("hands:%s:%s", scheduleID, occurrenceID)
}

func votersKey(pollID string) string {
	return "poll:" + pollID + ":voters"
}

// SendMessage encrypts, caches, persists and broadcasts one chat message.
// The plaintext only ever crosses the wire inside the broadcast.
func (s *Service) SendMessage(ctx context.Context, msg model.Message) error {
	if msg.Text == "" {
		return fmt.Errorf("%w: empty message", errs.ErrValidation)
	}
	if !s.chatGate.Allow(msg.SenderID + ":" + msg.OccurrenceID) {
		return fmt.Errorf("%w: messages limited to one per %s", errs.ErrRateLimited, chatInterval)
	}

	plain := msg.Text
	enc, err := s.cipher.Encrypt(plain)
	if err != nil {
		return err
	}
	msg.Text = enc
	msg.SentAt = time.Now().UTC()

	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := chatKey(msg.ScheduleID, msg.OccurrenceID)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, historyLimit-1)
	pipe.Expire(ctx, key, cacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: cache message: %v", errs.ErrStoreUnavailable, err)
	}

	if err := s.store.InsertMessage(&msg); err != nil {
		log.Error().Err(err).Str("occurrence_id", msg.OccurrenceID).Msg("failed to persist message")
	}

	msg.Text = plain
	if err := s.notifier.Room(msg.OccurrenceID, notify.EventNewChat, msg); err != nil {
		log.Error().Err(err).Str("occurrence_id", msg.OccurrenceID).Msg("failed to broadcast message")
	}
	return nil
}

// History returns the cached recent messages in chronological order,
// decrypted. The cache is the only history source: once it expires the room
// starts blank, which matches the lifetime of a meeting.
func (s *Service) History(ctx context.Context, scheduleID, occurrenceID string) ([]model.Message, error) {
	raws, err := s.rdb.LRange(ctx, chatKey(scheduleID, occurrenceID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: chat history: %v", errs.ErrStoreUnavailable, err)
	}
	out := make([]model.Message, 0, len(raws))
	// LPUSH stores newest first; walk backwards for chronological order.
	for i := len(raws) - 1; i >= 0; i-- {
		var msg model.Message
		if err := json.Unmarshal([]byte(raws[i]), &msg); err != nil {
			log.Warn().Err(err).Msg("dropping malformed cached message")
			continue
		}
		plain, err := s.cipher.Decrypt(msg.Text)
		if err != nil {
			log.Warn().Err(err).Msg("dropping undecryptable cached message")
			continue
		}
		msg.Text = plain
		out = append(out, msg)
	}
	return out, nil
}

// CreatePoll opens a poll. Hosts only.
func (s *Service) CreatePoll(ctx context.Context, p model.Poll, creatorRole string) (*model.Poll, error) {
	if creatorRole != model.RoleHost && creatorRole != model.RoleCoHost {
		return nil, fmt.Errorf("%w: only hosts can create polls", errs.ErrNotAllowed)
	}
	if p.Question == "" {
		return nil, fmt.Errorf("%w: poll question is required", errs.ErrValidation)
	}
	if len(p.Options) < minPollOptions || len(p.Options) > maxPollOptions {
		return nil, fmt.Errorf("%w: polls need %d to %d options", errs.ErrValidation, minPollOptions, maxPollOptions)
	}
	if !s.pollGate.Allow(p.CreatedBy + ":" + p.OccurrenceID) {
		return nil, fmt.Errorf("%w: polls limited to one per %s", errs.ErrRateLimited, pollInterval)
	}

	p.PollID = uuid.NewString()
	p.IsActive = true
	p.CreatedAt = time.Now().UTC()
	for i := range p.Options {
		p.Options[i].Votes = 0
	}
	if err := s.store.InsertPoll(&p); err != nil {
		return nil, err
	}
	if err := s.notifier.Room(p.OccurrenceID, notify.EventPoll, p); err != nil {
		log.Error().Err(err).Str("poll_id", p.PollID).Msg("failed to broadcast poll")
	}
	return &p, nil
}

// Vote records one vote per participant per poll. The voter set in Redis is
// the idempotency guard; it is only consumed once the vote is known to be
// valid, so a bad option index never burns the participant's single vote.
func (s *Service) Vote(ctx context.Context, occurrenceID, pollID, voterID string, optionIndex int) error {
	p, err := s.store.GetPoll(pollID)
	if err != nil {
		return err
	}
	if p == nil || p.OccurrenceID != occurrenceID {
		return fmt.Errorf("%w: poll %s", errs.ErrNotFound, pollID)
	}
	if !p.IsActive {
		return fmt.Errorf("%w: poll is closed", errs.ErrValidation)
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return fmt.Errorf("%w: option index out of range", errs.ErrValidation)
	}
	added, err := s.rdb.SAdd(ctx, votersKey(pollID), voterID).Result()
	if err != nil {
		return fmt.Errorf("%w: record voter: %v", errs.ErrStoreUnavailable, err)
	}
	if added == 0 {
		return fmt.Errorf("%w: already voted", errs.ErrAlreadyExists)
	}
	s.rdb.Expire(ctx, votersKey(pollID), cacheTTL)

	if err := s.store.RecordVote(pollID, optionIndex); err != nil {
		return err
	}
	err = s.notifier.Room(occurrenceID, notify.EventVote, map[string]any{
		"pollId":      pollID,
		"optionIndex": optionIndex,
		"voterId":     voterID,
	})
	if err != nil {
		log.Error().Err(err).Str("poll_id", pollID).Msg("failed to broadcast vote")
	}
	return nil
}

// SetPollStatus opens or closes a poll. Hosts only.
func (s *Service) SetPollStatus(ctx context.Context, occurrenceID, pollID, role string, active bool) error {
	if role != model.RoleHost && role != model.RoleCoHost {
		return fmt.Errorf("%w: only hosts can change poll status", errs.ErrNotAllowed)
	}
	if err := s.store.SetPollActive(pollID, active); err != nil {
		return err
	}
	err := s.notifier.Room(occurrenceID, notify.EventPollStatus, map[string]any{
		"pollId":   pollID,
		"isActive": active,
	})
	if err != nil {
		log.Error().Err(err).Str("poll_id", pollID).Msg("failed to broadcast poll status")
	}
	return nil
}

type RaisedHand struct {
	ParticipantID string `json:"participantId"`
	Username      string `json:"username"`
}

// RaiseHand adds the participant to the room's raised-hand set, ordered by
// raise time.
func (s *Service) RaiseHand(ctx context.Context, scheduleID, occurrenceID, participantID, username string) error {
	member, err := json.Marshal(RaisedHand{ParticipantID: participantID, Username: username})
	if err != nil {
		return err
	}
	key := handsKey(scheduleID, occurrenceID)
	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(time.Now().UnixMilli()), Member: string(member)})
	pipe.Expire(ctx, key, handTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: raise hand: %v", errs.ErrStoreUnavailable, err)
	}
	return s.broadcastHand(occurrenceID, participantID, username, true)
}

func (s *Service) LowerHand(ctx context.Context, scheduleID, occurrenceID, participantID, username string) error {
	member, err := json.Marshal(RaisedHand{ParticipantID: participantID, Username: username})
	if err != nil {
		return err
	}
	if err := s.rdb.ZRem(ctx, handsKey(scheduleID, occurrenceID), string(member)).Err(); err != nil {
		return fmt.Errorf("%w: lower hand: %v", errs.ErrStoreUnavailable, err)
	}
	return s.broadcastHand(occurrenceID, participantID, username, false)
}

func (s *Service) broadcastHand(occurrenceID, participantID, username string, raised bool) error {
	err := s.notifier.Room(occurrenceID, notify.EventHand, map[string]any{
		"participantId": participantID,
		"username":      username,
		"raised":        raised,
	})
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("failed to broadcast hand event")
	}
	return nil
}

// RaisedHands lists raised hands in the order they were raised.
func (s *Service) RaisedHands(ctx context.Context, scheduleID, occurrenceID string) ([]RaisedHand, error) {
	members, err := s.rdb.ZRange(ctx, handsKey(scheduleID, occurrenceID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: raised hands: %v", errs.ErrStoreUnavailable, err)
	}
	out := make([]RaisedHand, 0, len(members))
	for _, m := range members {
		var h RaisedHand
		if err := json.Unmarshal([]byte(m), &h); err != nil {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// PurgeMemberMessages removes one sender's messages from the cache and the
// durable store; used when a participant is banned. The remaining cache is
// rebuilt preserving order.
func (s *Service) PurgeMemberMessages(ctx context.Context, scheduleID, occurrenceID, senderID string) error {
	key := chatKey(scheduleID, occurrenceID)
	raws, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("%w: purge member messages: %v", errs.ErrStoreUnavailable, err)
	}
	keep := make([]any, 0, len(raws))
	// Walk backwards so a re-push via LPUSH restores newest-first order.
	for i := len(raws) - 1; i >= 0; i-- {
		var msg model.Message
		if err := json.Unmarshal([]byte(raws[i]), &msg); err != nil || msg.SenderID == senderID {
			continue
		}
		keep = append(keep, raws[i])
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(keep) > 0 {
		pipe.LPush(ctx, key, keep...)
		pipe.Expire(ctx, key, cacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: rewrite chat cache: %v", errs.ErrStoreUnavailable, err)
	}

	if err := s.store.DeleteMemberMessages(scheduleID, occurrenceID, senderID); err != nil {
		return err
	}
	err = s.notifier.Room(occurrenceID, notify.EventDeleteMessage, map[string]string{
		"senderId": senderID,
	})
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("failed to broadcast message deletion")
	}
	return nil
}

// PurgeMessages drops the room's chat cache and durable copies.
func (s *Service) PurgeMessages(ctx context.Context, scheduleID, occurrenceID string) error {
	if err := s.rdb.Del(ctx, chatKey(scheduleID, occurrenceID)).Err(); err != nil {
		return fmt.Errorf("%w: purge chat cache: %v", errs.ErrStoreUnavailable, err)
	}
	return s.store.DeleteMessages(scheduleID, occurrenceID)
}

// PurgePolls removes the room's polls. Voter guard sets are left to expire.
func (s *Service) PurgePolls(ctx context.Context, scheduleID, occurrenceID string) error {
	return s.store.DeletePolls(scheduleID, occurrenceID)
}

// PurgeRaisedHands clears the raised-hand set.
func (s *Service) PurgeRaisedHands(ctx context.Context, scheduleID, occurrenceID string) error {
	if err := s.rdb.Del(ctx, handsKey(scheduleID, occurrenceID)).Err(); err != nil {
		return fmt.Errorf("%w: purge raised hands: %v", errs.ErrStoreUnavailable, err)
	}
	return nil
}
