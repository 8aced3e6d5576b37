// Package session is the shared registry of who is connected to which room.
// It lives entirely in Redis so every coordinator instance sees the same
// membership; nothing here is a source of truth for historical attendance.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/errs"
)

// TTL bounds how long a crashed coordinator can leave orphaned membership
// behind. Refreshed on activity via Touch.
const TTL = 3 * time.Hour

// Session is one connected participant's presence in one occurrence.
type Session struct {
	MemberKey     string    `json:"memberKey"`
	ParticipantID string    `json:"participantId"`
	Username      string    `json:"username"`
	PlatformID    string    `json:"platformId"`
	ScheduleID    string    `json:"scheduleId"`
	OccurrenceID  string    `json:"occurrenceId"`
	ConnectionID  string    `json:"connectionId"`
	Role          string    `json:"role"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// MemberKey builds the composite key identifying a participant within one
// occurrence on one platform. The key is opaque: sessions carry their parts
// as fields, so it is never split back apart.
func MemberKey(occurrenceID, participantID, platformID string) string {
	return fmt.Sprintf("%s_%s_%s", participantID, occurrenceID, platformID)
}

type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func sessionKey(memberKey string) string   { return "session:" + memberKey }
func membersKey(occurrenceID string) string { return "room:" + occurrenceID + ":members" }
func connKey(connectionID string) string   { return "conn:" + connectionID }

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", errs.ErrStoreUnavailable, op, err)
}

// Add registers a session under all three relations in one round trip.
func (s *Store) Add(ctx context.Context, sess Session) error {
	if sess.MemberKey == "" {
		sess.MemberKey = MemberKey(sess.OccurrenceID, sess.ParticipantID, sess.PlatformID)
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.MemberKey), raw, TTL)
	pipe.SAdd(ctx, membersKey(sess.OccurrenceID), sess.MemberKey)
	pipe.Expire(ctx, membersKey(sess.OccurrenceID), TTL)
	if sess.ConnectionID != "" {
		pipe.Set(ctx, connKey(sess.ConnectionID), sess.MemberKey, TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("add session", err)
	}
	return nil
}

// Get returns the session for memberKey, or nil when absent.
func (s *Store) Get(ctx context.Context, memberKey string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(memberKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get session", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetByConnection resolves a transport connection back to its session; used
// by the disconnect path, which only knows the connection id.
func (s *Store) GetByConnection(ctx context.Context, connectionID string) (*Session, error) {
	memberKey, err := s.rdb.Get(ctx, connKey(connectionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get connection", err)
	}
	return s.Get(ctx, memberKey)
}

// Remove deletes a session from all relations and returns it. Removing an
// absent session is not an error.
func (s *Store) Remove(ctx context.Context, memberKey string) (*Session, error) {
	sess, err := s.Get(ctx, memberKey)
	if err != nil || sess == nil {
		return nil, err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(memberKey))
	pipe.SRem(ctx, membersKey(sess.OccurrenceID), memberKey)
	if sess.ConnectionID != "" {
		pipe.Del(ctx, connKey(sess.ConnectionID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, storeErr("remove session", err)
	}
	return sess, nil
}

// RemoveByConnection is Remove keyed by transport connection.
func (s *Store) RemoveByConnection(ctx context.Context, connectionID string) (*Session, error) {
	sess, err := s.GetByConnection(ctx, connectionID)
	if err != nil || sess == nil {
		return nil, err
	}
	return s.Remove(ctx, sess.MemberKey)
}

// Members returns every session currently registered for the occurrence.
// Stale set entries whose session hash already expired are skipped and
// pruned.
func (s *Store) Members(ctx context.Context, occurrenceID string) ([]Session, error) {
	keys, err := s.rdb.SMembers(ctx, membersKey(occurrenceID)).Result()
	if err != nil {
		return nil, storeErr("room members", err)
	}
	out := make([]Session, 0, len(keys))
	for _, k := range keys {
		sess, err := s.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			if err := s.rdb.SRem(ctx, membersKey(occurrenceID), k).Err(); err != nil {
				log.Warn().Err(err).Str("member_key", k).Msg("failed to prune stale member")
			}
			continue
		}
		out = append(out, *sess)
	}
	return out, nil
}

// RemoveAll evicts every session of an occurrence and returns the removed
// sessions; used by the termination cascade.
func (s *Store) RemoveAll(ctx context.Context, occurrenceID string) ([]Session, error) {
	members, err := s.Members(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if _, err := s.Remove(ctx, m.MemberKey); err != nil {
			log.Error().Err(err).Str("member_key", m.MemberKey).Msg("failed to remove member")
		}
	}
	if err := s.rdb.Del(ctx, membersKey(occurrenceID)).Err(); err != nil {
		return members, storeErr("delete member set", err)
	}
	return members, nil
}

// Touch refreshes the TTLs of a session and its room set.
func (s *Store) Touch(ctx context.Context, memberKey string) error {
	sess, err := s.Get(ctx, memberKey)
	if err != nil || sess == nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Expire(ctx, sessionKey(memberKey), TTL)
	pipe.Expire(ctx, membersKey(sess.OccurrenceID), TTL)
	if sess.ConnectionID != "" {
		pipe.Expire(ctx, connKey(sess.ConnectionID), TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("touch session", err)
	}
	return nil
}
