// Package session keeps authenticated sessions in Redis. All writes go
// through HandleAuthStateChange, and subscribers are told about every change.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"myfleet/internal/apperr"
)

const keyPrefix = "session:"

type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	ProfileUpdated
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case ProfileUpdated:
		return "profile_updated"
	}
	return "unknown"
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Event struct {
	Kind    EventKind
	Session Session
}

type Listener func(Event)

type Store struct {
	rdb *redis.Client
	ttl time.Duration

	mu        sync.RWMutex
	listeners []Listener
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Subscribe registers fn to run after every successful state change.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// HandleAuthStateChange is the single mutation path for sessions. It returns
// the session as stored after the change.
func (s *Store) HandleAuthStateChange(ctx context.Context, ev Event) (*Session, error) {
	sess := ev.Session

	switch ev.Kind {
	case SignedIn:
		if sess.UserID == "" {
			return nil, apperr.Validation("user_id", "session needs a user")
		}
		now := time.Now()
		sess.ID = uuid.NewString()
		sess.CreatedAt = now
		sess.ExpiresAt = now.Add(s.ttl)
		raw, err := json.Marshal(sess)
		if err != nil {
			return nil, apperr.Wrap("create session", err)
		}
		if err := s.rdb.Set(ctx, keyPrefix+sess.ID, raw, s.ttl).Err(); err != nil {
			return nil, apperr.Wrap("create session", err)
		}

	case SignedOut:
		stored, err := s.Get(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		if err := s.rdb.Del(ctx, keyPrefix+sess.ID).Err(); err != nil {
			return nil, apperr.Wrap("end session", err)
		}
		sess = *stored

	case ProfileUpdated:
		if sess.UserID == "" {
			return nil, apperr.Validation("user_id", "profile event needs a user")
		}

	default:
		return nil, fmt.Errorf("unknown session event %d", ev.Kind)
	}

	logrus.WithFields(logrus.Fields{
		"event":   ev.Kind.String(),
		"user_id": sess.UserID,
	}).Info("Session state changed")

	s.notify(Event{Kind: ev.Kind, Session: sess})
	return &sess, nil
}

// Get loads a live session.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrSessionNotFound
	}
	if err != nil {
		return nil, apperr.Wrap("load session", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, apperr.Wrap("load session", err)
	}
	return &sess, nil
}

func (s *Store) notify(ev Event) {
	s.mu.RLock()
	ls := make([]Listener, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.RUnlock()

	for _, fn := range ls {
		fn(ev)
	}
}
