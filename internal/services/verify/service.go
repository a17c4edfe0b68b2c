// Package verify links chat users to game-platform accounts by way of a
// profile-description challenge: put this code in your profile, then confirm
package verify

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	perr "bridgebot/internal/platform/errors"
	"bridgebot/internal/platform/logger"
)

// codeAlphabet avoids lowercase so the code survives profile editors that
// normalize case
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeLen = 6

// attemptTTL bounds how long a challenge stays confirmable
const attemptTTL = 10 * time.Minute

// ProfilePort is the platform lookup surface the flow needs
type ProfilePort interface {
	LookupID(ctx context.Context, username string) (int64, error)
	Description(ctx context.Context, userID int64) (string, error)
}

// Attempt is an in-flight verification challenge
type Attempt struct {
	ID        string    `json:"attempt_id"`
	Username  string    `json:"username"`
	UserID    int64     `json:"platform_user_id"`
	Code      string    `json:"code"`
	StartedAt time.Time `json:"started_at"`
}

// Link is a completed verification
type Link struct {
	ChatUserID int64     `json:"chat_user_id"`
	Username   string    `json:"username"`
	UserID     int64     `json:"platform_user_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Service runs the challenge flow
type Service struct {
	mu       sync.Mutex
	profiles ProfilePort
	attempts map[int64]Attempt // keyed by chat user id, one attempt at a time
	verified map[int64]Link
	log      logger.Logger
	now      func() time.Time // seam for tests
}

// New builds the verification service
func New(profiles ProfilePort) *Service {
	if profiles == nil {
		panic("verify requires a profile port")
	}
	return &Service{
		profiles: profiles,
		attempts: make(map[int64]Attempt),
		verified: make(map[int64]Link),
		log:      *logger.Named("verify"),
		now:      time.Now,
	}
}

// Begin resolves the username and issues a challenge code. Restarting while
// an attempt is pending replaces it
func (s *Service) Begin(ctx context.Context, chatUserID int64, username string) (Attempt, error) {
	userID, err := s.profiles.LookupID(ctx, username)
	if err != nil {
		return Attempt{}, err
	}

	att := Attempt{
		ID:        uuid.NewString(),
		Username:  username,
		UserID:    userID,
		Code:      newCode(),
		StartedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.attempts[chatUserID] = att
	s.mu.Unlock()

	s.log.Info().Int64("chat_user_id", chatUserID).Str("username", username).Msg("verification started")
	return att, nil
}

// Confirm re-reads the profile description and completes the link when the
// challenge code is present
func (s *Service) Confirm(ctx context.Context, chatUserID int64) (Link, error) {
	s.mu.Lock()
	att, ok := s.attempts[chatUserID]
	s.mu.Unlock()
	if !ok {
		return Link{}, perr.NotFoundf("no verification in progress")
	}
	if s.now().Sub(att.StartedAt) > attemptTTL {
		s.mu.Lock()
		delete(s.attempts, chatUserID)
		s.mu.Unlock()
		return Link{}, perr.NotFoundf("verification attempt expired, start again")
	}

	desc, err := s.profiles.Description(ctx, att.UserID)
	if err != nil {
		return Link{}, err
	}
	if !strings.Contains(desc, att.Code) {
		return Link{}, perr.Forbiddenf("verification code not found in profile description")
	}

	link := Link{
		ChatUserID: chatUserID,
		Username:   att.Username,
		UserID:     att.UserID,
		VerifiedAt: s.now().UTC(),
	}

	s.mu.Lock()
	delete(s.attempts, chatUserID)
	s.verified[chatUserID] = link
	s.mu.Unlock()

	s.log.Info().Int64("chat_user_id", chatUserID).Int64("platform_user_id", link.UserID).Msg("verification complete")
	return link, nil
}

// Verified returns the link for a chat user if one exists
func (s *Service) Verified(chatUserID int64) (Link, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.verified[chatUserID]
	return link, ok
}

func newCode() string {
	buf := make([]byte, codeLen)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	out := make([]byte, codeLen)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}
