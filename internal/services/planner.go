package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"budgetplan/internal/cache"
	"budgetplan/internal/core"
)

var ErrNoSession = errors.New("no open budget session")

// Planner keeps one Session per user: the month the user currently has on
// screen. Sessions live in a bounded LRU cache and expire ttl after the
// user's last access; an evicted session is reopened from storage on the
// next navigation.
type Planner struct {
	engine   *Engine
	sessions cache.Cache[*Session]
}

func NewPlanner(engine *Engine, maxSessions int, ttl time.Duration, opts ...cache.LRUOption[*Session]) *Planner {
	opts = append([]cache.LRUOption[*Session]{
		cache.WithEvictHook(func(userID string, s *Session) {
			slog.Debug("Budget session evicted", "user_id", userID, "month", s.Month().String())
		}),
	}, opts...)
	return &Planner{
		engine:   engine,
		sessions: cache.NewLRUCache(maxSessions, ttl, opts...),
	}
}

// Engine exposes the underlying rollover engine.
func (p *Planner) Engine() *Engine { return p.engine }

// Sessions exposes the session cache so it can be swept periodically.
func (p *Planner) Sessions() cache.Cleaner { return p.sessions }

// Open resolves month for the user and makes it the displayed month.
func (p *Planner) Open(ctx context.Context, userID string, month core.MonthKey) (*Session, error) {
	res, err := p.engine.Resolve(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	s := newSession(p.engine, userID, res)
	p.sessions.Set(userID, s)
	return s, nil
}

// Session returns the open session, or ErrNoSession when the user has not
// navigated anywhere or the session expired. A hit restarts the expiry.
func (p *Planner) Session(userID string) (*Session, error) {
	s, ok := p.sessions.Get(userID)
	if !ok {
		return nil, ErrNoSession
	}
	p.sessions.Set(userID, s)
	return s, nil
}

// Current returns the open session or opens today's month.
func (p *Planner) Current(ctx context.Context, userID string) (*Session, error) {
	if s, err := p.Session(userID); err == nil {
		return s, nil
	}
	return p.Open(ctx, userID, p.engine.Today())
}

// Reset wipes the user's snapshots. An open session keeps its month and
// now shows the built-in template.
func (p *Planner) Reset(ctx context.Context, userID string) error {
	if s, err := p.Session(userID); err == nil {
		return s.Reset(ctx)
	}
	return p.engine.Reset(ctx, userID)
}

// Close drops the user's session.
func (p *Planner) Close(userID string) {
	p.sessions.Delete(userID)
}
