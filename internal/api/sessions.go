package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"trading-journal-go/internal/store"
)

// StoreFactory builds an empty store scoped to owner.
type StoreFactory func(owner string) *store.Store

type session struct {
	mu    sync.Mutex
	store *store.Store
	// err is set when the initial load failed and the session was dropped.
	err error
}

// Sessions keeps one store per owner. A session expires after ttl without
// requests.
type Sessions struct {
	cache   *cache.Cache
	factory StoreFactory
	log     *zap.Logger
	mu      sync.Mutex
}

// NewSessions creates a session registry.
func NewSessions(ttl, cleanup time.Duration, factory StoreFactory, log *zap.Logger) *Sessions {
	return &Sessions{
		cache:   cache.New(ttl, cleanup),
		factory: factory,
		log:     log.Named("sessions"),
	}
}

// Acquire returns the owner's store locked for the caller, creating and loading
// it on first use. The caller must call release when done.
//
// If the first load fails entirely the session is discarded and the error is
// returned to the caller and to every request that was waiting on it. If only
// one half loaded the session is kept and the store is returned together with
// the *store.FetchError.
func (s *Sessions) Acquire(ctx context.Context, owner string) (st *store.Store, release func(), err error) {
	s.mu.Lock()
	if v, ok := s.cache.Get(owner); ok {
		sess := v.(*session)
		s.cache.SetDefault(owner, sess)
		s.mu.Unlock()

		sess.mu.Lock()
		if sess.err != nil {
			sess.mu.Unlock()
			return nil, nil, sess.err
		}
		return sess.store, sess.mu.Unlock, nil
	}

	sess := &session{store: s.factory(owner)}
	sess.mu.Lock()
	s.cache.SetDefault(owner, sess)
	s.mu.Unlock()

	err = sess.store.FetchAll(ctx)
	var fetchErr *store.FetchError
	switch {
	case err == nil:
		s.log.Info("Session opened", zap.String("owner", owner))
		return sess.store, sess.mu.Unlock, nil
	case errors.As(err, &fetchErr) && fetchErr.Partial():
		s.log.Warn("Session opened with a partial load", zap.String("owner", owner), zap.Error(err))
		return sess.store, sess.mu.Unlock, err
	}

	s.log.Warn("Initial fetch failed, dropping session", zap.String("owner", owner), zap.Error(err))
	sess.err = err
	s.drop(owner, sess)
	sess.mu.Unlock()
	return nil, nil, err
}

// drop removes sess if it is still the owner's current session.
func (s *Sessions) drop(owner string, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(owner); ok && v.(*session) == sess {
		s.cache.Delete(owner)
	}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.cache.ItemCount()
}
