package oidc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
)

const sessionIDKey = "sid"

func newSessionStore(options *SessionOptions) (*SessionStore, error) {
	if options.Path == "" {
		options.Path = "/"
	}
	cookieStore := sessions.NewCookieStore([]byte(options.SecretSigningKey), []byte(options.SecretEncryptionKey))
	cookieStore.Options = &sessions.Options{
		Domain:   options.Domain,
		MaxAge:   options.MaxAge,
		Secure:   options.Secure,
		HttpOnly: true,
		Path:     options.Path,
		SameSite: http.SameSiteLaxMode,
	}

	// Apply defaults
	if options.CacheSize == 0 {
		options.CacheSize = 10000
	}
	if options.CacheTTL == 0 {
		options.CacheTTL = time.Duration(options.MaxAge) * time.Second
	}

	entryCipher, err := newEntryCipher([]byte(options.SecretEncryptionKey))
	if err != nil {
		return nil, err
	}

	var cache sessionCache
	if options.Redis != nil {
		applyRedisDefaults(options.Redis)
		cache = newRedisCacheAdapter(options.Redis, entryCipher)
	} else {
		cache = newLocalCacheAdapter(options.CacheSize, options.CacheTTL, entryCipher)
	}

	return &SessionStore{
		Options: options,
		store:   cookieStore,
		cache:   cache,
	}, nil
}

func applyRedisDefaults(r *RedisSessionOptions) {
	if r.Port == 0 {
		r.Port = 6379
	}
	if r.KeyPrefix == "" {
		r.KeyPrefix = "oidc-sessions"
	}
	if r.TTL == 0 {
		r.TTL = 24 * time.Hour
	}
}

// getSessionID reads the session ID from the cookie.
func (s *SessionStore) getSessionID(r *http.Request) (string, error) {
	session, err := s.store.Get(r, s.Options.Name)
	if err != nil {
		return "", err
	}
	sid, ok := session.Values[sessionIDKey].(string)
	if !ok || sid == "" {
		return "", nil
	}
	return sid, nil
}

// ensureSessionID creates a new session ID if one doesn't exist, saves the cookie, and returns the ID.
func (s *SessionStore) ensureSessionID(r *http.Request, w http.ResponseWriter) (string, error) {
	session, err := s.store.Get(r, s.Options.Name)
	if session == nil {
		return "", err
	}
	if err != nil {
		log.Debug().Err(err).Msg("discarding unreadable session cookie")
	}

	sid, ok := session.Values[sessionIDKey].(string)
	if ok && sid != "" {
		return sid, nil
	}

	sid = uuid.New().String()
	session.Values[sessionIDKey] = sid
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session cookie: %w", err)
	}
	return sid, nil
}

// getOrCreateEntry loads the session entry from cache or creates a new empty one.
func (s *SessionStore) getOrCreateEntry(ctx context.Context, sid string) *sessionEntry {
	entry, ok := s.cache.Get(ctx, sid)
	if ok && entry != nil {
		return entry
	}
	return &sessionEntry{
		Values: make(map[string]string),
	}
}

// NewSession starts a session for the request unless it already carries one.
func (s *SessionStore) NewSession(r *http.Request, w http.ResponseWriter) error {
	sid, err := s.ensureSessionID(r, w)
	if err != nil {
		return err
	}
	ctx := r.Context()
	if _, ok := s.cache.Get(ctx, sid); ok {
		return nil
	}
	return s.cache.Set(ctx, sid, &sessionEntry{
		Values: make(map[string]string),
	})
}

// RenewSession moves the session to a fresh ID and stores data as its only content.
// Values and flashes of the old session are dropped.
func (s *SessionStore) RenewSession(r *http.Request, w http.ResponseWriter, data *SessionData) error {
	session, err := s.store.Get(r, s.Options.Name)
	if session == nil {
		return err
	}
	if err != nil {
		log.Debug().Err(err).Msg("discarding unreadable session cookie")
	}

	ctx := r.Context()
	if oldSid, ok := session.Values[sessionIDKey].(string); ok && oldSid != "" {
		_ = s.cache.Remove(ctx, oldSid)
	}

	sid := uuid.New().String()
	session.Values[sessionIDKey] = sid
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session cookie: %w", err)
	}

	return s.cache.Set(ctx, sid, &sessionEntry{
		Data:   data,
		Values: make(map[string]string),
	})
}

func (s *SessionStore) SetStringValue(r *http.Request, w http.ResponseWriter, key string, value string) error {
	sid, err := s.ensureSessionID(r, w)
	if err != nil {
		return err
	}

	ctx := r.Context()
	entry := s.getOrCreateEntry(ctx, sid)
	if entry.Values == nil {
		entry.Values = make(map[string]string)
	}
	entry.Values[key] = value
	return s.cache.Set(ctx, sid, entry)
}

func (s *SessionStore) GetStringValue(r *http.Request, key string) (string, error) {
	sid, err := s.getSessionID(r)
	if err != nil {
		return "", err
	}
	if sid == "" {
		return "", nil
	}

	entry, ok := s.cache.Get(r.Context(), sid)
	if !ok || entry == nil {
		return "", nil
	}
	return entry.Values[key], nil
}

func (s *SessionStore) SetSessionData(r *http.Request, w http.ResponseWriter, data *SessionData) error {
	sid, err := s.ensureSessionID(r, w)
	if err != nil {
		return err
	}

	ctx := r.Context()
	entry := s.getOrCreateEntry(ctx, sid)
	entry.Data = data
	return s.cache.Set(ctx, sid, entry)
}

func (s *SessionStore) GetSessionData(r *http.Request) (*SessionData, error) {
	sid, err := s.getSessionID(r)
	if err != nil {
		log.Error().Err(err).Msg("failed to get session ID")
		return nil, err
	}
	if sid == "" {
		log.Debug().Msg("no session ID found")
		return nil, nil
	}

	entry, ok := s.cache.Get(r.Context(), sid)
	if !ok || entry == nil || entry.Data == nil {
		log.Debug().Msg("no session data found")
		return nil, nil
	}
	return entry.Data, nil
}

func (s *SessionStore) SetStringFlash(r *http.Request, w http.ResponseWriter, value string) error {
	log.Debug().Msg("setting flash message in session")
	sid, err := s.ensureSessionID(r, w)
	if err != nil {
		return err
	}

	ctx := r.Context()
	entry := s.getOrCreateEntry(ctx, sid)
	entry.Flashes = append(entry.Flashes, value)
	return s.cache.Set(ctx, sid, entry)
}

func (s *SessionStore) GetStringFlash(r *http.Request, w http.ResponseWriter) (*string, error) {
	log.Debug().Msg("getting flash message from session")
	sid, err := s.getSessionID(r)
	if err != nil {
		return nil, err
	}
	if sid == "" {
		return nil, nil
	}

	ctx := r.Context()
	entry, ok := s.cache.Get(ctx, sid)
	if !ok || entry == nil || len(entry.Flashes) == 0 {
		return nil, nil
	}

	flash := entry.Flashes[0]
	entry.Flashes = entry.Flashes[1:]
	if err := s.cache.Set(ctx, sid, entry); err != nil {
		return nil, err
	}
	return &flash, nil
}

// Delete removes the session entry and expires the session cookie.
// Deleting a request without a session only expires the cookie.
func (s *SessionStore) Delete(r *http.Request, w http.ResponseWriter) error {
	session, err := s.store.Get(r, s.Options.Name)
	if session == nil {
		return err
	}
	if err != nil {
		log.Debug().Err(err).Msg("discarding unreadable session cookie")
	}

	if sid, ok := session.Values[sessionIDKey].(string); ok && sid != "" {
		if err := s.cache.Remove(r.Context(), sid); err != nil {
			return fmt.Errorf("failed to remove session entry: %w", err)
		}
	}

	// Expire the cookie
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Close releases the session backend. Sessions are unusable afterwards.
func (s *SessionStore) Close() error {
	return s.cache.Close()
}
