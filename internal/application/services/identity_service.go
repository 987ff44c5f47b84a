// Package services provides the application services of the widget engine and the
// sandbox collector.
package services

import (
	"strconv"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/identity"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/security"
)

// IdentityService resolves the visitor and session identifiers for one page load.
// Storage failures never surface: an in-memory id is used for the rest of the page load.
type IdentityService struct {
	durable identity.KeyValueStore
	session identity.KeyValueStore
	logger  *logging.ChanneledLogger
	now     func() time.Time

	visitor *identity.Visitor
	sess    *identity.Session
}

// NewIdentityService creates the service. Either store may be nil, which is treated as
// unavailable storage.
func NewIdentityService(durable, session identity.KeyValueStore, logger *logging.ChanneledLogger) *IdentityService {
	return &IdentityService{
		durable: durable,
		session: session,
		logger:  logger,
		now:     time.Now,
	}
}

// GetOrCreateVisitorID returns the durable visitor id, creating it on first use.
func (s *IdentityService) GetOrCreateVisitorID() string {
	return s.Visitor().ID
}

// GetOrCreateSessionID returns the per-tab session id, creating it on first use.
func (s *IdentityService) GetOrCreateSessionID() string {
	return s.Session().ID
}

// Visitor resolves the visitor identity once per page load.
func (s *IdentityService) Visitor() identity.Visitor {
	if s.visitor != nil {
		return *s.visitor
	}

	id, ephemeral := s.getOrCreate(s.durable, identity.VisitorKey, identity.VisitorPrefix)
	s.visitor = &identity.Visitor{ID: id, Ephemeral: ephemeral}
	return *s.visitor
}

// Session resolves the session identity once per page load.
func (s *IdentityService) Session() identity.Session {
	if s.sess != nil {
		return *s.sess
	}

	now := s.now()
	existing, found := s.read(s.session, identity.SessionKey)
	if found && existing != "" {
		sess := identity.Session{ID: existing, StartedAt: now}
		if raw, ok := s.read(s.session, identity.SessionStartKey); ok {
			if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
				sess.StartedAt = time.UnixMilli(ms)
			}
		} else {
			s.write(s.session, identity.SessionStartKey, strconv.FormatInt(now.UnixMilli(), 10))
		}
		s.sess = &sess
		return sess
	}

	id := security.GeneratePrefixedID(identity.SessionPrefix, now)
	ok := s.write(s.session, identity.SessionKey, id)
	if ok {
		s.write(s.session, identity.SessionStartKey, strconv.FormatInt(now.UnixMilli(), 10))
	}
	s.sess = &identity.Session{ID: id, StartedAt: now, IsNew: true, Ephemeral: !ok}
	s.logger.Identity().Debug("Session created", "sessionId", logging.SanitizeSessionID(id), "ephemeral", !ok)
	return *s.sess
}

// SessionFlag reports whether a boolean flag is set in session scope.
func (s *IdentityService) SessionFlag(key string) bool {
	v, ok := s.read(s.session, key)
	return ok && v == "1"
}

// SetSessionFlag sets a boolean flag in session scope. Failures are logged and ignored.
func (s *IdentityService) SetSessionFlag(key string) {
	s.write(s.session, key, "1")
}

func (s *IdentityService) getOrCreate(store identity.KeyValueStore, key, prefix string) (string, bool) {
	if v, ok := s.read(store, key); ok && v != "" {
		return v, false
	}
	id := security.GeneratePrefixedID(prefix, s.now())
	return id, !s.write(store, key, id)
}

func (s *IdentityService) read(store identity.KeyValueStore, key string) (value string, found bool) {
	if store == nil {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Identity().Warn("Storage read panicked", "key", key, "panic", r)
			value, found = "", false
		}
	}()
	v, ok, err := store.Get(key)
	if err != nil {
		s.logger.Identity().Warn("Storage read failed, using in-memory identity", "key", key, "error", err.Error())
		return "", false
	}
	return v, ok
}

func (s *IdentityService) write(store identity.KeyValueStore, key, value string) (ok bool) {
	if store == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Identity().Warn("Storage write panicked", "key", key, "panic", r)
			ok = false
		}
	}()
	if err := store.Set(key, value); err != nil {
		s.logger.Identity().Warn("Storage write failed, using in-memory identity", "key", key, "error", err.Error())
		return false
	}
	return true
}
