// Package invoicing owns the live invoice sessions. Each session holds
// exactly one invoice, created with defaults and mutated only through the
// merge-update and line-item operations. Sessions are memory-only and die
// with the process.
package invoicing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/invoicekit/invoice-studio/internal/domain/errors"
	"github.com/invoicekit/invoice-studio/internal/domain/invoice"
	"github.com/invoicekit/invoice-studio/internal/domain/values"
	"github.com/invoicekit/invoice-studio/internal/service/calculation"
	"github.com/invoicekit/invoice-studio/internal/service/rendering"
)

// Notifier receives the fresh snapshot after every successful mutation.
// The REST layer plugs the websocket hub in here for the live preview.
type Notifier interface {
	InvoiceChanged(sessionID uuid.UUID, snap *rendering.Snapshot)
}

// Config controls session lifecycle limits.
type Config struct {
	TTL          time.Duration
	ReapInterval time.Duration
	MaxSessions  int
}

// DefaultConfig returns the session limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		TTL:          2 * time.Hour,
		ReapInterval: 5 * time.Minute,
		MaxSessions:  10000,
	}
}

type session struct {
	mu       sync.Mutex
	inv      *invoice.Invoice
	lastSeen time.Time
}

// Service is the session store and the single owner of every invoice record.
type Service struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session

	cfg      Config
	logger   *slog.Logger
	notifier Notifier
	now      func() time.Time
}

// NewService creates the session service.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultConfig().ReapInterval
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultConfig().MaxSessions
	}

	return &Service{
		sessions: make(map[uuid.UUID]*session),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SetNotifier wires the change listener. Must be called before traffic.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateSession mints a session holding a default invoice.
func (s *Service) CreateSession(ctx context.Context) (uuid.UUID, *invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.cfg.MaxSessions {
		return uuid.Nil, nil, errors.ErrSessionLimit
	}

	id := uuid.New()
	now := s.now()
	sess := &session{inv: invoice.New(now), lastSeen: now}
	s.sessions[id] = sess

	s.logger.InfoContext(ctx, "session created",
		"session_id", id,
		"active_sessions", len(s.sessions),
	)

	return id, sess.inv.Clone(), nil
}

// GetInvoice returns a copy of the session's current invoice.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()
	return sess.inv.Clone(), nil
}

// ApplyUpdate merges a partial field set into the invoice (shallow merge,
// whole-group replacement for nested groups).
func (s *Service) ApplyUpdate(ctx context.Context, id uuid.UUID, patch invoice.Patch) (*invoice.Invoice, error) {
	return s.mutate(ctx, id, "update", func(inv *invoice.Invoice) error {
		return inv.ApplyPatch(patch)
	})
}

// AddItem appends a default line item and returns the new invoice state.
func (s *Service) AddItem(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.mutate(ctx, id, "item_add", func(inv *invoice.Invoice) error {
		inv.AddItem()
		return nil
	})
}

// UpdateItem replaces one field on one line item.
func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, itemID int, field string, value any) (*invoice.Invoice, error) {
	return s.mutate(ctx, id, "item_update", func(inv *invoice.Invoice) error {
		_, err := inv.UpdateItem(itemID, field, value)
		return err
	})
}

// RemoveItem drops a line item; removing the last one is a silent no-op.
func (s *Service) RemoveItem(ctx context.Context, id uuid.UUID, itemID int) (*invoice.Invoice, error) {
	return s.mutate(ctx, id, "item_remove", func(inv *invoice.Invoice) error {
		return inv.RemoveItem(itemID)
	})
}

// SetLogo embeds the uploaded image as a data URL on the invoice.
func (s *Service) SetLogo(ctx context.Context, id uuid.UUID, mimeType string, content []byte) (*invoice.Invoice, error) {
	logo, err := values.NewDataURLFromBytes(mimeType, content)
	if err != nil {
		return nil, errors.NewValidationError("INVALID_LOGO", "Logo could not be encoded").WithCause(err)
	}

	return s.mutate(ctx, id, "logo_set", func(inv *invoice.Invoice) error {
		inv.SetLogo(logo)
		return nil
	})
}

// ClearLogo removes the embedded logo.
func (s *Service) ClearLogo(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.mutate(ctx, id, "logo_clear", func(inv *invoice.Invoice) error {
		inv.ClearLogo()
		return nil
	})
}

// Totals derives the four financial figures from the current state.
func (s *Service) Totals(ctx context.Context, id uuid.UUID) (calculation.Totals, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return calculation.Totals{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()
	return calculation.Compute(sess.inv), nil
}

// Snapshot assembles the full render-ready view of the session.
func (s *Service) Snapshot(ctx context.Context, id uuid.UUID) (*rendering.Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()
	return rendering.BuildSnapshot(sess.inv), nil
}

// ActiveSessions reports how many sessions are alive.
func (s *Service) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartReaper evicts idle sessions until ctx is done.
func (s *Service) StartReaper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.ReapInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reap(ctx)
			}
		}
	}()
}

func (s *Service) reap(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.TTL)

	s.mu.Lock()
	var evicted int
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.InfoContext(ctx, "idle sessions evicted",
			"evicted", evicted,
			"active_sessions", remaining,
		)
	}
}

func (s *Service) lookup(id uuid.UUID) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return sess, nil
}

// mutate runs op under the session lock, then pushes the fresh snapshot to
// the notifier. The snapshot is built inside the lock so listeners always
// see a consistent state.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*invoice.Invoice) error) (*invoice.Invoice, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if err := fn(sess.inv); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	sess.lastSeen = s.now()
	result := sess.inv.Clone()
	snap := rendering.BuildSnapshot(sess.inv)
	sess.mu.Unlock()

	s.logger.DebugContext(ctx, "invoice mutated", "session_id", id, "op", op)

	if s.notifier != nil {
		s.notifier.InvoiceChanged(id, snap)
	}

	return result, nil
}
