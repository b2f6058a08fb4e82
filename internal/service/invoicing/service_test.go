package invoicing

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicekit/invoice-studio/internal/domain/errors"
	"github.com/invoicekit/invoice-studio/internal/domain/invoice"
	"github.com/invoicekit/invoice-studio/internal/service/rendering"
)

func newTestService(cfg Config) *Service {
	return NewService(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []uuid.UUID
	last  *rendering.Snapshot
}

func (n *recordingNotifier) InvoiceChanged(sessionID uuid.UUID, snap *rendering.Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, sessionID)
	n.last = snap
}

func TestCreateSession(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	id, inv, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, "001", inv.InvoiceNumber)
	assert.Equal(t, 1, svc.ActiveSessions())

	// Returned record is a copy, not the live one.
	inv.InvoiceNumber = "changed"
	stored, err := svc.GetInvoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "001", stored.InvoiceNumber)
}

func TestCreateSession_LimitReached(t *testing.T) {
	svc := newTestService(Config{MaxSessions: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := svc.CreateSession(ctx)
		require.NoError(t, err)
	}

	_, _, err := svc.CreateSession(ctx)
	assert.ErrorIs(t, err, errors.ErrSessionLimit)
}

func TestGetInvoice_UnknownSession(t *testing.T) {
	svc := newTestService(Config{})

	_, err := svc.GetInvoice(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestApplyUpdate_NotifiesWithFreshSnapshot(t *testing.T) {
	svc := newTestService(Config{})
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)
	ctx := context.Background()

	id, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	patch := invoice.Patch{"clientName": json.RawMessage(`"Globex Corporation"`)}
	inv, err := svc.ApplyUpdate(ctx, id, patch)
	require.NoError(t, err)
	assert.Equal(t, "Globex Corporation", inv.ClientName)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, id, notifier.calls[0])
	assert.Equal(t, "Globex Corporation", notifier.last.Invoice.ClientName)
}

func TestApplyUpdate_FailedPatchDoesNotNotify(t *testing.T) {
	svc := newTestService(Config{})
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)
	ctx := context.Background()

	id, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = svc.ApplyUpdate(ctx, id, invoice.Patch{"bogus": json.RawMessage(`1`)})
	require.Error(t, err)
	assert.Empty(t, notifier.calls)
}

func TestItemOperations(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	id, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	inv, err := svc.AddItem(ctx, id)
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, 2, inv.Items[1].ID)

	inv, err = svc.UpdateItem(ctx, id, 2, invoice.ItemFieldPrice, 25.0)
	require.NoError(t, err)
	assert.Equal(t, 25.0, inv.Items[1].Price)

	inv, err = svc.RemoveItem(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 2, inv.Items[0].ID)

	// Removing the last remaining item is accepted but changes nothing.
	inv, err = svc.RemoveItem(ctx, id, 2)
	require.NoError(t, err)
	assert.Len(t, inv.Items, 1)

	_, err = svc.UpdateItem(ctx, id, 99, invoice.ItemFieldPrice, 1.0)
	assert.ErrorIs(t, err, errors.ErrLineItemNotFound)
}

func TestTotalsAndSnapshot(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	id, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, id, 1, invoice.ItemFieldQuantity, 3.0)
	require.NoError(t, err)
	_, err = svc.UpdateItem(ctx, id, 1, invoice.ItemFieldPrice, 10.0)
	require.NoError(t, err)

	totals, err := svc.Totals(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "30", totals.Subtotal.String())
	assert.Equal(t, "30", totals.Total.String())

	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "$30.00", snap.Total.Formatted)
	assert.Equal(t, "Invoice_001.pdf", snap.DocumentName)
}

func TestLogoLifecycle(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	id, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	inv, err := svc.SetLogo(ctx, id, "image/png", []byte("logo-bytes"))
	require.NoError(t, err)
	require.NotNil(t, inv.CompanyLogo)
	assert.Equal(t, "image/png", inv.CompanyLogo.MIMEType())

	inv, err = svc.ClearLogo(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, inv.CompanyLogo)
}

func TestReap_EvictsIdleSessions(t *testing.T) {
	svc := newTestService(Config{TTL: time.Hour})
	ctx := context.Background()

	current := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	idleID, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	current = current.Add(45 * time.Minute)
	activeID, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	// 70 minutes after the first session's last touch, 25 after the second's.
	current = current.Add(25 * time.Minute)
	svc.reap(ctx)

	assert.Equal(t, 1, svc.ActiveSessions())
	_, err = svc.GetInvoice(ctx, idleID)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
	_, err = svc.GetInvoice(ctx, activeID)
	assert.NoError(t, err)
}

func TestReap_TouchExtendsLifetime(t *testing.T) {
	svc := newTestService(Config{TTL: time.Hour})
	ctx := context.Background()

	current := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	id, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	current = current.Add(50 * time.Minute)
	_, err = svc.GetInvoice(ctx, id) // refreshes lastSeen
	require.NoError(t, err)

	current = current.Add(50 * time.Minute)
	svc.reap(ctx)

	assert.Equal(t, 1, svc.ActiveSessions())
}
