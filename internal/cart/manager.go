package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/drstein77/cartwidget/internal/models"
	"github.com/drstein77/cartwidget/internal/storage"
	"go.uber.org/zap"
)

// StorageKey is the session store key holding the serialized cart.
const StorageKey = "cart"

// NotificationDuration is how long the notification widget shows a message.
const NotificationDuration = 2000 * time.Millisecond

// Store is the session-scoped key-value store. Get returns storage.ErrNotFound
// for an absent key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Target receives the view after initialization and after every mutation.
type Target interface {
	Render(View)
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(message string)
}

// Log interface for logging
type Log interface {
	Debug(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Manager owns the cart of one session. It is not safe for concurrent use;
// callers dispatch one command at a time.
type Manager struct {
	cart     Cart
	store    Store
	target   Target
	notifier Notifier
	log      Log
}

// NewManager creates a Manager with an empty cart. Call Initialize to load
// the persisted one.
func NewManager(store Store, target Target, notifier Notifier, log Log) *Manager {
	return &Manager{
		store:    store,
		target:   target,
		notifier: notifier,
		log:      log,
	}
}

// Initialize loads the cart from the store and renders it. Absent or
// malformed data starts an empty cart; only a failing store is an error.
func (m *Manager) Initialize(ctx context.Context) error {
	data, err := m.store.Get(ctx, StorageKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		m.cart = Cart{}
	case err != nil:
		m.log.Error("Failed to load cart", zap.Error(err))
		return fmt.Errorf("failed to load cart: %w", err)
	default:
		var dropped int
		m.cart, dropped = decodeCart(data)
		if dropped > 0 {
			m.log.Debug("Dropped invalid cart entries", zap.Int("count", dropped))
		}
	}

	m.render()
	return nil
}

// AddItem adds one unit of a product. A known id gains one unit; an unknown
// id is appended with quantity 1.
func (m *Manager) AddItem(ctx context.Context, id, name string, price float64, image string) error {
	m.cart.add(id, name, price, image)
	m.Notify(fmt.Sprintf("%s has been added to the cart.", name))
	return m.saveAndRender(ctx)
}

// IncrementItem adds one unit to an existing line item. Unknown ids are ignored.
func (m *Manager) IncrementItem(ctx context.Context, id string) error {
	if !m.cart.increment(id) {
		return nil
	}
	return m.saveAndRender(ctx)
}

// DecrementItem removes one unit from an existing line item and drops the
// item when it reaches zero. Unknown ids are ignored.
func (m *Manager) DecrementItem(ctx context.Context, id string) error {
	if !m.cart.decrement(id) {
		return nil
	}
	return m.saveAndRender(ctx)
}

// Clear empties the cart.
func (m *Manager) Clear(ctx context.Context) error {
	m.cart.clear()
	return m.saveAndRender(ctx)
}

// Render projects the current cart.
func (m *Manager) Render() View {
	return Project(&m.cart)
}

// Notify forwards message to the notification widget.
func (m *Manager) Notify(message string) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(message)
}

// Items returns a copy of the line items in cart order.
func (m *Manager) Items() []models.LineItem {
	return m.cart.Items()
}

func (m *Manager) saveAndRender(ctx context.Context) error {
	data, err := json.Marshal(&m.cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	// The view reflects the in-memory cart even when the write fails.
	m.render()

	if err := m.store.Set(ctx, StorageKey, data); err != nil {
		m.log.Error("Failed to persist cart", zap.Error(err))
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}

func (m *Manager) render() {
	if m.target == nil {
		return
	}
	m.target.Render(m.Render())
}
