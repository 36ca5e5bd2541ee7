package compensation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
)

// Status is the lifecycle state of a compensating transaction.
type Status string

const (
	// StatusSkipped means the mutation failed and compensation was disabled.
	StatusSkipped Status = "skipped"

	// StatusPublished means a compensation event was published.
	StatusPublished Status = "published"

	// StatusPublishFailed means publishing the compensation event failed.
	StatusPublishFailed Status = "publish_failed"

	// StatusApplied means the inverse mutation was saved.
	StatusApplied Status = "applied"

	// StatusFailed means the inverse mutation failed. Terminal.
	StatusFailed Status = "failed"
)

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSkipped, StatusPublishFailed, StatusApplied, StatusFailed:
		return true
	default:
		return false
	}
}

// Transaction records one failed counter mutation and what was done about it.
type Transaction struct {
	ID               string            `json:"transactionId"`
	OriginalEventID  string            `json:"originalEventId"`
	OriginalType     string            `json:"originalEventType,omitempty"`
	CompensationType string            `json:"compensationType"`
	PostID           string            `json:"postId"`
	Field            counter.Field     `json:"field"`
	Direction        counter.Direction `json:"direction"`
	Status           Status            `json:"status"`
	Cause            string            `json:"cause,omitempty"`
	Error            string            `json:"error,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Clone returns a copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Ledger persists compensating transactions for inspection.
// Implementations must be safe for concurrent use.
type Ledger interface {
	// Record inserts or replaces a transaction.
	Record(ctx context.Context, tx *Transaction) error

	// Get retrieves a transaction by ID.
	Get(ctx context.Context, transactionID string) (*Transaction, error)

	// List returns transactions matching the filter, oldest first.
	List(ctx context.Context, filter *ListFilter) ([]*Transaction, error)

	// Delete removes a transaction.
	Delete(ctx context.Context, transactionID string) error
}

// ListFilter specifies criteria for listing transactions.
type ListFilter struct {
	// Status filters by transaction status.
	Status Status

	// PostID filters by compensated post.
	PostID string

	// Limit is the maximum number of results.
	Limit int

	// Offset is the number of results to skip.
	Offset int
}

// ErrTransactionNotFound is returned when a transaction cannot be found.
var ErrTransactionNotFound = errors.New("transaction not found")

// MemoryLedger is an in-memory Ledger.
type MemoryLedger struct {
	txs map[string]*Transaction
	mu  sync.RWMutex
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{txs: make(map[string]*Transaction)}
}

// Record inserts or replaces a transaction. CreatedAt of an existing
// transaction is preserved.
func (l *MemoryLedger) Record(_ context.Context, tx *Transaction) error {
	if tx == nil || tx.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c := tx.Clone()
	if prev, ok := l.txs[tx.ID]; ok && !prev.CreatedAt.IsZero() {
		c.CreatedAt = prev.CreatedAt
		if c.OriginalType == "" {
			c.OriginalType = prev.OriginalType
		}
	}
	l.txs[tx.ID] = c
	return nil
}

// Get retrieves a transaction by ID.
func (l *MemoryLedger) Get(_ context.Context, transactionID string) (*Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tx, ok := l.txs[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return tx.Clone(), nil
}

// List returns transactions matching the filter, oldest first.
func (l *MemoryLedger) List(_ context.Context, filter *ListFilter) ([]*Transaction, error) {
	l.mu.RLock()
	result := make([]*Transaction, 0, len(l.txs))
	for _, tx := range l.txs {
		if filter != nil {
			if filter.Status != "" && tx.Status != filter.Status {
				continue
			}
			if filter.PostID != "" && tx.PostID != filter.PostID {
				continue
			}
		}
		result = append(result, tx.Clone())
	}
	l.mu.RUnlock()

	slices.SortFunc(result, func(a, b *Transaction) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(result) {
				return []*Transaction{}, nil
			}
			result = result[filter.Offset:]
		}
		if filter.Limit > 0 && filter.Limit < len(result) {
			result = result[:filter.Limit]
		}
	}
	return result, nil
}

// Delete removes a transaction.
func (l *MemoryLedger) Delete(_ context.Context, transactionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.txs[transactionID]; !ok {
		return ErrTransactionNotFound
	}
	delete(l.txs, transactionID)
	return nil
}
