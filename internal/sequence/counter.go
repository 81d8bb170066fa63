package sequence

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// OrderNumbers is the counter backing customer-facing order numbers.
const OrderNumbers = "order_numbers"

// Counter hands out monotonically increasing values from a named durable
// counter. Every call runs a single atomic increment-and-read statement, so
// concurrent callers never observe the same value.
type Counter struct {
	db *gorm.DB
}

// NewCounter builds a counter bound to the provided DB.
func NewCounter(db *gorm.DB) (*Counter, error) {
	if db == nil {
		return nil, fmt.Errorf("sequence counter db required")
	}
	return &Counter{db: db}, nil
}

// WithTx returns a counter bound to the supplied transaction.
func (c *Counter) WithTx(tx *gorm.DB) *Counter {
	if tx == nil {
		return c
	}
	return &Counter{db: tx}
}

// Next increments the named counter and returns the new value. The first call
// for a name returns 1.
func (c *Counter) Next(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("counter name required")
	}

	var value int64
	err := c.db.WithContext(ctx).Raw(
		`INSERT INTO sequence_counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = sequence_counters.value + 1
		 RETURNING value`,
		name,
	).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("incrementing counter %q: %w", name, err)
	}
	return value, nil
}

// FormatOrderNumber renders a counter value as a customer-facing order number
// ("KM-0042"). Values wider than the pad keep all their digits.
func FormatOrderNumber(prefix string, pad int, value int64) string {
	if pad <= 0 {
		return fmt.Sprintf("%s%d", prefix, value)
	}
	return fmt.Sprintf("%s%0*d", prefix, pad, value)
}
