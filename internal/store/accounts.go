package store

import (
	"context"
	"fmt"
	"strings"

	"stockflow/internal/types"
)

// Account helpers. The account subsystem owns this data; the pipeline only
// reads it, but tools and tests need a way to create rows.

// CreateUser inserts a user with their registered channel details and
// returns the new id.
func (s *Store) CreateUser(ctx context.Context, channel types.Channel, phone string, telegramChatID int64, email string, verified bool) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(phone_number, telegram_chat_id, email, login_method, is_verified)
		 VALUES(?,?,?,?,?)`,
		nullable(phone), telegramChatID, nullable(email), string(channel), verified,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new user id: %w", err)
	}
	return id, nil
}

// AddSubscription subscribes a user to a symbol. Re-adding an existing
// subscription re-enables it.
func (s *Store) AddSubscription(ctx context.Context, userID int64, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_stocks(user_id, stock_symbol, is_enabled) VALUES(?,?,1)
		 ON CONFLICT(user_id, stock_symbol) DO UPDATE SET is_enabled = 1`,
		userID, strings.ToUpper(symbol),
	)
	if err != nil {
		return fmt.Errorf("failed to add subscription %s for user %d: %w", symbol, userID, err)
	}
	return nil
}

// SetSubscriptionEnabled toggles an existing subscription.
func (s *Store) SetSubscriptionEnabled(ctx context.Context, userID int64, symbol string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alert_stocks SET is_enabled = ? WHERE user_id = ? AND stock_symbol = ?`,
		enabled, userID, strings.ToUpper(symbol),
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription %s for user %d: %w", symbol, userID, err)
	}
	return nil
}

// SetUserVerified flips the verification flag after OTP confirmation.
func (s *Store) SetUserVerified(ctx context.Context, userID int64, verified bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_verified = ? WHERE id = ?`, verified, userID)
	if err != nil {
		return fmt.Errorf("failed to update verification for user %d: %w", userID, err)
	}
	return nil
}

func nullable(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
