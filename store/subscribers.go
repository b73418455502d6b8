package store

import (
	"context"
	"fmt"
	"strings"

	"digitalindian/pkg/site"
)

// NormalizeEmail lowercases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddSubscriber inserts email into the subscriber set. It returns ErrDuplicate if
// the address is already subscribed.
func (s *Store) AddSubscriber(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	_, err := s.exec(ctx, "INSERT INTO subscriptions (email, created_at) VALUES (?, ?)", email, s.timeArg(s.now()))
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}
	s.logger.Info("Subscriber added", "email", email)
	return nil
}

// ListEmails returns every subscriber address in one query.
func (s *Store) ListEmails(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, "SELECT email FROM subscriptions ORDER BY created_at, email")
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return emails, nil
}

// ListSubscribers returns every subscriber with its subscription time.
func (s *Store) ListSubscribers(ctx context.Context) ([]*site.Subscriber, error) {
	rows, err := s.query(ctx, "SELECT email, created_at FROM subscriptions ORDER BY created_at DESC, email")
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	subs := []*site.Subscriber{}
	for rows.Next() {
		var sub site.Subscriber
		var created dbTime
		if err := rows.Scan(&sub.Email, &created); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		sub.CreatedAt = created.Time
		subs = append(subs, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return subs, nil
}

// RemoveSubscriber deletes email from the subscriber set. It returns ErrNotFound
// if the address was not subscribed.
func (s *Store) RemoveSubscriber(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	res, err := s.exec(ctx, "DELETE FROM subscriptions WHERE email = ?", email)
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	s.logger.Info("Subscriber removed", "email", email)
	return nil
}
