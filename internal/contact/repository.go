package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"group-chat/internal/db"
)

// Repository is the Contact Ledger. It is the only writer of contacts rows.
type Repository struct {
	db *sql.DB
}

func NewRepository(database *db.Database) *Repository {
	return &Repository{db: database.Conn}
}

const pairClause = "((member_a = $1 AND member_b = $2) OR (member_a = $2 AND member_b = $1))"

// Request inserts an unverified edge, failing with ErrExists if the pair is
// already linked in either direction.
func (r *Repository) Request(ctx context.Context, requesterID, targetID int) (*Contact, error) {
	c := &Contact{MemberA: requesterID, MemberB: targetID}
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts WHERE "+pairClause, requesterID, targetID).Scan(&n); err != nil {
			return fmt.Errorf("check contact pair: %w", err)
		}
		if n > 0 {
			return ErrExists
		}
		err := tx.QueryRowContext(ctx,
			"INSERT INTO contacts (member_a, member_b, verified) VALUES ($1, $2, FALSE) RETURNING id",
			requesterID, targetID).Scan(&c.ID)
		if db.IsUniqueViolation(err) {
			return ErrExists
		}
		if err != nil {
			return fmt.Errorf("insert contact: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) Get(ctx context.Context, requestID int) (*Contact, error) {
	c := &Contact{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, member_a, member_b, verified FROM contacts WHERE id = $1", requestID).
		Scan(&c.ID, &c.MemberA, &c.MemberB, &c.Verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select contact: %w", err)
	}
	return c, nil
}

// Accept flips an edge to verified. It only ever updates; the pair keeps a
// single row.
func (r *Repository) Accept(ctx context.Context, requestID int) error {
	res, err := r.db.ExecContext(ctx, "UPDATE contacts SET verified = TRUE WHERE id = $1", requestID)
	if err != nil {
		return fmt.Errorf("accept contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("accept contact: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) AreVerifiedContacts(ctx context.Context, memberA, memberB int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM contacts WHERE verified = TRUE AND "+pairClause, memberA, memberB).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check verified contact: %w", err)
	}
	return n > 0, nil
}

// Remove deletes the pair's edge whichever way it was stored. Removing a
// missing edge is not an error.
func (r *Repository) Remove(ctx context.Context, memberA, memberB int) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM contacts WHERE "+pairClause, memberA, memberB); err != nil {
		return fmt.Errorf("remove contact: %w", err)
	}
	return nil
}

func (r *Repository) ListForMember(ctx context.Context, memberID int) ([]Entry, error) {
	query := `
		SELECT c.id, m.id, m.email, m.username, c.verified, c.member_a = $1
		FROM contacts c
		JOIN members m ON m.id = CASE WHEN c.member_a = $1 THEN c.member_b ELSE c.member_a END
		WHERE c.member_a = $1 OR c.member_b = $1
		ORDER BY c.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RequestID, &e.MemberID, &e.Email, &e.Username, &e.Verified, &e.Outgoing); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
