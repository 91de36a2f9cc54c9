package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"group-chat/internal/db"
)

type Repository struct {
	db   *sql.DB
	like string
}

func NewRepository(database *db.Database) *Repository {
	return &Repository{db: database.Conn, like: database.Dialect.Like}
}

func (r *Repository) Create(ctx context.Context, m *Member) (*Member, error) {
	var id int
	query := "INSERT INTO members (email, username, password) VALUES ($1, $2, $3) RETURNING id"

	err := r.db.QueryRowContext(ctx, query, m.Email, m.Username, m.Password).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("insert member: %w", err)
	}

	m.ID = id
	return m, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Member, error) {
	return r.getOne(ctx, "SELECT id, email, username, password FROM members WHERE email = $1", email)
}

func (r *Repository) GetByID(ctx context.Context, id int) (*Member, error) {
	return r.getOne(ctx, "SELECT id, email, username, password FROM members WHERE id = $1", id)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*Member, error) {
	m := &Member{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&m.ID, &m.Email, &m.Username, &m.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select member: %w", err)
	}
	return m, nil
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *Repository) Search(ctx context.Context, query string) ([]Member, error) {
	// We limit to 10 to keep it fast
	q := fmt.Sprintf(`SELECT id, email, username FROM members
		WHERE username %[1]s $1 ESCAPE '\' OR email %[1]s $1 ESCAPE '\'
		ORDER BY username LIMIT 10`, r.like)
	rows, err := r.db.QueryContext(ctx, q, "%"+likeEscaper.Replace(query)+"%")
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Email, &m.Username); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
