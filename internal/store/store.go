// Package store persists relational state (accounts and office todos)
// in Postgres. Vector data lives in the vector store, not here.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound reports that the referenced row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	DB *sql.DB
}

func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// User operations

func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	return
}

// Todo operations

type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Store) ListTodos(ctx context.Context) ([]Todo, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, title, completed, created_at FROM todos ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Todo
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTodo(ctx context.Context, title string) (Todo, error) {
	var t Todo
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO todos (title) VALUES ($1) RETURNING id, title, completed, created_at`,
		title).Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt)
	if err != nil {
		return Todo{}, fmt.Errorf("creating todo: %w", err)
	}
	return t, nil
}

// ToggleTodo flips the completion flag and returns the updated row.
func (s *Store) ToggleTodo(ctx context.Context, id int64) (Todo, error) {
	var t Todo
	err := s.DB.QueryRowContext(ctx,
		`UPDATE todos SET completed = NOT completed WHERE id=$1 RETURNING id, title, completed, created_at`,
		id).Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Todo{}, fmt.Errorf("toggling todo %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) DeleteTodo(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM todos WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	return nil
}
