package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BKarthik7/glimpse/internal/model"
)

// ErrDuplicateEmail maps the users.email unique violation.
var ErrDuplicateEmail = errors.New("email already registered")

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.PasswordHash, user.Name, user.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, created_at
		FROM users
		WHERE email = $1
	`, email)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.CreatedAt)
	return user, err
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, created_at
		FROM users
		WHERE id = $1
	`, userID)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.CreatedAt)
	return user, err
}

func (s *Store) CreateSubmission(ctx context.Context, submission model.Submission) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (id, owner_id, name, country, company, questions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, submission.ID, submission.OwnerID, submission.Name, submission.Country, submission.Company,
		submission.Questions, submission.CreatedAt, submission.UpdatedAt)
	return err
}

func (s *Store) CountSubmissions(ctx context.Context) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&total)
	return total, err
}

// ListSubmissions returns one page in the fixed listing order. The order must
// be total: skip/limit paging over a partial order can drop or repeat rows
// when inserts land between page reads.
func (s *Store) ListSubmissions(ctx context.Context, limit, offset int) ([]model.SubmissionWithOwner, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.owner_id, s.name, s.country, s.company, s.questions, s.created_at, s.updated_at, u.name
		FROM submissions s
		JOIN users u ON u.id = s.owner_id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (s *Store) ListSubmissionsByOwner(ctx context.Context, ownerID string) ([]model.SubmissionWithOwner, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.owner_id, s.name, s.country, s.company, s.questions, s.created_at, s.updated_at, u.name
		FROM submissions s
		JOIN users u ON u.id = s.owner_id
		WHERE s.owner_id = $1
		ORDER BY s.created_at DESC, s.id DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func scanSubmissions(rows pgx.Rows) ([]model.SubmissionWithOwner, error) {
	submissions := make([]model.SubmissionWithOwner, 0)
	for rows.Next() {
		var submission model.SubmissionWithOwner
		if err := rows.Scan(
			&submission.ID,
			&submission.OwnerID,
			&submission.Name,
			&submission.Country,
			&submission.Company,
			&submission.Questions,
			&submission.CreatedAt,
			&submission.UpdatedAt,
			&submission.OwnerName,
		); err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	return submissions, rows.Err()
}
