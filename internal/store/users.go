package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/instrumenti/internal/model"
)

var userColumns = []string{"id", "username", "password_hash", "role", "created_at", "deleted_at"}

// CreateUser creates a new account.
func CreateUser(ctx context.Context, q Querier, username, passwordHash, role string) (*model.User, error) {
	result, err := exec(ctx, q, builder.Insert("users").
		Columns("username", "password_hash", "role").
		Values(username, passwordHash, role))
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID, soft-deleted ones included.
func GetUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	return getUserWhere(ctx, q, sq.Eq{"id": id})
}

// GetUserByUsername returns the active account with that username, falling
// back to the most recently deleted one so auth can tell them apart.
func GetUserByUsername(ctx context.Context, q Querier, username string) (*model.User, error) {
	return getUserWhere(ctx, q, sq.Eq{"username": username})
}

func getUserWhere(ctx context.Context, q Querier, pred sq.Eq) (*model.User, error) {
	query, args, err := builder.Select(userColumns...).
		From("users").
		Where(pred).
		OrderBy("deleted_at IS NOT NULL", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	u, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, q Querier) ([]model.User, error) {
	rows, err := queryRows(ctx, q, builder.Select(userColumns...).
		From("users").
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of non-deleted users.
func CountUsers(ctx context.Context, q Querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	_, err := exec(ctx, q, builder.Update("users").
		Set("password_hash", passwordHash).
		Where(sq.Eq{"id": id, "deleted_at": nil}))
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return u, nil
}
