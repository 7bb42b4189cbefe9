package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kitovu/farmreg/api/internal/database"
	"github.com/kitovu/farmreg/api/internal/models"
)

// UserRepository defines the data access operations for registry operators.
// Users are never deleted; farmer, farm, and affiliation rows reference them
// as creator/updater.
type UserRepository interface {
	// GetByEmail looks a user up by email.
	// Returns nil, nil if no user has that email (not an error).
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID looks a user up by id.
	// Returns nil, nil if no user has that id (not an error).
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// CreateEnumerator inserts a new enumerator account. Returns
	// ErrDuplicate when the email or username is already taken.
	CreateEnumerator(ctx context.Context, email, username, passwordHash string) (*models.User, error)

	// UpdatePassword replaces the stored credential hash for a user.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// EnsureAdmin seeds the bootstrap administrator account if no user with
	// the given email exists. Safe to call on every startup.
	EnsureAdmin(ctx context.Context, email, username, passwordHash string) error
}

// userRepository is the concrete implementation of UserRepository.
type userRepository struct {
	db *database.Database
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *database.Database) UserRepository {
	return &userRepository{
		db: db,
	}
}

const selectUserColumns = `id, email, username, password, role, created_at, updated_at`

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, selectUserColumns)

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, selectUserColumns)

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user %s: %w", id, err)
	}
	return user, nil
}

func (r *userRepository) CreateEnumerator(ctx context.Context, email, username, passwordHash string) (*models.User, error) {
	query := fmt.Sprintf(`
		INSERT INTO users (email, username, password, role)
		VALUES ($1, $2, $3, 'enumerator')
		RETURNING %s
	`, selectUserColumns)

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, email, username, passwordHash))
	if err != nil {
		return nil, classifyWriteError("user", err)
	}
	return user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password for user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) EnsureAdmin(ctx context.Context, email, username, passwordHash string) error {
	query := `
		INSERT INTO users (email, username, password, role)
		SELECT $1, $2, $3, 'administrator'
		WHERE NOT EXISTS (SELECT 1 FROM users WHERE email = $1)
	`

	if _, err := r.db.Pool.Exec(ctx, query, email, username, passwordHash); err != nil {
		return fmt.Errorf("failed to seed administrator account: %w", err)
	}
	return nil
}

// scanUser scans one user row from a QueryRow result.
func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
