package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/practicehub/practicehub/internal/platform/db"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// User is a staff login stored in the company schema.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Roles        []string  `json:"roles"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// MenuGrants returns navigation item ids granted to the user on top of
	// their role defaults.
	MenuGrants(ctx context.Context, userID uuid.UUID) ([]string, error)
	GrantMenu(ctx context.Context, userID uuid.UUID, itemID string) error
}

func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Authenticate returns the active user matching email and password. Unknown
// emails and wrong passwords produce the same error.
func Authenticate(ctx context.Context, users UserStore, email, password string) (*User, error) {
	u, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if db.Classify(err) == db.KindNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

type userStorePG struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) UserStore {
	return &userStorePG{pool: pool}
}

const userCols = `id, email, password_hash, first_name, last_name, roles, active, created_at`

func (s *userStorePG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return db.QuerierFrom(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO app_user (id, email, password_hash, first_name, last_name, roles, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Roles, u.Active,
	).Scan(&u.CreatedAt)
}

func (s *userStorePG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(db.QuerierFrom(ctx, s.pool).QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE email = $1`, email))
}

func (s *userStorePG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(db.QuerierFrom(ctx, s.pool).QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

func (s *userStorePG) MenuGrants(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := db.QuerierFrom(ctx, s.pool).Query(ctx,
		`SELECT item_id FROM user_menu_access WHERE user_id = $1 ORDER BY item_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("load menu grants: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *userStorePG) GrantMenu(ctx context.Context, userID uuid.UUID, itemID string) error {
	_, err := db.QuerierFrom(ctx, s.pool).Exec(ctx,
		`INSERT INTO user_menu_access (user_id, item_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, itemID)
	if err != nil {
		return fmt.Errorf("grant menu item: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Roles, &u.Active, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
