package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lingolink/backend/internal/db"
	"github.com/lingolink/backend/internal/models"
)

const userColumns = `
        u.id, u.email, u.password_hash, u.full_name, u.bio, u.profile_pic,
        u.native_language, u.learning_language, u.location, u.is_onboarded,
        COALESCE(ARRAY(SELECT f.friend_id FROM user_friends f WHERE f.user_id = u.id), '{}'::TEXT[]),
        u.created_at, u.updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record. Friend sets start empty.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, full_name, bio, profile_pic,
                           native_language, learning_language, location, is_onboarded,
                           created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, user.ID, user.Email, user.Password, user.FullName, user.Bio, user.ProfilePic,
		user.NativeLanguage, user.LearningLanguage, user.Location, user.IsOnboarded,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `WHERE u.email = $1`, email)
}

// FindByID fetches a user, including their friend set, by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `WHERE u.id = $1`, id)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users u `+where, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// Update modifies the profile fields of an existing user. Friend sets are
// not touched; they change only through FriendRepository.Accept.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET email = $2, password_hash = $3, full_name = $4, bio = $5, profile_pic = $6,
            native_language = $7, learning_language = $8, location = $9,
            is_onboarded = $10, updated_at = $11
        WHERE id = $1
    `, user.ID, user.Email, user.Password, user.FullName, user.Bio, user.ProfilePic,
		user.NativeLanguage, user.LearningLanguage, user.Location, user.IsOnboarded, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListRecommended returns onboarded users other than userID who are not
// already in userID's friend set.
func (r *PostgresUserRepository) ListRecommended(ctx context.Context, userID string) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+userColumns+`
        FROM users u
        WHERE u.id <> $1
          AND u.is_onboarded
          AND u.id NOT IN (SELECT f.friend_id FROM user_friends f WHERE f.user_id = $1)
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query recommended users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommended user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommended users: %w", err)
	}

	return users, nil
}

// ListFriends returns the public profiles of every friend of userID.
func (r *PostgresUserRepository) ListFriends(ctx context.Context, userID string) ([]models.PublicProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.full_name, u.profile_pic, u.native_language, u.learning_language
        FROM user_friends f
        JOIN users u ON u.id = f.friend_id
        WHERE f.user_id = $1
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query friends: %w", err)
	}
	defer rows.Close()

	var friends []models.PublicProfile
	for rows.Next() {
		var p models.PublicProfile
		if err := rows.Scan(&p.ID, &p.FullName, &p.ProfilePic, &p.NativeLanguage, &p.LearningLanguage); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}

	return friends, nil
}

// PostgresFriendRepository provides PostgreSQL-backed persistence for friend requests.
type PostgresFriendRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresFriendRepository constructs a friend repository backed by PostgreSQL.
func NewPostgresFriendRepository(pool db.Pool) *PostgresFriendRepository {
	return &PostgresFriendRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// CreateRequest persists a new friend request. The unordered-pair index turns
// a second request between the same two users into ErrConflict.
func (r *PostgresFriendRepository) CreateRequest(ctx context.Context, request models.FriendRequest) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friend_requests (id, sender_id, recipient_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, request.ID, request.SenderID, request.RecipientID, request.Status, request.CreatedAt, request.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert friend request: %w", err)
	}

	return nil
}

// FindRequest loads a friend request by identifier.
func (r *PostgresFriendRepository) FindRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	return r.findOne(ctx, `WHERE id = $1`, requestID)
}

// FindBetween loads the request linking a and b, in either direction.
func (r *PostgresFriendRepository) FindBetween(ctx context.Context, a, b string) (models.FriendRequest, error) {
	return r.findOne(ctx, `
        WHERE (sender_id = $1 AND recipient_id = $2)
           OR (sender_id = $2 AND recipient_id = $1)
        LIMIT 1`, a, b)
}

func (r *PostgresFriendRepository) findOne(ctx context.Context, where string, args ...any) (models.FriendRequest, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, sender_id, recipient_id, status, created_at, updated_at
        FROM friend_requests `+where, args...)

	var req models.FriendRequest
	if err := row.Scan(&req.ID, &req.SenderID, &req.RecipientID, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FriendRequest{}, ErrNotFound
		}
		return models.FriendRequest{}, fmt.Errorf("select friend request: %w", err)
	}
	return req, nil
}

// Accept flips the request to accepted and inserts both friend edges in one
// serializable transaction.
func (r *PostgresFriendRepository) Accept(ctx context.Context, request models.FriendRequest) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return db.RunSerializable(ctx, conn, "accept friend request", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE friend_requests
            SET status = $2, updated_at = $3
            WHERE id = $1
        `, request.ID, models.FriendStatusAccepted, r.now())
		if err != nil {
			return fmt.Errorf("update friend request: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		if _, err := tx.Exec(ctx, `
            INSERT INTO user_friends (user_id, friend_id)
            VALUES ($1, $2), ($2, $1)
            ON CONFLICT (user_id, friend_id) DO NOTHING
        `, request.SenderID, request.RecipientID); err != nil {
			return fmt.Errorf("insert friend edges: %w", err)
		}

		return nil
	})
}

// ListIncoming returns requests addressed to recipientID with the given
// status, joined with the sender's public profile.
func (r *PostgresFriendRepository) ListIncoming(ctx context.Context, recipientID, status string) ([]models.FriendRequestView, error) {
	return r.listJoined(ctx, "recipient_id", "sender_id", recipientID, status, func(v *models.FriendRequestView, p *models.PublicProfile) {
		v.Sender = p
	})
}

// ListOutgoing returns requests sent by senderID with the given status,
// joined with the recipient's public profile.
func (r *PostgresFriendRepository) ListOutgoing(ctx context.Context, senderID, status string) ([]models.FriendRequestView, error) {
	return r.listJoined(ctx, "sender_id", "recipient_id", senderID, status, func(v *models.FriendRequestView, p *models.PublicProfile) {
		v.Recipient = p
	})
}

// listJoined is only ever called with the fixed column names above.
func (r *PostgresFriendRepository) listJoined(ctx context.Context, ownerColumn, otherColumn, userID, status string, attach func(*models.FriendRequestView, *models.PublicProfile)) ([]models.FriendRequestView, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT fr.id, fr.sender_id, fr.recipient_id, fr.status, fr.created_at, fr.updated_at,
               u.id, u.full_name, u.profile_pic, u.native_language, u.learning_language
        FROM friend_requests fr
        JOIN users u ON u.id = fr.`+otherColumn+`
        WHERE fr.`+ownerColumn+` = $1 AND fr.status = $2
    `, userID, status)
	if err != nil {
		return nil, fmt.Errorf("query friend requests: %w", err)
	}
	defer rows.Close()

	var views []models.FriendRequestView
	for rows.Next() {
		var (
			view    models.FriendRequestView
			profile models.PublicProfile
		)
		if err := rows.Scan(&view.ID, &view.SenderID, &view.RecipientID, &view.Status, &view.CreatedAt, &view.UpdatedAt,
			&profile.ID, &profile.FullName, &profile.ProfilePic, &profile.NativeLanguage, &profile.LearningLanguage); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		attach(&view, &profile)
		views = append(views, view)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}

	return views, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Password, &user.FullName, &user.Bio, &user.ProfilePic,
		&user.NativeLanguage, &user.LearningLanguage, &user.Location, &user.IsOnboarded,
		&user.Friends, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ FriendRepository = (*PostgresFriendRepository)(nil)
