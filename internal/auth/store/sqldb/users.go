package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
)

type usersRepo struct {
	q *Queries
}

const userColumns = `id, email, username, password_hash, role, status, is_verified,
	first_name, last_name, oauth_provider, oauth_subject, telegram_id, telegram_username,
	mfa_enabled_at, mfa_secret, last_login_at, created_at, updated_at`

func (r *usersRepo) getUser(ctx context.Context, where string, arg any) (domain.User, error) {
	row := r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getUser(ctx, `id = ?`, id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getUser(ctx, `email = ?`, email)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getUser(ctx, `username = ?`, username)
}

func (r *usersRepo) GetUserByTelegramID(ctx context.Context, telegramID int64) (domain.User, error) {
	return r.getUser(ctx, `telegram_id = ?`, telegramID)
}

func (r *usersRepo) GetUserByOAuth(ctx context.Context, provider, subject string) (domain.User, error) {
	row := r.q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE oauth_provider = ? AND oauth_subject = ?`,
		provider, subject)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.exec(ctx, `INSERT INTO users (
		id, email, username, password_hash, role, status, is_verified,
		first_name, last_name, oauth_provider, oauth_subject, telegram_id, telegram_username,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		u.Username,
		nullString(u.PasswordHash),
		string(u.Role),
		string(u.Status),
		u.Verified,
		nullString(u.FirstName),
		nullString(u.LastName),
		nullString(u.OAuthProvider),
		nullString(u.OAuthSubject),
		nullInt64(u.TelegramID),
		nullString(u.TelegramUsername),
		u.CreatedAt.Unix(),
		u.UpdatedAt.Unix(),
	)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, now.Unix(), userID)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`,
		at.Unix(), userID)
}

func (r *usersRepo) UpdateStatus(ctx context.Context, userID string, status domain.UserStatus, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now.Unix(), userID)
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), now.Unix(), userID)
}

func (r *usersRepo) MarkVerified(ctx context.Context, userID string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET is_verified = ?, updated_at = ? WHERE id = ?`,
		true, now.Unix(), userID)
}

func (r *usersRepo) LinkOAuth(ctx context.Context, userID, provider, subject string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET oauth_provider = ?, oauth_subject = ?, updated_at = ? WHERE id = ?`,
		provider, subject, now.Unix(), userID)
}

func (r *usersRepo) LinkTelegram(ctx context.Context, userID string, tg domain.TelegramIdentity, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET telegram_id = ?, telegram_username = ?, updated_at = ? WHERE id = ?`,
		tg.ID, nullString(tg.Username), now.Unix(), userID)
}

func (r *usersRepo) UnlinkTelegram(ctx context.Context, userID string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET telegram_id = NULL, telegram_username = NULL, updated_at = ? WHERE id = ?`,
		now.Unix(), userID)
}

func (r *usersRepo) UpdateMFASecret(ctx context.Context, userID string, sealed []byte, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET mfa_secret = ?, updated_at = ? WHERE id = ?`,
		sealed, now.Unix(), userID)
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID string, at time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET mfa_enabled_at = ?, updated_at = ? WHERE id = ? AND mfa_secret IS NOT NULL`,
		at.Unix(), at.Unix(), userID)
}

func (r *usersRepo) DisableMFA(ctx context.Context, userID string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET mfa_enabled_at = NULL, mfa_secret = NULL, updated_at = ? WHERE id = ?`,
		now.Unix(), userID)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                                 domain.User
		role, status                      string
		passwordHash, firstName, lastName sql.NullString
		oauthProvider, oauthSubject       sql.NullString
		telegramID                        sql.NullInt64
		telegramUsername                  sql.NullString
		mfaEnabledAt, lastLoginAt         sql.NullInt64
		mfaSecret                         []byte
		createdAt, updatedAt              int64
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &passwordHash, &role, &status, &u.Verified,
		&firstName, &lastName, &oauthProvider, &oauthSubject, &telegramID, &telegramUsername,
		&mfaEnabledAt, &mfaSecret, &lastLoginAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}

	u.PasswordHash = passwordHash.String
	u.Role = domain.Role(role)
	u.Status = domain.UserStatus(status)
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.OAuthProvider = oauthProvider.String
	u.OAuthSubject = oauthSubject.String
	u.TelegramID = mapNullInt64(telegramID)
	u.TelegramUsername = telegramUsername.String
	u.MFAEnabledAt = mapUnixPtr(mfaEnabledAt)
	u.MFASecret = mfaSecret
	u.LastLoginAt = mapUnixPtr(lastLoginAt)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return u, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func mapNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

func mapUnixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
