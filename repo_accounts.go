package credentials

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the full persistence surface for account records. The narrow
// AccountStore contract the lifecycle manager consumes is a subset of it.
type Accounts interface {
	repository.Repository[*Account]

	ByID(ctx context.Context, id string) (*Account, error)
	ByEmail(ctx context.Context, email string) (*Account, error)
	ByVerificationToken(ctx context.Context, token string) (*Account, error)
	ByResetToken(ctx context.Context, token string) (*Account, error)

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	MarkVerified(ctx context.Context, id string) error
	SetRefreshToken(ctx context.Context, id, value string) error
	SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error)
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	ReplacePassword(ctx context.Context, id, passwordHash string) error

	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackSucccessfulLogin(ctx context.Context, account *Account) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ AccountStore                    = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) ByID(ctx context.Context, id string) (*Account, error) {
	return a.selectOne(ctx, "?TableAlias.id = ?", id)
}

func (a *accounts) ByEmail(ctx context.Context, email string) (*Account, error) {
	return a.selectOne(ctx, "?TableAlias.email = ?", email)
}

// ByVerificationToken matches consumed tokens too: verification is idempotent
// and the second call has to find the already verified account.
func (a *accounts) ByVerificationToken(ctx context.Context, token string) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.verification_token = ?", token).
		WhereOr("?TableAlias.consumed_verification_token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, newAccountNotFound(nil)
		}
		return nil, err
	}
	return record, nil
}

// ByResetToken matches on the token value only; the expiry instant travels on
// the record and the caller owns the boundary check.
func (a *accounts) ByResetToken(ctx context.Context, token string) (*Account, error) {
	return a.selectOne(ctx, "?TableAlias.reset_token = ?", token)
}

func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	prepareAccountDefaults(account)

	created, err := a.Repository.CreateTx(ctx, tx, account)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "email already registered")
		}
		return nil, err
	}

	return created, nil
}

// MarkVerified flips the verified flag and moves the outstanding token into
// the consumed column in one statement, so token and verified=true are never
// both present.
func (a *accounts) MarkVerified(ctx context.Context, id string) error {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("is_verified = ?", true).
		Set("consumed_verification_token = verification_token").
		Set("verification_token = NULL").
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.verification_token IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return newAccountNotFound(map[string]any{"id": id})
	}

	return nil
}

func (a *accounts) SetRefreshToken(ctx context.Context, id, value string) error {
	_, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("refresh_token = ?", value).
		Set("loggedin_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

// SwapRefreshToken is the compare-and-overwrite the rotation model hinges on:
// the slot only moves when the stored value still equals current, so two
// racing rotations cannot both observe their token as live.
func (a *accounts) SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	q := a.db.NewUpdate().
		Model((*Account)(nil)).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.refresh_token = ?", current)

	if next == "" {
		q = q.Set("refresh_token = NULL")
	} else {
		q = q.Set("refresh_token = ?", next)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (a *accounts) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("reset_token = ?", token).
		Set("reset_expires_at = ?", expiresAt).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return newAccountNotFound(map[string]any{"id": id})
	}

	return nil
}

// ReplacePassword swaps the hash and clears the reset token, its expiry, and
// the refresh slot in the same statement: a reset ends the live session.
func (a *accounts) ReplacePassword(ctx context.Context, id, passwordHash string) error {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("reset_token = NULL").
		Set("reset_expires_at = NULL").
		Set("refresh_token = NULL").
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return newAccountNotFound(map[string]any{"id": id})
	}

	return nil
}

func (a *accounts) TrackAttemptedLogin(ctx context.Context, account *Account) error {
	now := time.Now()
	_, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("login_attempts = login_attempts + 1").
		Set("login_attempt_at = ?", now).
		Where("?TableAlias.id = ?", account.ID).
		Exec(ctx)
	return err
}

func (a *accounts) TrackSucccessfulLogin(ctx context.Context, account *Account) error {
	// NOTE: Updating using the ORM fails due to a bug, it wont reset
	// login_attempt_at, login_attempts fields.
	loggedInAt := time.Now()
	_, err := a.db.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("acc".id = ?);
	`, loggedInAt, account.ID).Exec(ctx)

	return err
}

func (a *accounts) selectOne(ctx context.Context, where string, arg any) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, newAccountNotFound(nil)
		}
		return nil, err
	}
	return record, nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	record.Email = NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
