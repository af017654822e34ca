package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// AccountRepository реализует repository.AccountRepository используя PostgreSQL
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository создаёт репозиторий аккаунтов
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

const accountColumns = `id, email, password_hash, role, status, full_name, phone, clinic_name, license_number, city,
	credit_limit::text, rejection_reason, approved_at, approved_by, created_at, updated_at`

func scanAccount(row pgx.Row) (repository.Account, error) {
	var a repository.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.Status, &a.FullName, &a.Phone, &a.ClinicName,
		&a.LicenseNumber, &a.City, &a.CreditLimit, &a.RejectionReason, &a.ApprovedAt, &a.ApprovedBy,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *AccountRepository) Create(ctx context.Context, a repository.Account) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO accounts (id, email, password_hash, role, status, full_name, phone, clinic_name,
		                       license_number, city, credit_limit, approved_at, approved_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.Email, a.PasswordHash, a.Role, a.Status, a.FullName, a.Phone, a.ClinicName,
		a.LicenseNumber, a.City, a.CreditLimit.String(), a.ApprovedAt, a.ApprovedBy)
	return mapError(err)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (repository.Account, error) {
	a, err := scanAccount(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return repository.Account{}, mapError(err)
	}
	return a, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (repository.Account, error) {
	a, err := scanAccount(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return repository.Account{}, mapError(err)
	}
	return a, nil
}

// GetByIDForUpdate SELECT ... FOR UPDATE; имеет смысл только внутри WithinTx
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id string) (repository.Account, error) {
	a, err := scanAccount(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return repository.Account{}, mapError(err)
	}
	return a, nil
}

func (r *AccountRepository) Update(ctx context.Context, a repository.Account) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE accounts
		 SET status = $2, full_name = $3, phone = $4, clinic_name = $5, license_number = $6, city = $7,
		     credit_limit = $8, rejection_reason = $9, approved_at = $10, approved_by = $11, updated_at = now()
		 WHERE id = $1`,
		a.ID, a.Status, a.FullName, a.Phone, a.ClinicName, a.LicenseNumber, a.City,
		a.CreditLimit.String(), a.RejectionReason, a.ApprovedAt, a.ApprovedBy)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context, q repository.AccountQuery) ([]repository.Account, error) {
	limit := q.Limit
	if limit < 0 {
		limit = 0
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE ($1 = '' OR role = $1) AND ($2 = '' OR status = $2)
		 ORDER BY created_at DESC, id
		 LIMIT NULLIF($3::int, 0) OFFSET $4`,
		string(q.Role), string(q.Status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
