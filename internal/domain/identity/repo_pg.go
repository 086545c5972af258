package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

const userCols = `id, username, email, password_hash, first_name, last_name,
	phone_number, role, is_mfa_enabled, mfa_secret, is_active, created_at, updated_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.PhoneNumber, &u.Role, &u.IsMFAEnabled, &u.MFASecret, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &u, err
}

// translateUnique maps unique-constraint violations onto the duplicate
// sentinels so callers do not inspect SQLSTATEs.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return ErrDuplicateEmail
		}
		return ErrDuplicateUsername
	}
	return err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO app_user (id, username, email, password_hash, first_name, last_name,
			phone_number, role, is_mfa_enabled, mfa_secret, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.PhoneNumber, u.Role, u.IsMFAEnabled, u.MFASecret, u.IsActive)
	return translateUnique(err)
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE username = $1`, username))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE email = $1`, email))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE app_user SET email=$2, first_name=$3, last_name=$4, phone_number=$5,
			role=$6, is_mfa_enabled=$7, mfa_secret=$8, is_active=$9, password_hash=$10, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PhoneNumber,
		u.Role, u.IsMFAEnabled, u.MFASecret, u.IsActive, u.PasswordHash)
	return translateUnique(err)
}

func (r *userRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE app_user SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error) {
	query := `SELECT ` + userCols + ` FROM app_user WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM app_user WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["role"]; ok {
		query += fmt.Sprintf(` AND role = $%d`, idx)
		countQuery += fmt.Sprintf(` AND role = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["active"]; ok {
		query += fmt.Sprintf(` AND is_active = $%d`, idx)
		countQuery += fmt.Sprintf(` AND is_active = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR username ILIKE $%d)`, idx, idx, idx)
		countQuery += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR username ILIKE $%d)`, idx, idx, idx)
		args = append(args, "%"+p+"%")
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

// =========== Role Groups ===========

type groupRepoPG struct{ pool *pgxpool.Pool }

func NewGroupRepoPG(pool *pgxpool.Pool) GroupRepository { return &groupRepoPG{pool: pool} }

const groupCols = `id, name, description, permissions, created_at`

func (r *groupRepoPG) scanGroup(row pgx.Row) (*RoleGroup, error) {
	var g RoleGroup
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.Permissions, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	return &g, err
}

func (r *groupRepoPG) Create(ctx context.Context, g *RoleGroup) error {
	g.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_group (id, name, description, permissions)
		VALUES ($1,$2,$3,$4)`,
		g.ID, g.Name, g.Description, g.Permissions)
	return err
}

func (r *groupRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RoleGroup, error) {
	return r.scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupCols+` FROM role_group WHERE id = $1`, id))
}

func (r *groupRepoPG) GetByName(ctx context.Context, name string) (*RoleGroup, error) {
	return r.scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupCols+` FROM role_group WHERE name = $1`, name))
}

func (r *groupRepoPG) List(ctx context.Context, limit, offset int) ([]*RoleGroup, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM role_group`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+groupCols+` FROM role_group ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*RoleGroup
	for rows.Next() {
		g, err := r.scanGroup(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, g)
	}
	return items, total, rows.Err()
}

func (r *groupRepoPG) AssignUser(ctx context.Context, userID, groupID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_role_group (user_id, group_id)
		VALUES ($1,$2)
		ON CONFLICT (user_id, group_id) DO NOTHING`,
		userID, groupID)
	return err
}

func (r *groupRepoPG) RemoveUser(ctx context.Context, userID, groupID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_role_group WHERE user_id = $1 AND group_id = $2`, userID, groupID)
	return err
}

func (r *groupRepoPG) GroupsForUser(ctx context.Context, userID uuid.UUID) ([]*RoleGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.id, g.name, g.description, g.permissions, g.created_at
		FROM role_group g
		JOIN user_role_group ug ON ug.group_id = g.id
		WHERE ug.user_id = $1
		ORDER BY g.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*RoleGroup
	for rows.Next() {
		g, err := r.scanGroup(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}
