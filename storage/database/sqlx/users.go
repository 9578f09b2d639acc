package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kdadks/eyogi/core/compliance"
	"github.com/kdadks/eyogi/core/notification"
)

// userDirectory reads the host platform's account table. Accounts are owned
// and written by the main application; this module only looks them up.
type userDirectory struct {
	db *sqlx.DB
}

var _ notification.UserDirectory = (*userDirectory)(nil)

func NewUserDirectory(db *sqlx.DB) *userDirectory {
	return &userDirectory{db: db}
}

type userRow struct {
	ID       string      `db:"id"`
	FullName null.String `db:"full_name"`
	Email    null.String `db:"email"`
}

func (dir userDirectory) GetUser(ctx context.Context, id string) (notification.UserInfo, error) {
	var row userRow
	err := dir.db.GetContext(ctx, &row, `
		SELECT id, full_name, email FROM account WHERE id = $1`,
		id,
	)
	if err != nil {
		return notification.UserInfo{}, trapNoRowsErr(err, notification.ErrNotFound, "getting account")
	}
	return notification.UserInfo{ID: row.ID, Name: row.FullName.String, Email: row.Email.String}, nil
}

func (dir userDirectory) QueryUsersByRole(ctx context.Context, role compliance.Role) ([]notification.UserInfo, error) {
	var rows []userRow
	err := dir.db.SelectContext(ctx, &rows, `
		SELECT id, full_name, email FROM account WHERE role = $1 AND is_active`,
		string(role),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying accounts by role")
	}
	users := make([]notification.UserInfo, 0, len(rows))
	for _, row := range rows {
		users = append(users, notification.UserInfo{ID: row.ID, Name: row.FullName.String, Email: row.Email.String})
	}
	return users, nil
}
