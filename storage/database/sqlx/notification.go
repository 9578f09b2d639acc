package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kdadks/eyogi/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

type notificationRow struct {
	ID           string      `db:"id"`
	UserID       string      `db:"user_id"`
	Type         string      `db:"type"`
	Title        string      `db:"title"`
	Message      string      `db:"message"`
	ItemID       null.String `db:"item_id"`
	SubmissionID null.String `db:"submission_id"`
	IsRead       bool        `db:"is_read"`
	ReadAt       null.Time   `db:"read_at"`
	Metadata     []byte      `db:"metadata"`
	CreatedAt    null.Time   `db:"created_at"`
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = uuid.New().String()
	row, err := repo.pack(n)
	if err != nil {
		return notification.Notification{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO compliance_notification (id, user_id, type, title, message, item_id, submission_id, is_read, read_at, metadata, created_at)
		VALUES (:id, :user_id, :type, :title, :message, :item_id, :submission_id, :is_read, :read_at, :metadata, :created_at)`,
		row,
	)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM compliance_notification WHERE id = $1`, id); err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "getting notification")
	}
	return repo.unpack(row)
}

func (repo notificationRepository) QueryByUser(ctx context.Context, userID string) ([]notification.Notification, error) {
	var rows []notificationRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM compliance_notification WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	ntfs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		n, err := repo.unpack(row)
		if err != nil {
			return nil, err
		}
		ntfs = append(ntfs, n)
	}
	return ntfs, nil
}

func (repo notificationRepository) MarkRead(ctx context.Context, id string, at time.Time) (notification.Notification, error) {
	var row notificationRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE compliance_notification
		SET is_read = TRUE, read_at = $1
		WHERE id = $2
		RETURNING *`,
		at.UTC(), id,
	)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "marking notification read")
	}
	return repo.unpack(row)
}

func (repo notificationRepository) DeleteNotification(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM compliance_notification WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo notificationRepository) pack(n notification.Notification) (notificationRow, error) {
	var metadata []byte
	if len(n.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(n.Metadata); err != nil {
			return notificationRow{}, errors.Wrap(err, "marshaling notification metadata")
		}
	}
	return notificationRow{
		ID:           n.ID,
		UserID:       n.UserID,
		Type:         string(n.Type),
		Title:        n.Title,
		Message:      n.Message,
		ItemID:       null.NewString(n.ItemID, n.ItemID != ""),
		SubmissionID: null.NewString(n.SubmissionID, n.SubmissionID != ""),
		IsRead:       n.IsRead,
		ReadAt:       null.TimeFromPtr(n.ReadAt),
		Metadata:     metadata,
		CreatedAt:    null.NewTime(n.CreatedAt.UTC(), !n.CreatedAt.IsZero()),
	}, nil
}

func (repo notificationRepository) unpack(row notificationRow) (notification.Notification, error) {
	var metadata map[string]string
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return notification.Notification{}, errors.Wrap(err, "unmarshaling notification metadata")
		}
	}
	return notification.Notification{
		ID:           row.ID,
		UserID:       row.UserID,
		Type:         notification.Type(row.Type),
		Title:        row.Title,
		Message:      row.Message,
		ItemID:       row.ItemID.String,
		SubmissionID: row.SubmissionID.String,
		IsRead:       row.IsRead,
		ReadAt:       row.ReadAt.Ptr(),
		Metadata:     metadata,
		CreatedAt:    row.CreatedAt.Time,
	}, nil
}
