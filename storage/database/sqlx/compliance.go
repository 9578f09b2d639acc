package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kdadks/eyogi/core/compliance"
)

type complianceRepository struct {
	db *sqlx.DB
}

var _ compliance.Repository = (*complianceRepository)(nil) // interface compliance check

func NewComplianceRepository(db *sqlx.DB) *complianceRepository {
	return &complianceRepository{db: db}
}

type (
	itemRow struct {
		ID          string      `db:"id"`
		Title       string      `db:"title"`
		Description string      `db:"description"`
		TargetRole  string      `db:"target_role"`
		Type        string      `db:"type"`
		IsMandatory bool        `db:"is_mandatory"`
		DueDate     null.Time   `db:"due_date"`
		HasForm     bool        `db:"has_form"`
		FormID      null.String `db:"form_id"`
		IsActive    bool        `db:"is_active"`
		CreatedAt   null.Time   `db:"created_at"`
		UpdatedAt   null.Time   `db:"updated_at"`
		CreatedBy   null.String `db:"created_by"`
	}

	formRow struct {
		ID          string      `db:"id"`
		Title       string      `db:"title"`
		Description string      `db:"description"`
		Fields      []byte      `db:"fields"`
		IsActive    bool        `db:"is_active"`
		Version     int         `db:"version"`
		CreatedAt   null.Time   `db:"created_at"`
		UpdatedAt   null.Time   `db:"updated_at"`
		CreatedBy   null.String `db:"created_by"`
	}

	submissionRow struct {
		ID              string      `db:"id"`
		ItemID          string      `db:"item_id"`
		UserID          string      `db:"user_id"`
		FormData        []byte      `db:"form_data"`
		Status          string      `db:"status"`
		SubmittedAt     null.Time   `db:"submitted_at"`
		ReviewedAt      null.Time   `db:"reviewed_at"`
		ReviewedBy      null.String `db:"reviewed_by"`
		RejectionReason null.String `db:"rejection_reason"`
	}

	fileRow struct {
		ID           string    `db:"id"`
		SubmissionID string    `db:"submission_id"`
		FieldName    string    `db:"field_name"`
		OriginalName string    `db:"original_name"`
		FileURL      string    `db:"file_url"`
		FileType     string    `db:"file_type"`
		FileSize     int64     `db:"file_size"`
		UploadedAt   null.Time `db:"uploaded_at"`
	}
)

func (repo complianceRepository) packItem(item compliance.Item) itemRow {
	return itemRow{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		TargetRole:  string(item.TargetRole),
		Type:        string(item.Type),
		IsMandatory: item.IsMandatory,
		DueDate:     null.TimeFromPtr(item.DueDate),
		HasForm:     item.HasForm,
		FormID:      null.NewString(item.FormID, item.FormID != ""),
		IsActive:    item.IsActive,
		CreatedAt:   null.NewTime(item.CreatedAt.UTC(), !item.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(item.UpdatedAt.UTC(), !item.UpdatedAt.IsZero()),
		CreatedBy:   null.NewString(item.CreatedBy, item.CreatedBy != ""),
	}
}

func (repo complianceRepository) unpackItem(row itemRow) compliance.Item {
	return compliance.Item{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		TargetRole:  compliance.Role(row.TargetRole),
		Type:        compliance.ItemType(row.Type),
		IsMandatory: row.IsMandatory,
		DueDate:     row.DueDate.Ptr(),
		HasForm:     row.HasForm,
		FormID:      row.FormID.String,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
		CreatedBy:   row.CreatedBy.String,
	}
}

// trapNoRowsErr maps psql "no rows" err to the domain's not-found error.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// Items

func (repo complianceRepository) CreateItem(ctx context.Context, item compliance.Item) (compliance.Item, error) {
	item.ID = uuid.New().String()
	row := repo.packItem(item)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO compliance_item (id, title, description, target_role, type, is_mandatory, due_date, has_form, form_id, is_active, created_at, updated_at, created_by)
		VALUES (:id, :title, :description, :target_role, :type, :is_mandatory, :due_date, :has_form, :form_id, :is_active, :created_at, :updated_at, :created_by)`,
		row,
	)
	if err != nil {
		return compliance.Item{}, errors.Wrap(err, "inserting item")
	}
	return item, nil
}

func (repo complianceRepository) GetItemByID(ctx context.Context, id string) (compliance.Item, error) {
	var row itemRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM compliance_item WHERE id = $1`, id); err != nil {
		return compliance.Item{}, trapNoRowsErr(err, compliance.ErrItemNotFound, "getting item")
	}
	return repo.unpackItem(row), nil
}

func (repo complianceRepository) QueryItems(ctx context.Context, filter compliance.ItemFilter) ([]compliance.Item, error) {
	q := `SELECT * FROM compliance_item WHERE 1=1`
	var args []interface{}
	if filter.ActiveOnly {
		q += ` AND is_active`
	}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		q += ` AND target_role = $1`
	}
	q += ` ORDER BY created_at`

	var rows []itemRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying items")
	}
	items := make([]compliance.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, repo.unpackItem(row))
	}
	return items, nil
}

func (repo complianceRepository) UpdateItem(ctx context.Context, item compliance.Item) (compliance.Item, error) {
	row := repo.packItem(item)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE compliance_item
		SET title = :title, description = :description, is_mandatory = :is_mandatory, due_date = :due_date,
		    has_form = :has_form, form_id = :form_id, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return compliance.Item{}, errors.Wrap(err, "updating item")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return compliance.Item{}, compliance.ErrItemNotFound
	}
	return item, nil
}

// Forms

func (repo complianceRepository) GetFormByID(ctx context.Context, id string) (compliance.Form, error) {
	var row formRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM compliance_form WHERE id = $1`, id); err != nil {
		return compliance.Form{}, trapNoRowsErr(err, compliance.ErrFormNotFound, "getting form")
	}
	return repo.unpackForm(row)
}

func (repo complianceRepository) CreateForm(ctx context.Context, form compliance.Form) (compliance.Form, error) {
	form.ID = uuid.New().String()
	row, err := repo.packForm(form)
	if err != nil {
		return compliance.Form{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO compliance_form (id, title, description, fields, is_active, version, created_at, updated_at, created_by)
		VALUES (:id, :title, :description, :fields, :is_active, :version, :created_at, :updated_at, :created_by)`,
		row,
	)
	if err != nil {
		return compliance.Form{}, errors.Wrap(err, "inserting form")
	}
	return form, nil
}

func (repo complianceRepository) UpdateForm(ctx context.Context, form compliance.Form) (compliance.Form, error) {
	row, err := repo.packForm(form)
	if err != nil {
		return compliance.Form{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE compliance_form
		SET title = :title, description = :description, fields = :fields, is_active = :is_active,
		    version = :version, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return compliance.Form{}, errors.Wrap(err, "updating form")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return compliance.Form{}, compliance.ErrFormNotFound
	}
	return form, nil
}

func (repo complianceRepository) packForm(form compliance.Form) (formRow, error) {
	fields, err := json.Marshal(form.Fields)
	if err != nil {
		return formRow{}, errors.Wrap(err, "marshaling form fields")
	}
	return formRow{
		ID:          form.ID,
		Title:       form.Title,
		Description: form.Description,
		Fields:      fields,
		IsActive:    form.IsActive,
		Version:     form.Version,
		CreatedAt:   null.NewTime(form.CreatedAt.UTC(), !form.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(form.UpdatedAt.UTC(), !form.UpdatedAt.IsZero()),
		CreatedBy:   null.NewString(form.CreatedBy, form.CreatedBy != ""),
	}, nil
}

func (repo complianceRepository) unpackForm(row formRow) (compliance.Form, error) {
	var fields []compliance.FormField
	if len(row.Fields) > 0 {
		if err := json.Unmarshal(row.Fields, &fields); err != nil {
			return compliance.Form{}, errors.Wrap(err, "unmarshaling form fields")
		}
	}
	return compliance.Form{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Fields:      fields,
		IsActive:    row.IsActive,
		Version:     row.Version,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
		CreatedBy:   row.CreatedBy.String,
	}, nil
}

// Submissions

func (repo complianceRepository) CreateSubmission(ctx context.Context, sub compliance.Submission) (compliance.Submission, error) {
	sub.ID = uuid.New().String()
	formData, err := json.Marshal(sub.FormData)
	if err != nil {
		return compliance.Submission{}, errors.Wrap(err, "marshaling form data")
	}
	row := submissionRow{
		ID:              sub.ID,
		ItemID:          sub.ItemID,
		UserID:          sub.UserID,
		FormData:        formData,
		Status:          string(sub.Status),
		SubmittedAt:     null.NewTime(sub.SubmittedAt.UTC(), !sub.SubmittedAt.IsZero()),
		ReviewedAt:      null.TimeFromPtr(sub.ReviewedAt),
		ReviewedBy:      null.NewString(sub.ReviewedBy, sub.ReviewedBy != ""),
		RejectionReason: null.NewString(sub.RejectionReason, sub.RejectionReason != ""),
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return compliance.Submission{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO compliance_submission (id, item_id, user_id, form_data, status, submitted_at, reviewed_at, reviewed_by, rejection_reason)
		VALUES (:id, :item_id, :user_id, :form_data, :status, :submitted_at, :reviewed_at, :reviewed_by, :rejection_reason)`,
		row,
	)
	if err != nil {
		// the partial unique index guards the one-live-submission invariant
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
			return compliance.Submission{}, compliance.ErrAlreadySubmitted
		}
		return compliance.Submission{}, errors.Wrap(err, "inserting submission")
	}

	for i := range sub.Files {
		sub.Files[i].ID = uuid.New().String()
		sub.Files[i].SubmissionID = sub.ID
		f := sub.Files[i]
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO compliance_file (id, submission_id, field_name, original_name, file_url, file_type, file_size, uploaded_at)
			VALUES (:id, :submission_id, :field_name, :original_name, :file_url, :file_type, :file_size, :uploaded_at)`,
			fileRow{
				ID:           f.ID,
				SubmissionID: f.SubmissionID,
				FieldName:    f.FieldName,
				OriginalName: f.OriginalName,
				FileURL:      f.FileURL,
				FileType:     f.FileType,
				FileSize:     f.FileSize,
				UploadedAt:   null.NewTime(f.UploadedAt.UTC(), !f.UploadedAt.IsZero()),
			},
		)
		if err != nil {
			return compliance.Submission{}, errors.Wrap(err, "inserting submission file")
		}
	}

	if err = tx.Commit(); err != nil {
		return compliance.Submission{}, errors.Wrap(err, "committing submission")
	}
	return sub, nil
}

func (repo complianceRepository) GetSubmissionByID(ctx context.Context, id string) (compliance.Submission, error) {
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM compliance_submission WHERE id = $1`, id); err != nil {
		return compliance.Submission{}, trapNoRowsErr(err, compliance.ErrSubmissionNotFound, "getting submission")
	}
	return repo.loadFiles(ctx, row)
}

func (repo complianceRepository) GetLatestSubmission(ctx context.Context, itemID, userID string) (compliance.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT * FROM compliance_submission
		WHERE item_id = $1 AND user_id = $2
		ORDER BY submitted_at DESC
		LIMIT 1`,
		itemID, userID,
	)
	if err != nil {
		return compliance.Submission{}, trapNoRowsErr(err, compliance.ErrSubmissionNotFound, "getting latest submission")
	}
	return repo.loadFiles(ctx, row)
}

func (repo complianceRepository) QuerySubmissions(ctx context.Context, filter compliance.SubmissionFilter) ([]compliance.Submission, error) {
	q := `SELECT * FROM compliance_submission WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return pqPlaceholder(len(args))
	}
	if filter.ItemID != "" {
		q += ` AND item_id = ` + arg(filter.ItemID)
	}
	if filter.UserID != "" {
		q += ` AND user_id = ` + arg(filter.UserID)
	}
	if filter.Status != "" {
		q += ` AND status = ` + arg(string(filter.Status))
	}
	q += ` ORDER BY submitted_at`

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]compliance.Submission, 0, len(rows))
	for _, row := range rows {
		sub, err := repo.unpackSubmission(row)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (repo complianceRepository) UpdateSubmissionStatus(
	ctx context.Context,
	id string,
	from, to compliance.Status,
	review compliance.Review,
) (compliance.Submission, error) {
	var row submissionRow
	// conditional update: zero rows affected is a conflict, never a success
	err := repo.db.GetContext(ctx, &row, `
		UPDATE compliance_submission
		SET status = $1, reviewed_at = $2, reviewed_by = $3, rejection_reason = NULLIF($4, '')
		WHERE id = $5 AND status = $6
		RETURNING *`,
		string(to), review.ReviewedAt.UTC(), review.ReviewedBy, review.RejectionReason, id, string(from),
	)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			if _, getErr := repo.GetSubmissionByID(ctx, id); getErr != nil {
				return compliance.Submission{}, getErr
			}
			return compliance.Submission{}, compliance.ErrInvalidTransition
		}
		return compliance.Submission{}, errors.Wrap(err, "updating submission status")
	}
	return repo.loadFiles(ctx, row)
}

func (repo complianceRepository) unpackSubmission(row submissionRow) (compliance.Submission, error) {
	var formData compliance.FormData
	if len(row.FormData) > 0 {
		if err := json.Unmarshal(row.FormData, &formData); err != nil {
			return compliance.Submission{}, errors.Wrap(err, "unmarshaling form data")
		}
	}
	return compliance.Submission{
		ID:              row.ID,
		ItemID:          row.ItemID,
		UserID:          row.UserID,
		FormData:        formData,
		Status:          compliance.Status(row.Status),
		SubmittedAt:     row.SubmittedAt.Time,
		ReviewedAt:      row.ReviewedAt.Ptr(),
		ReviewedBy:      row.ReviewedBy.String,
		RejectionReason: row.RejectionReason.String,
	}, nil
}

func (repo complianceRepository) loadFiles(ctx context.Context, row submissionRow) (compliance.Submission, error) {
	sub, err := repo.unpackSubmission(row)
	if err != nil {
		return compliance.Submission{}, err
	}

	var fileRows []fileRow
	err = repo.db.SelectContext(ctx, &fileRows, `
		SELECT * FROM compliance_file WHERE submission_id = $1 ORDER BY uploaded_at`,
		sub.ID,
	)
	if err != nil {
		return compliance.Submission{}, errors.Wrap(err, "loading submission files")
	}
	for _, f := range fileRows {
		sub.Files = append(sub.Files, compliance.File{
			ID:           f.ID,
			SubmissionID: f.SubmissionID,
			FieldName:    f.FieldName,
			OriginalName: f.OriginalName,
			FileURL:      f.FileURL,
			FileType:     f.FileType,
			FileSize:     f.FileSize,
			UploadedAt:   f.UploadedAt.Time,
		})
	}
	return sub, nil
}

func pqPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}
