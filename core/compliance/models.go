package compliance

import (
	"io"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kdadks/eyogi/core"
)

// Roles a compliance item can target.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
	RoleStudent Role = "student"
)

var AllRoles = []Role{RoleTeacher, RoleParent, RoleStudent}

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ItemType describes how a compliance item is satisfied.
type ItemType string

const (
	ItemFormSubmission ItemType = "form_submission"
	ItemVerification   ItemType = "verification"
	ItemDocumentUpload ItemType = "document_upload"
)

var AllItemTypes = []ItemType{ItemFormSubmission, ItemVerification, ItemDocumentUpload}

func (t ItemType) Valid() bool {
	for _, it := range AllItemTypes {
		if t == it {
			return true
		}
	}
	return false
}

// FieldType is the closed set of form input types.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldFile     FieldType = "file"
	FieldDate     FieldType = "date"
	FieldNumber   FieldType = "number"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
)

var AllFieldTypes = []FieldType{
	FieldText, FieldTextarea, FieldSelect, FieldRadio, FieldCheckbox,
	FieldFile, FieldDate, FieldNumber, FieldEmail, FieldPhone,
}

func (t FieldType) Valid() bool {
	for _, ft := range AllFieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// NeedsOptions reports whether the type renders from a fixed option list.
func (t FieldType) NeedsOptions() bool {
	return t == FieldSelect || t == FieldRadio || t == FieldCheckbox
}

// DefaultMaxFileSize caps uploads on file fields that do not set their own limit.
const DefaultMaxFileSize int64 = 2 << 20 // 2 MiB

// FieldValidation carries the optional per-field rule parameters.
type FieldValidation struct {
	MinLength        *int     `json:"min_length,omitempty"`
	MaxLength        *int     `json:"max_length,omitempty"`
	Pattern          string   `json:"pattern,omitempty"`
	MinValue         *float64 `json:"min_value,omitempty"`
	MaxValue         *float64 `json:"max_value,omitempty"`
	MaxFileSize      int64    `json:"max_file_size,omitempty"` // bytes
	AllowedFileTypes []string `json:"allowed_file_types,omitempty"`
}

// FormField is one input definition within a compliance form.
type FormField struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"` // machine key, unique within a form
	Label       string           `json:"label"`
	Type        FieldType        `json:"type"`
	Required    bool             `json:"required"`
	Placeholder string           `json:"placeholder,omitempty"`
	HelpText    string           `json:"help_text,omitempty"`
	Options     []string         `json:"options,omitempty"`
	Validation  *FieldValidation `json:"validation,omitempty"`
	Order       int              `json:"order"`
}

// MaxFileSize returns the byte cap for file uploads on this field.
func (f FormField) MaxFileSize() int64 {
	if f.Validation != nil && f.Validation.MaxFileSize > 0 {
		return f.Validation.MaxFileSize
	}
	return DefaultMaxFileSize
}

// Form is a versioned schema of ordered fields.
type Form struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Fields      []FormField `json:"fields"`
	IsActive    bool        `json:"is_active"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
	CreatedBy   string      `json:"created_by,omitempty"`
}

// SortedFields returns the fields in render/validation sequence:
// Order ascending, stable for equal Order.
func (f *Form) SortedFields() []FormField {
	flds := make([]FormField, len(f.Fields))
	copy(flds, f.Fields)
	sort.SliceStable(flds, func(i, j int) bool { return flds[i].Order < flds[j].Order })
	return flds
}

// Item is a compliance task assigned to a role.
type Item struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	TargetRole  Role       `json:"target_role"`
	Type        ItemType   `json:"type"`
	IsMandatory bool       `json:"is_mandatory"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	HasForm     bool       `json:"has_form"`
	FormID      string     `json:"form_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
	CreatedBy   string     `json:"created_by,omitempty"`
}

// FormData maps field names to submitted values.
// Values are string | float64 | bool | []string.
type FormData map[string]interface{}

// Submission is one user's attempt against one item.
type Submission struct {
	ID              string     `json:"id"`
	ItemID          string     `json:"compliance_item_id"`
	UserID          string     `json:"user_id"`
	FormData        FormData   `json:"form_data,omitempty"`
	Status          Status     `json:"status"`
	SubmittedAt     time.Time  `json:"submitted_at"` // UTC
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	Files           []File     `json:"files,omitempty"`
}

// File is an uploaded attachment tied to one field of one submission.
type File struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	FieldName    string    `json:"field_name"`
	OriginalName string    `json:"original_name"`
	FileURL      string    `json:"file_url"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	UploadedAt   time.Time `json:"uploaded_at"` // UTC
}

// FileUpload is an incoming attachment, not yet persisted.
type FileUpload struct {
	FieldName   string
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// ChecklistItem is the computed per-user view of an item and its latest submission.
type ChecklistItem struct {
	Item       Item        `json:"item"`
	Submission *Submission `json:"submission,omitempty"`
	Status     Status      `json:"status"`
	CanSubmit  bool        `json:"can_submit"`
	Overdue    bool        `json:"overdue"`
}

// Stats summarizes one user's compliance progress for a role.
type Stats struct {
	TotalItems           int `json:"total_items"`
	CompletedItems       int `json:"completed_items"`
	PendingItems         int `json:"pending_items"`
	OverdueItems         int `json:"overdue_items"`
	CompletionPercentage int `json:"completion_percentage"`
}

// RoleStats breaks admin-wide numbers down for one target role.
type RoleStats struct {
	TotalItems  int            `json:"total_items"`
	Submissions map[Status]int `json:"submissions"`
}

// AdminStats aggregates submissions across all users and items.
type AdminStats struct {
	TotalItems       int               `json:"total_items"`
	TotalSubmissions int               `json:"total_submissions"`
	PendingReviews   int               `json:"pending_reviews"`
	ByStatus         map[Status]int    `json:"submissions_by_status"`
	ByRole           map[Role]RoleStats `json:"by_role"`
}

// NewItem contains information needed to create a compliance item.
type NewItem struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	TargetRole  Role       `json:"target_role" validate:"required,targetrole"`
	Type        ItemType   `json:"type" validate:"required,itemtype"`
	IsMandatory bool       `json:"is_mandatory"`
	DueDate     *time.Time `json:"due_date"`
	HasForm     bool       `json:"has_form"`
	FormID      string     `json:"form_id"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.Title = core.CleanString(ni.Title)
	ni.Description = core.CleanString(ni.Description)
	ni.FormID = core.CleanString(ni.FormID)
	if err := validate.Struct(ni); err != nil {
		return err
	}
	if ni.HasForm && ni.FormID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "form_id", Error: "this field is required"})
	}
	return nil
}

// UpdateItem defines what may be modified on an existing item.
// Nil pointers leave the current value untouched.
type UpdateItem struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsMandatory *bool      `json:"is_mandatory"`
	DueDate     *time.Time `json:"due_date"`
	HasForm     *bool      `json:"has_form"`
	FormID      string     `json:"form_id"`
	IsActive    *bool      `json:"is_active"`
}

func (ui *UpdateItem) Validate(validate *validator.Validate) error {
	ui.Title = core.CleanString(ui.Title)
	ui.Description = core.CleanString(ui.Description)
	ui.FormID = core.CleanString(ui.FormID)
	return validate.Struct(ui)
}

// NewFormField defines one field of a form being created or edited.
type NewFormField struct {
	Name        string           `json:"name" validate:"required"`
	Label       string           `json:"label" validate:"required"`
	Type        FieldType        `json:"type" validate:"required,fieldtype"`
	Required    bool             `json:"required"`
	Placeholder string           `json:"placeholder"`
	HelpText    string           `json:"help_text"`
	Options     []string         `json:"options"`
	Validation  *FieldValidation `json:"validation"`
	Order       int              `json:"order"`
}

// NewForm contains information needed to create or re-version a compliance form.
type NewForm struct {
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description"`
	Fields      []NewFormField `json:"fields" validate:"required,min=1,dive"`
}

func (nf *NewForm) Validate(validate *validator.Validate) error {
	nf.Title = core.CleanString(nf.Title)
	nf.Description = core.CleanString(nf.Description)
	for i := range nf.Fields {
		nf.Fields[i].Name = core.CleanString(nf.Fields[i].Name, true /* lower */)
		nf.Fields[i].Label = core.CleanString(nf.Fields[i].Label)
	}
	if err := validate.Struct(nf); err != nil {
		return err
	}

	var fldErrs []core.FieldError
	seen := make(map[string]bool, len(nf.Fields))
	for _, fld := range nf.Fields {
		if seen[fld.Name] {
			fldErrs = append(fldErrs, core.FieldError{Field: fld.Name, Error: "field name is not unique within the form"})
		}
		seen[fld.Name] = true
		if fld.Type.NeedsOptions() && len(fld.Options) == 0 {
			fldErrs = append(fldErrs, core.FieldError{Field: fld.Name, Error: "options are required for " + string(fld.Type) + " fields"})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// NewSubmission carries a user's form-submit attempt.
type NewSubmission struct {
	ItemID   string       `json:"compliance_item_id" validate:"required"`
	UserID   string       `json:"user_id" validate:"required"`
	FormData FormData     `json:"form_data"`
	Files    []FileUpload `json:"-"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.ItemID = core.CleanString(ns.ItemID)
	ns.UserID = core.CleanString(ns.UserID)
	return validate.Struct(ns)
}

// ReviewDecision is an administrator's verdict on a submitted attempt.
type ReviewDecision struct {
	Action          ReviewAction `json:"action" validate:"required,reviewaction"`
	RejectionReason string       `json:"rejection_reason"`
}

func (rd *ReviewDecision) Validate(validate *validator.Validate) error {
	rd.RejectionReason = core.CleanString(rd.RejectionReason)
	return validate.Struct(rd)
}
