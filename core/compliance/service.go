package compliance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/kdadks/eyogi/core"
)

var (
	// errors
	ErrItemNotFound       = errors.New("compliance item not found")
	ErrFormNotFound       = errors.New("compliance form not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadySubmitted   = errors.New("a submission is already in review or approved for this item")
	ErrMissingReason      = errors.New("a rejection reason is required")
	ErrFormRequired       = errors.New("this item requires a form submission")
)

type (
	// ItemFilter narrows item queries. Zero value selects everything.
	ItemFilter struct {
		Role       Role
		ActiveOnly bool
	}

	// SubmissionFilter narrows submission queries. Zero value selects everything.
	SubmissionFilter struct {
		ItemID string
		UserID string
		Status Status
	}

	// Review records an administrator's verdict on a submission row.
	Review struct {
		ReviewedBy      string
		ReviewedAt      time.Time
		RejectionReason string
	}

	Repository interface {
		CreateItem(ctx context.Context, item Item) (Item, error)
		GetItemByID(ctx context.Context, id string) (Item, error)
		QueryItems(ctx context.Context, filter ItemFilter) ([]Item, error)
		UpdateItem(ctx context.Context, item Item) (Item, error)

		GetFormByID(ctx context.Context, id string) (Form, error)
		CreateForm(ctx context.Context, form Form) (Form, error)
		UpdateForm(ctx context.Context, form Form) (Form, error)

		// CreateSubmission atomically refuses to insert when a live submission
		// already exists for the (item, user) pair: it returns ErrAlreadySubmitted,
		// never a duplicate row.
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		// GetLatestSubmission returns the most recent submission for the pair,
		// or ErrSubmissionNotFound when none exists.
		GetLatestSubmission(ctx context.Context, itemID, userID string) (Submission, error)
		QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
		// UpdateSubmissionStatus transitions `id` from `from` to `to` with a guard
		// on the current status: zero rows affected means the row is no longer in
		// `from` and surfaces as ErrInvalidTransition, never as success.
		UpdateSubmissionStatus(ctx context.Context, id string, from, to Status, review Review) (Submission, error)
	}

	// Notifier receives workflow transitions and fans them out to users.
	// Implementations are best-effort; they must not fail the workflow.
	Notifier interface {
		FormSubmitted(ctx context.Context, item Item, sub Submission)
		SubmissionReviewed(ctx context.Context, item Item, sub Submission)
		NewItem(ctx context.Context, item Item)
	}

	Service struct {
		repo     Repository
		files    core.FileStore
		notifier Notifier
		logger   core.Logger
		validate *validator.Validate

		nowFunc func() time.Time // mockable
	}
)

func NewService(repo Repository, files core.FileStore, notifier Notifier, logger core.Logger, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		files:    files,
		notifier: notifier,
		logger:   logger,
		validate: validate,
		nowFunc:  time.Now,
	}
}

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

// Items

func (svc *Service) QueryItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	return svc.repo.QueryItems(ctx, filter)
}

func (svc *Service) GetItem(ctx context.Context, id string) (Item, error) {
	return svc.repo.GetItemByID(ctx, id)
}

func (svc *Service) CreateItem(ctx context.Context, adminID string, ni NewItem) (Item, error) {
	if err := ni.Validate(svc.validate); err != nil {
		return Item{}, err
	}
	if ni.HasForm {
		if err := svc.checkFormActive(ctx, ni.FormID); err != nil {
			return Item{}, err
		}
	}

	now := svc.now()
	item, err := svc.repo.CreateItem(ctx, Item{
		Title:       ni.Title,
		Description: ni.Description,
		TargetRole:  ni.TargetRole,
		Type:        ni.Type,
		IsMandatory: ni.IsMandatory,
		DueDate:     ni.DueDate,
		HasForm:     ni.HasForm,
		FormID:      ni.FormID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   adminID,
	})
	if err != nil {
		return Item{}, err
	}
	svc.notifier.NewItem(ctx, item)
	return item, nil
}

func (svc *Service) UpdateItem(ctx context.Context, id string, ui UpdateItem) (Item, error) {
	if err := ui.Validate(svc.validate); err != nil {
		return Item{}, err
	}
	item, err := svc.repo.GetItemByID(ctx, id)
	if err != nil {
		return Item{}, err
	}

	if ui.Title != "" {
		item.Title = ui.Title
	}
	if ui.Description != "" {
		item.Description = ui.Description
	}
	if ui.IsMandatory != nil {
		item.IsMandatory = *ui.IsMandatory
	}
	if ui.DueDate != nil {
		item.DueDate = ui.DueDate
	}
	if ui.HasForm != nil {
		item.HasForm = *ui.HasForm
	}
	if ui.FormID != "" {
		item.FormID = ui.FormID
	}
	if ui.IsActive != nil {
		item.IsActive = *ui.IsActive
	}
	if item.HasForm {
		if item.FormID == "" {
			return Item{}, core.NewValidationError(nil, core.FieldError{Field: "form_id", Error: "this field is required"})
		}
		if err := svc.checkFormActive(ctx, item.FormID); err != nil {
			return Item{}, err
		}
	}

	item.UpdatedAt = svc.now()
	return svc.repo.UpdateItem(ctx, item)
}

// DeactivateItem soft-deletes an item; submissions referencing it are retained.
func (svc *Service) DeactivateItem(ctx context.Context, id string) (Item, error) {
	item, err := svc.repo.GetItemByID(ctx, id)
	if err != nil {
		return Item{}, err
	}
	item.IsActive = false
	item.UpdatedAt = svc.now()
	return svc.repo.UpdateItem(ctx, item)
}

func (svc *Service) checkFormActive(ctx context.Context, formID string) error {
	form, err := svc.repo.GetFormByID(ctx, formID)
	if err != nil {
		if pkgerrors.Cause(err) == ErrFormNotFound {
			return core.NewValidationError(ErrFormNotFound, core.FieldError{Field: "form_id", Error: "referenced form does not exist"})
		}
		return err
	}
	if !form.IsActive {
		return core.NewValidationError(ErrFormNotFound, core.FieldError{Field: "form_id", Error: "referenced form is inactive"})
	}
	return nil
}

// Forms

func (svc *Service) GetForm(ctx context.Context, id string) (Form, error) {
	return svc.repo.GetFormByID(ctx, id)
}

func (svc *Service) CreateForm(ctx context.Context, adminID string, nf NewForm) (Form, error) {
	if err := nf.Validate(svc.validate); err != nil {
		return Form{}, err
	}
	now := svc.now()
	return svc.repo.CreateForm(ctx, Form{
		Title:       nf.Title,
		Description: nf.Description,
		Fields:      buildFields(nf.Fields),
		IsActive:    true,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   adminID,
	})
}

// UpdateForm replaces a form's schema. Schema-breaking edits (fields added,
// removed, renamed or re-typed) bump the version; cosmetic edits do not.
func (svc *Service) UpdateForm(ctx context.Context, id string, nf NewForm) (Form, error) {
	if err := nf.Validate(svc.validate); err != nil {
		return Form{}, err
	}
	form, err := svc.repo.GetFormByID(ctx, id)
	if err != nil {
		return Form{}, err
	}

	newFields := buildFields(nf.Fields)
	if schemaBreaking(form.Fields, newFields) {
		form.Version++
	}
	form.Title = nf.Title
	form.Description = nf.Description
	form.Fields = newFields
	form.UpdatedAt = svc.now()
	return svc.repo.UpdateForm(ctx, form)
}

func buildFields(flds []NewFormField) []FormField {
	out := make([]FormField, 0, len(flds))
	for _, f := range flds {
		out = append(out, FormField{
			ID:          uuid.New().String(),
			Name:        f.Name,
			Label:       f.Label,
			Type:        f.Type,
			Required:    f.Required,
			Placeholder: f.Placeholder,
			HelpText:    f.HelpText,
			Options:     f.Options,
			Validation:  f.Validation,
			Order:       f.Order,
		})
	}
	return out
}

func schemaBreaking(old, new []FormField) bool {
	if len(old) != len(new) {
		return true
	}
	types := make(map[string]FieldType, len(old))
	for _, f := range old {
		types[f.Name] = f.Type
	}
	for _, f := range new {
		t, ok := types[f.Name]
		if !ok || t != f.Type {
			return true
		}
	}
	return false
}

// effectiveForm resolves the form governing an item's submissions. A missing or
// inactive form degrades the item to the manual-completion path (nil, nil).
func (svc *Service) effectiveForm(ctx context.Context, item Item) (*Form, error) {
	if !item.HasForm || item.FormID == "" {
		return nil, nil
	}
	form, err := svc.repo.GetFormByID(ctx, item.FormID)
	if err != nil {
		if pkgerrors.Cause(err) == ErrFormNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !form.IsActive {
		return nil, nil
	}
	return &form, nil
}

// Submission workflow

// MarkComplete toggles completion for an item without a form, creating a
// submission directly in `submitted` status with empty form data.
func (svc *Service) MarkComplete(ctx context.Context, itemID, userID string) (Submission, error) {
	item, err := svc.getActiveItem(ctx, itemID)
	if err != nil {
		return Submission{}, err
	}
	form, err := svc.effectiveForm(ctx, item)
	if err != nil {
		return Submission{}, err
	}
	if form != nil {
		return Submission{}, ErrFormRequired
	}
	if err := svc.checkNoLiveSubmission(ctx, itemID, userID); err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.CreateSubmission(ctx, Submission{
		ItemID:      itemID,
		UserID:      userID,
		FormData:    FormData{},
		Status:      StatusSubmitted,
		SubmittedAt: svc.now(),
	})
	if err != nil {
		return Submission{}, err
	}
	svc.notifier.FormSubmitted(ctx, item, sub)
	return sub, nil
}

// SubmitForm validates the attempt against the item's form and, only when every
// field and file passes, creates the submission atomically. Files are uploaded
// before the row is created; on a failed create the uploads are rolled back.
func (svc *Service) SubmitForm(ctx context.Context, ns NewSubmission) (Submission, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Submission{}, err
	}
	item, err := svc.getActiveItem(ctx, ns.ItemID)
	if err != nil {
		return Submission{}, err
	}
	if err := svc.checkNoLiveSubmission(ctx, ns.ItemID, ns.UserID); err != nil {
		return Submission{}, err
	}

	form, err := svc.effectiveForm(ctx, item)
	if err != nil {
		return Submission{}, err
	}
	formData := ns.FormData
	if formData == nil {
		formData = FormData{}
	}
	if form != nil {
		if verr := ValidateForm(form, formData, ns.Files); verr != nil {
			return Submission{}, verr
		}
	}

	now := svc.now()
	files, uploadedKeys, err := svc.uploadFiles(ctx, item, ns, now)
	if err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.CreateSubmission(ctx, Submission{
		ItemID:      ns.ItemID,
		UserID:      ns.UserID,
		FormData:    formData,
		Status:      StatusSubmitted,
		SubmittedAt: now,
		Files:       files,
	})
	if err != nil {
		svc.discardUploads(ctx, uploadedKeys)
		return Submission{}, err
	}
	svc.notifier.FormSubmitted(ctx, item, sub)
	return sub, nil
}

func (svc *Service) uploadFiles(ctx context.Context, item Item, ns NewSubmission, now time.Time) ([]File, []string, error) {
	files := make([]File, 0, len(ns.Files))
	keys := make([]string, 0, len(ns.Files))
	for _, up := range ns.Files {
		key := path.Join("compliance", item.ID, ns.UserID, uuid.New().String()+"_"+up.Filename)
		url, err := svc.files.Upload(ctx, key, up.Content, up.Size, up.ContentType)
		if err != nil {
			svc.discardUploads(ctx, keys)
			return nil, nil, pkgerrors.Wrapf(err, "uploading %s", up.Filename)
		}
		keys = append(keys, key)
		files = append(files, File{
			FieldName:    up.FieldName,
			OriginalName: up.Filename,
			FileURL:      url,
			FileType:     up.ContentType,
			FileSize:     up.Size,
			UploadedAt:   now,
		})
	}
	return files, keys, nil
}

func (svc *Service) discardUploads(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := svc.files.Delete(ctx, key); err != nil {
			svc.logger.Warn(fmt.Sprintf("discarding upload %s: %v", key, err), err)
		}
	}
}

func (svc *Service) getActiveItem(ctx context.Context, itemID string) (Item, error) {
	item, err := svc.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if !item.IsActive {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (svc *Service) checkNoLiveSubmission(ctx context.Context, itemID, userID string) error {
	latest, err := svc.repo.GetLatestSubmission(ctx, itemID, userID)
	if err != nil {
		if pkgerrors.Cause(err) == ErrSubmissionNotFound {
			return nil
		}
		return err
	}
	if latest.Status.IsLive() {
		return ErrAlreadySubmitted
	}
	return nil
}

// Review workflow

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

func (svc *Service) QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, filter)
}

// Review applies an administrator's decision to a submitted attempt. The status
// update is guarded on the current status so two concurrent reviewers cannot
// both land a verdict.
func (svc *Service) Review(ctx context.Context, submissionID, reviewerID string, dec ReviewDecision) (Submission, error) {
	if err := dec.Validate(svc.validate); err != nil {
		return Submission{}, err
	}
	if dec.Action == ActionReject && dec.RejectionReason == "" {
		return Submission{}, ErrMissingReason
	}

	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	target, err := Transition(sub.Status, dec.Action)
	if err != nil {
		return Submission{}, err
	}

	sub, err = svc.repo.UpdateSubmissionStatus(ctx, submissionID, StatusSubmitted, target, Review{
		ReviewedBy:      reviewerID,
		ReviewedAt:      svc.now(),
		RejectionReason: dec.RejectionReason,
	})
	if err != nil {
		return Submission{}, err
	}

	item, err := svc.repo.GetItemByID(ctx, sub.ItemID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("loading item for review notification: %v", err), err)
		return sub, nil
	}
	svc.notifier.SubmissionReviewed(ctx, item, sub)
	return sub, nil
}

// Checklist & stats

// GetUserChecklist joins the role's active items with the user's latest
// submissions into per-item view models.
func (svc *Service) GetUserChecklist(ctx context.Context, userID string, role Role) ([]ChecklistItem, error) {
	items, err := svc.repo.QueryItems(ctx, ItemFilter{Role: role, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	subs, err := svc.repo.QuerySubmissions(ctx, SubmissionFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	latest := make(map[string]Submission, len(subs))
	for _, sub := range subs {
		if prev, ok := latest[sub.ItemID]; !ok || sub.SubmittedAt.After(prev.SubmittedAt) {
			latest[sub.ItemID] = sub
		}
	}

	now := svc.now()
	checklist := make([]ChecklistItem, 0, len(items))
	for _, item := range items {
		ci := ChecklistItem{Item: item, Status: StatusNone}
		if sub, ok := latest[item.ID]; ok {
			sub := sub
			ci.Submission = &sub
			ci.Status = sub.Status
		}
		ci.CanSubmit = ci.Status.CanSubmit()
		ci.Overdue = item.DueDate != nil && item.DueDate.Before(now) && ci.Status != StatusApproved
		checklist = append(checklist, ci)
	}
	return checklist, nil
}

// GetStats computes a user's completion statistics for a role.
func (svc *Service) GetStats(ctx context.Context, userID string, role Role) (Stats, error) {
	checklist, err := svc.GetUserChecklist(ctx, userID, role)
	if err != nil {
		return Stats{}, err
	}
	return statsOf(checklist), nil
}

func statsOf(checklist []ChecklistItem) Stats {
	stats := Stats{TotalItems: len(checklist)}
	for _, ci := range checklist {
		if ci.Status == StatusApproved {
			stats.CompletedItems++
		}
		if ci.Overdue {
			stats.OverdueItems++
		}
	}
	// everything not approved is still outstanding, rejected attempts included
	stats.PendingItems = stats.TotalItems - stats.CompletedItems
	if stats.TotalItems > 0 {
		stats.CompletionPercentage = int(math.Round(float64(stats.CompletedItems) / float64(stats.TotalItems) * 100))
	}
	return stats
}

// GetAdminStats aggregates submission counts by status across all users,
// broken down per target role.
func (svc *Service) GetAdminStats(ctx context.Context) (AdminStats, error) {
	items, err := svc.repo.QueryItems(ctx, ItemFilter{ActiveOnly: true})
	if err != nil {
		return AdminStats{}, err
	}
	subs, err := svc.repo.QuerySubmissions(ctx, SubmissionFilter{})
	if err != nil {
		return AdminStats{}, err
	}

	stats := AdminStats{
		TotalItems:       len(items),
		TotalSubmissions: len(subs),
		ByStatus:         make(map[Status]int),
		ByRole:           make(map[Role]RoleStats),
	}
	roleByItem := make(map[string]Role, len(items))
	for _, item := range items {
		roleByItem[item.ID] = item.TargetRole
		rs := stats.ByRole[item.TargetRole]
		if rs.Submissions == nil {
			rs.Submissions = make(map[Status]int)
		}
		rs.TotalItems++
		stats.ByRole[item.TargetRole] = rs
	}
	for _, sub := range subs {
		stats.ByStatus[sub.Status]++
		if role, ok := roleByItem[sub.ItemID]; ok {
			stats.ByRole[role].Submissions[sub.Status]++
		}
	}
	stats.PendingReviews = stats.ByStatus[StatusSubmitted]
	return stats, nil
}
