package compliance

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kdadks/eyogi/core"
)

// fakeRepo is an in-memory Repository honoring the same guards as the
// database implementations.
type fakeRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]Item
	forms map[string]Form
	subs  map[string]Submission
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items: make(map[string]Item),
		forms: make(map[string]Form),
		subs:  make(map[string]Submission),
	}
}

func (r *fakeRepo) nextID() string {
	r.seq++
	return strconv.Itoa(r.seq)
}

func (r *fakeRepo) CreateItem(_ context.Context, item Item) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = r.nextID()
	r.items[item.ID] = item
	return item, nil
}

func (r *fakeRepo) GetItemByID(_ context.Context, id string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (r *fakeRepo) QueryItems(_ context.Context, filter ItemFilter) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []Item
	for _, item := range r.items {
		if filter.ActiveOnly && !item.IsActive {
			continue
		}
		if filter.Role != "" && item.TargetRole != filter.Role {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *fakeRepo) UpdateItem(_ context.Context, item Item) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return Item{}, ErrItemNotFound
	}
	r.items[item.ID] = item
	return item, nil
}

func (r *fakeRepo) GetFormByID(_ context.Context, id string) (Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	form, ok := r.forms[id]
	if !ok {
		return Form{}, ErrFormNotFound
	}
	return form, nil
}

func (r *fakeRepo) CreateForm(_ context.Context, form Form) (Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	form.ID = r.nextID()
	r.forms[form.ID] = form
	return form, nil
}

func (r *fakeRepo) UpdateForm(_ context.Context, form Form) (Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.forms[form.ID]; !ok {
		return Form{}, ErrFormNotFound
	}
	r.forms[form.ID] = form
	return form, nil
}

func (r *fakeRepo) CreateSubmission(_ context.Context, sub Submission) (Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ItemID == sub.ItemID && s.UserID == sub.UserID && s.Status.IsLive() {
			return Submission{}, ErrAlreadySubmitted
		}
	}
	sub.ID = r.nextID()
	for i := range sub.Files {
		sub.Files[i].ID = r.nextID()
		sub.Files[i].SubmissionID = sub.ID
	}
	r.subs[sub.ID] = sub
	return sub, nil
}

func (r *fakeRepo) GetSubmissionByID(_ context.Context, id string) (Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	return sub, nil
}

func (r *fakeRepo) GetLatestSubmission(_ context.Context, itemID, userID string) (Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest Submission
	var found bool
	for _, sub := range r.subs {
		if sub.ItemID != itemID || sub.UserID != userID {
			continue
		}
		if !found || sub.SubmittedAt.After(latest.SubmittedAt) {
			latest = sub
			found = true
		}
	}
	if !found {
		return Submission{}, ErrSubmissionNotFound
	}
	return latest, nil
}

func (r *fakeRepo) QuerySubmissions(_ context.Context, filter SubmissionFilter) ([]Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var subs []Submission
	for _, sub := range r.subs {
		if filter.ItemID != "" && sub.ItemID != filter.ItemID {
			continue
		}
		if filter.UserID != "" && sub.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (r *fakeRepo) UpdateSubmissionStatus(_ context.Context, id string, from, to Status, review Review) (Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	if sub.Status != from {
		return Submission{}, ErrInvalidTransition
	}
	sub.Status = to
	at := review.ReviewedAt
	sub.ReviewedAt = &at
	sub.ReviewedBy = review.ReviewedBy
	sub.RejectionReason = review.RejectionReason
	r.subs[id] = sub
	return sub, nil
}

// fakeStore records uploads; FailUpload makes Upload fail.
type fakeStore struct {
	mu         sync.Mutex
	keys       []string
	FailUpload bool
}

func (s *fakeStore) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpload {
		return "", io.ErrUnexpectedEOF
	}
	_, _ = io.Copy(io.Discard, r)
	s.keys = append(s.keys, key)
	return "store://" + key, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	submitted []Submission
	reviewed  []Submission
	newItems  []Item
}

func (n *fakeNotifier) FormSubmitted(_ context.Context, _ Item, sub Submission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, sub)
}

func (n *fakeNotifier) SubmissionReviewed(_ context.Context, _ Item, sub Submission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviewed = append(n.reviewed, sub)
}

func (n *fakeNotifier) NewItem(_ context.Context, item Item) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.newItems = append(n.newItems, item)
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setupService(t *testing.T) (*Service, *fakeRepo, *fakeStore, *fakeNotifier) {
	t.Helper()
	validate, translator := core.NewValidator()
	RegisterValidators(validate, translator)

	repo := newFakeRepo()
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	svc := NewService(repo, store, notifier, nopLogger{}, validate)
	return svc, repo, store, notifier
}

func createItem(t *testing.T, repo *fakeRepo, role Role, typ ItemType, formID string, due ...time.Time) Item {
	t.Helper()
	now := time.Now().UTC()
	item := Item{
		Title:       "Item",
		TargetRole:  role,
		Type:        typ,
		IsMandatory: true,
		HasForm:     formID != "",
		FormID:      formID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(due) > 0 {
		d := due[0].UTC()
		item.DueDate = &d
	}
	item, err := repo.CreateItem(context.Background(), item)
	if err != nil {
		t.Fatalf("createItem() failed: %v", err)
	}
	return item
}

func createForm(t *testing.T, repo *fakeRepo, fields ...FormField) Form {
	t.Helper()
	form, err := repo.CreateForm(context.Background(), Form{
		Title: "Form", Fields: fields, IsActive: true, Version: 1,
	})
	if err != nil {
		t.Fatalf("createForm() failed: %v", err)
	}
	return form
}

func TestService_CreateItem(t *testing.T) {
	svc, repo, _, notifier := setupService(t)
	ctx := context.Background()

	t.Run("missing fields fail validation", func(t *testing.T) {
		_, err := svc.CreateItem(ctx, "admin1", NewItem{})
		assert.Error(t, err)
	})

	t.Run("invalid role fails validation", func(t *testing.T) {
		_, err := svc.CreateItem(ctx, "admin1", NewItem{Title: "T", TargetRole: "pupil", Type: ItemVerification})
		assert.Error(t, err)
	})

	t.Run("has_form requires form_id", func(t *testing.T) {
		_, err := svc.CreateItem(ctx, "admin1", NewItem{
			Title: "T", TargetRole: RoleTeacher, Type: ItemFormSubmission, HasForm: true,
		})
		verr, ok := err.(*core.ValidationError)
		if !ok {
			t.Fatalf("CreateItem() error = %v, want ValidationError", err)
		}
		assert.Equal(t, "form_id", verr.Fields[0].Field)
	})

	t.Run("dangling form reference rejected", func(t *testing.T) {
		_, err := svc.CreateItem(ctx, "admin1", NewItem{
			Title: "T", TargetRole: RoleTeacher, Type: ItemFormSubmission, HasForm: true, FormID: "nope",
		})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("created active and broadcast", func(t *testing.T) {
		form := createForm(t, repo, FormField{Name: "f", Label: "F", Type: FieldText})
		item, err := svc.CreateItem(ctx, "admin1", NewItem{
			Title: "Garda Vetting", TargetRole: RoleTeacher, Type: ItemFormSubmission, HasForm: true, FormID: form.ID,
		})
		if err != nil {
			t.Fatalf("CreateItem() failed: %v", err)
		}
		assert.True(t, item.IsActive)
		assert.Equal(t, "admin1", item.CreatedBy)
		assert.Len(t, notifier.newItems, 1)
	})
}

func TestService_UpdateForm_versioning(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	base := NewForm{
		Title: "Vetting",
		Fields: []NewFormField{
			{Name: "full_name", Label: "Full Name", Type: FieldText, Required: true, Order: 1},
			{Name: "dob", Label: "Date of Birth", Type: FieldDate, Order: 2},
		},
	}
	form, err := svc.CreateForm(ctx, "admin1", base)
	if err != nil {
		t.Fatalf("CreateForm() failed: %v", err)
	}
	assert.Equal(t, 1, form.Version)

	tests := []struct {
		name        string
		mutate      func(nf *NewForm)
		wantVersion int
	}{
		{name: "cosmetic label edit", mutate: func(nf *NewForm) { nf.Fields[0].Label = "Name in Full" }, wantVersion: 1},
		{name: "required toggle", mutate: func(nf *NewForm) { nf.Fields[1].Required = true }, wantVersion: 1},
		{name: "field added", mutate: func(nf *NewForm) {
			nf.Fields = append(nf.Fields, NewFormField{Name: "email", Label: "Email", Type: FieldEmail, Order: 3})
		}, wantVersion: 2},
		{name: "field removed", mutate: func(nf *NewForm) { nf.Fields = nf.Fields[:1] }, wantVersion: 2},
		{name: "field renamed", mutate: func(nf *NewForm) { nf.Fields[1].Name = "birth_date" }, wantVersion: 2},
		{name: "field re-typed", mutate: func(nf *NewForm) { nf.Fields[1].Type = FieldText }, wantVersion: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nf := NewForm{Title: base.Title, Fields: make([]NewFormField, len(base.Fields))}
			copy(nf.Fields, base.Fields)
			tt.mutate(&nf)

			got, err := svc.UpdateForm(ctx, form.ID, nf)
			if err != nil {
				t.Fatalf("UpdateForm() failed: %v", err)
			}
			assert.Equal(t, tt.wantVersion, got.Version)

			// restore baseline
			if _, err := svc.UpdateForm(ctx, form.ID, base); err != nil {
				t.Fatalf("restoring form failed: %v", err)
			}
			form, _ = svc.GetForm(ctx, form.ID)
			form.Version = 1
			_, _ = svc.repo.UpdateForm(ctx, form)
		})
	}
}

func TestService_CreateForm_fieldRules(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	t.Run("duplicate names rejected", func(t *testing.T) {
		_, err := svc.CreateForm(ctx, "admin1", NewForm{
			Title: "F",
			Fields: []NewFormField{
				{Name: "dup", Label: "A", Type: FieldText},
				{Name: "dup", Label: "B", Type: FieldText},
			},
		})
		verr, ok := err.(*core.ValidationError)
		if !ok {
			t.Fatalf("CreateForm() error = %v, want ValidationError", err)
		}
		assert.Equal(t, "dup", verr.Fields[0].Field)
	})

	t.Run("choice fields need options", func(t *testing.T) {
		_, err := svc.CreateForm(ctx, "admin1", NewForm{
			Title:  "F",
			Fields: []NewFormField{{Name: "lang", Label: "Language", Type: FieldSelect}},
		})
		assert.IsType(t, &core.ValidationError{}, err)
	})
}

func TestService_MarkComplete(t *testing.T) {
	svc, repo, _, notifier := setupService(t)
	ctx := context.Background()

	item := createItem(t, repo, RoleParent, ItemVerification, "")

	sub, err := svc.MarkComplete(ctx, item.ID, "user1")
	if err != nil {
		t.Fatalf("MarkComplete() failed: %v", err)
	}
	assert.Equal(t, StatusSubmitted, sub.Status)
	assert.Empty(t, sub.FormData)
	assert.Len(t, notifier.submitted, 1)

	t.Run("second completion refused", func(t *testing.T) {
		_, err := svc.MarkComplete(ctx, item.ID, "user1")
		assert.Equal(t, ErrAlreadySubmitted, err)
	})

	t.Run("form item refused", func(t *testing.T) {
		form := createForm(t, repo, FormField{Name: "f", Label: "F", Type: FieldText})
		formItem := createItem(t, repo, RoleParent, ItemFormSubmission, form.ID)
		_, err := svc.MarkComplete(ctx, formItem.ID, "user1")
		assert.Equal(t, ErrFormRequired, err)
	})

	t.Run("inactive form falls back to completion", func(t *testing.T) {
		form := createForm(t, repo, FormField{Name: "f", Label: "F", Type: FieldText})
		form.IsActive = false
		_, _ = repo.UpdateForm(ctx, form)
		formItem := createItem(t, repo, RoleParent, ItemFormSubmission, form.ID)

		sub, err := svc.MarkComplete(ctx, formItem.ID, "user1")
		if err != nil {
			t.Fatalf("MarkComplete() failed: %v", err)
		}
		assert.Equal(t, StatusSubmitted, sub.Status)
	})

	t.Run("inactive item refused", func(t *testing.T) {
		dead := createItem(t, repo, RoleParent, ItemVerification, "")
		dead.IsActive = false
		_, _ = repo.UpdateItem(ctx, dead)
		_, err := svc.MarkComplete(ctx, dead.ID, "user1")
		assert.Equal(t, ErrItemNotFound, err)
	})
}

func TestService_SubmitForm(t *testing.T) {
	svc, repo, store, notifier := setupService(t)
	ctx := context.Background()

	form := createForm(t, repo,
		FormField{Name: "full_name", Label: "Full Name", Type: FieldText, Required: true, Order: 1},
		FormField{Name: "cert", Label: "Certificate", Type: FieldFile, Required: true, Order: 2,
			Validation: &FieldValidation{AllowedFileTypes: []string{"pdf"}}},
	)
	item := createItem(t, repo, RoleTeacher, ItemFormSubmission, form.ID)

	upload := func() FileUpload {
		return FileUpload{
			FieldName: "cert", Filename: "cert.pdf", ContentType: "application/pdf",
			Size: 512, Content: strings.NewReader("%PDF-"),
		}
	}

	t.Run("invalid data rejected before any upload", func(t *testing.T) {
		_, err := svc.SubmitForm(ctx, NewSubmission{
			ItemID: item.ID, UserID: "user1",
			FormData: FormData{},
			Files:    []FileUpload{upload()},
		})
		verr, ok := err.(*FormValidationError)
		if !ok {
			t.Fatalf("SubmitForm() error = %v, want FormValidationError", err)
		}
		assert.Contains(t, verr.Fields, "full_name")
		assert.Empty(t, store.keys, "no files may be stored for a failed attempt")
	})

	t.Run("valid submission stores files", func(t *testing.T) {
		sub, err := svc.SubmitForm(ctx, NewSubmission{
			ItemID: item.ID, UserID: "user1",
			FormData: FormData{"full_name": "Jane Doe"},
			Files:    []FileUpload{upload()},
		})
		if err != nil {
			t.Fatalf("SubmitForm() failed: %v", err)
		}
		assert.Equal(t, StatusSubmitted, sub.Status)
		assert.Len(t, sub.Files, 1)
		assert.Equal(t, "cert.pdf", sub.Files[0].OriginalName)
		assert.True(t, strings.HasPrefix(sub.Files[0].FileURL, "store://compliance/"+item.ID+"/user1/"))
		assert.Len(t, store.keys, 1)
		assert.Len(t, notifier.submitted, 1)
	})

	t.Run("second live submission refused and uploads rolled back", func(t *testing.T) {
		_, err := svc.SubmitForm(ctx, NewSubmission{
			ItemID: item.ID, UserID: "user1",
			FormData: FormData{"full_name": "Jane Doe"},
			Files:    []FileUpload{upload()},
		})
		assert.Equal(t, ErrAlreadySubmitted, err)
		assert.Len(t, store.keys, 1, "rolled-back attempt must not leak uploads")
	})

	t.Run("resubmit after rejection keeps the rejected record", func(t *testing.T) {
		subs, _ := repo.QuerySubmissions(ctx, SubmissionFilter{ItemID: item.ID, UserID: "user1"})
		if len(subs) != 1 {
			t.Fatalf("expected 1 submission, got %d", len(subs))
		}
		_, err := svc.Review(ctx, subs[0].ID, "admin1", ReviewDecision{Action: ActionReject, RejectionReason: "blurry scan"})
		if err != nil {
			t.Fatalf("Review() failed: %v", err)
		}

		sub, err := svc.SubmitForm(ctx, NewSubmission{
			ItemID: item.ID, UserID: "user1",
			FormData: FormData{"full_name": "Jane Doe"},
			Files:    []FileUpload{upload()},
		})
		if err != nil {
			t.Fatalf("SubmitForm() after rejection failed: %v", err)
		}
		assert.Equal(t, StatusSubmitted, sub.Status)

		subs, _ = repo.QuerySubmissions(ctx, SubmissionFilter{ItemID: item.ID, UserID: "user1"})
		assert.Len(t, subs, 2, "rejected record must be retained")
	})
}

func TestService_Review(t *testing.T) {
	svc, repo, _, notifier := setupService(t)
	ctx := context.Background()
	item := createItem(t, repo, RoleStudent, ItemVerification, "")

	newSubmitted := func(user string) Submission {
		sub, err := svc.MarkComplete(ctx, item.ID, user)
		if err != nil {
			t.Fatalf("MarkComplete() failed: %v", err)
		}
		return sub
	}

	t.Run("approve", func(t *testing.T) {
		sub := newSubmitted("u1")
		got, err := svc.Review(ctx, sub.ID, "admin1", ReviewDecision{Action: ActionApprove})
		if err != nil {
			t.Fatalf("Review() failed: %v", err)
		}
		assert.Equal(t, StatusApproved, got.Status)
		assert.Equal(t, "admin1", got.ReviewedBy)
		assert.NotNil(t, got.ReviewedAt)
		assert.Len(t, notifier.reviewed, 1)
	})

	t.Run("reject without reason refused", func(t *testing.T) {
		sub := newSubmitted("u2")
		_, err := svc.Review(ctx, sub.ID, "admin1", ReviewDecision{Action: ActionReject})
		assert.Equal(t, ErrMissingReason, err)
	})

	t.Run("reject with reason", func(t *testing.T) {
		sub := newSubmitted("u3")
		got, err := svc.Review(ctx, sub.ID, "admin1", ReviewDecision{Action: ActionReject, RejectionReason: "incomplete"})
		if err != nil {
			t.Fatalf("Review() failed: %v", err)
		}
		assert.Equal(t, StatusRejected, got.Status)
		assert.Equal(t, "incomplete", got.RejectionReason)
	})

	t.Run("double review refused", func(t *testing.T) {
		sub := newSubmitted("u4")
		if _, err := svc.Review(ctx, sub.ID, "admin1", ReviewDecision{Action: ActionApprove}); err != nil {
			t.Fatalf("Review() failed: %v", err)
		}
		_, err := svc.Review(ctx, sub.ID, "admin2", ReviewDecision{Action: ActionReject, RejectionReason: "nope"})
		assert.Equal(t, ErrInvalidTransition, err)
	})

	t.Run("invalid action fails validation", func(t *testing.T) {
		sub := newSubmitted("u5")
		_, err := svc.Review(ctx, sub.ID, "admin1", ReviewDecision{Action: "escalate"})
		assert.Error(t, err)
	})

	t.Run("unknown submission", func(t *testing.T) {
		_, err := svc.Review(ctx, "nope", "admin1", ReviewDecision{Action: ActionApprove})
		assert.Equal(t, ErrSubmissionNotFound, err)
	})
}

func TestService_GetUserChecklist(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	svc.nowFunc = func() time.Time { return now }

	overdueItem := createItem(t, repo, RoleTeacher, ItemVerification, "", now.Add(-24*time.Hour))
	openItem := createItem(t, repo, RoleTeacher, ItemVerification, "", now.Add(24*time.Hour))
	otherRole := createItem(t, repo, RoleParent, ItemVerification, "")
	_ = otherRole

	checklist, err := svc.GetUserChecklist(ctx, "user1", RoleTeacher)
	if err != nil {
		t.Fatalf("GetUserChecklist() failed: %v", err)
	}
	assert.Len(t, checklist, 2)

	byItem := make(map[string]ChecklistItem, len(checklist))
	for _, ci := range checklist {
		byItem[ci.Item.ID] = ci
	}
	assert.Equal(t, StatusNone, byItem[overdueItem.ID].Status)
	assert.True(t, byItem[overdueItem.ID].Overdue)
	assert.True(t, byItem[overdueItem.ID].CanSubmit)
	assert.False(t, byItem[openItem.ID].Overdue)

	// approval clears the overdue flag
	sub, err := svc.MarkComplete(ctx, overdueItem.ID, "user1")
	if err != nil {
		t.Fatalf("MarkComplete() failed: %v", err)
	}
	if _, err = svc.Review(ctx, sub.ID, "admin1", ReviewDecision{Action: ActionApprove}); err != nil {
		t.Fatalf("Review() failed: %v", err)
	}

	checklist, err = svc.GetUserChecklist(ctx, "user1", RoleTeacher)
	if err != nil {
		t.Fatalf("GetUserChecklist() failed: %v", err)
	}
	for _, ci := range checklist {
		if ci.Item.ID == overdueItem.ID {
			assert.Equal(t, StatusApproved, ci.Status)
			assert.False(t, ci.Overdue)
			assert.False(t, ci.CanSubmit)
		}
	}
}

func TestService_GetStats(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	svc.nowFunc = func() time.Time { return now }

	// 5 items: approved, approved, submitted, rejected, untouched
	var items []Item
	for i := 0; i < 5; i++ {
		items = append(items, createItem(t, repo, RoleStudent, ItemVerification, ""))
	}
	approve := func(itemID string) {
		sub, err := svc.MarkComplete(ctx, itemID, "user1")
		if err != nil {
			t.Fatalf("MarkComplete() failed: %v", err)
		}
		if _, err = svc.Review(ctx, sub.ID, "admin1", ReviewDecision{Action: ActionApprove}); err != nil {
			t.Fatalf("Review() failed: %v", err)
		}
	}
	approve(items[0].ID)
	approve(items[1].ID)
	if _, err := svc.MarkComplete(ctx, items[2].ID, "user1"); err != nil {
		t.Fatalf("MarkComplete() failed: %v", err)
	}
	sub, err := svc.MarkComplete(ctx, items[3].ID, "user1")
	if err != nil {
		t.Fatalf("MarkComplete() failed: %v", err)
	}
	if _, err = svc.Review(ctx, sub.ID, "admin1", ReviewDecision{Action: ActionReject, RejectionReason: "nope"}); err != nil {
		t.Fatalf("Review() failed: %v", err)
	}

	stats, err := svc.GetStats(ctx, "user1", RoleStudent)
	if err != nil {
		t.Fatalf("GetStats() failed: %v", err)
	}
	assert.Equal(t, Stats{
		TotalItems:           5,
		CompletedItems:       2,
		PendingItems:         3,
		OverdueItems:         0,
		CompletionPercentage: 40,
	}, stats)
}

func TestService_GetStats_empty(t *testing.T) {
	svc, _, _, _ := setupService(t)

	stats, err := svc.GetStats(context.Background(), "user1", RoleParent)
	if err != nil {
		t.Fatalf("GetStats() failed: %v", err)
	}
	assert.Equal(t, Stats{}, stats)
}

func TestService_GetAdminStats(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	teacherItem := createItem(t, repo, RoleTeacher, ItemVerification, "")
	parentItem := createItem(t, repo, RoleParent, ItemVerification, "")

	subA, _ := svc.MarkComplete(ctx, teacherItem.ID, "t1")
	if _, err := svc.Review(ctx, subA.ID, "admin1", ReviewDecision{Action: ActionApprove}); err != nil {
		t.Fatalf("Review() failed: %v", err)
	}
	if _, err := svc.MarkComplete(ctx, teacherItem.ID, "t2"); err != nil {
		t.Fatalf("MarkComplete() failed: %v", err)
	}
	if _, err := svc.MarkComplete(ctx, parentItem.ID, "p1"); err != nil {
		t.Fatalf("MarkComplete() failed: %v", err)
	}

	stats, err := svc.GetAdminStats(ctx)
	if err != nil {
		t.Fatalf("GetAdminStats() failed: %v", err)
	}
	assert.Equal(t, 2, stats.TotalItems)
	assert.Equal(t, 3, stats.TotalSubmissions)
	assert.Equal(t, 2, stats.PendingReviews)
	assert.Equal(t, 2, stats.ByStatus[StatusSubmitted])
	assert.Equal(t, 1, stats.ByStatus[StatusApproved])
	assert.Equal(t, 1, stats.ByRole[RoleTeacher].Submissions[StatusApproved])
	assert.Equal(t, 1, stats.ByRole[RoleTeacher].Submissions[StatusSubmitted])
	assert.Equal(t, 1, stats.ByRole[RoleParent].Submissions[StatusSubmitted])
	assert.Equal(t, 1, stats.ByRole[RoleTeacher].TotalItems)
}
