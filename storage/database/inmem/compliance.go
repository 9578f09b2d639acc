package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kdadks/eyogi/core/compliance"
)

type complianceRepository struct {
	items       *itemTable
	forms       *formTable
	submissions *submissionTable
}

var _ compliance.Repository = (*complianceRepository)(nil) // interface compliance check

func NewComplianceRepository(db *DB) *complianceRepository {
	return &complianceRepository{
		items:       db.items,
		forms:       db.forms,
		submissions: db.submissions,
	}
}

// Items

func (repo *complianceRepository) CreateItem(ctx context.Context, item compliance.Item) (compliance.Item, error) {
	repo.items.mutex.Lock()
	defer repo.items.mutex.Unlock()

	item.ID = uuid.New().String()
	repo.items.t[item.ID] = &item
	return item, nil
}

func (repo *complianceRepository) GetItemByID(ctx context.Context, id string) (compliance.Item, error) {
	repo.items.mutex.RLock()
	defer repo.items.mutex.RUnlock()

	if item, ok := repo.items.t[id]; ok {
		return *item, nil
	}
	return compliance.Item{}, compliance.ErrItemNotFound
}

func (repo *complianceRepository) QueryItems(ctx context.Context, filter compliance.ItemFilter) ([]compliance.Item, error) {
	repo.items.mutex.RLock()
	defer repo.items.mutex.RUnlock()

	items := make([]compliance.Item, 0, len(repo.items.t))
	for _, item := range repo.items.t {
		if filter.ActiveOnly && !item.IsActive {
			continue
		}
		if filter.Role != "" && item.TargetRole != filter.Role {
			continue
		}
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (repo *complianceRepository) UpdateItem(ctx context.Context, item compliance.Item) (compliance.Item, error) {
	repo.items.mutex.Lock()
	defer repo.items.mutex.Unlock()

	if _, ok := repo.items.t[item.ID]; !ok {
		return compliance.Item{}, compliance.ErrItemNotFound
	}
	repo.items.t[item.ID] = &item
	return item, nil
}

// Forms

func (repo *complianceRepository) GetFormByID(ctx context.Context, id string) (compliance.Form, error) {
	repo.forms.mutex.RLock()
	defer repo.forms.mutex.RUnlock()

	if form, ok := repo.forms.t[id]; ok {
		return *form, nil
	}
	return compliance.Form{}, compliance.ErrFormNotFound
}

func (repo *complianceRepository) CreateForm(ctx context.Context, form compliance.Form) (compliance.Form, error) {
	repo.forms.mutex.Lock()
	defer repo.forms.mutex.Unlock()

	form.ID = uuid.New().String()
	repo.forms.t[form.ID] = &form
	return form, nil
}

func (repo *complianceRepository) UpdateForm(ctx context.Context, form compliance.Form) (compliance.Form, error) {
	repo.forms.mutex.Lock()
	defer repo.forms.mutex.Unlock()

	if _, ok := repo.forms.t[form.ID]; !ok {
		return compliance.Form{}, compliance.ErrFormNotFound
	}
	repo.forms.t[form.ID] = &form
	return form, nil
}

// Submissions

func (repo *complianceRepository) CreateSubmission(ctx context.Context, sub compliance.Submission) (compliance.Submission, error) {
	repo.submissions.mutex.Lock()
	defer repo.submissions.mutex.Unlock()

	// same guard the partial unique index enforces in Postgres
	for _, existing := range repo.submissions.t {
		if existing.ItemID == sub.ItemID && existing.UserID == sub.UserID && existing.Status.IsLive() {
			return compliance.Submission{}, compliance.ErrAlreadySubmitted
		}
	}

	sub.ID = uuid.New().String()
	for i := range sub.Files {
		sub.Files[i].ID = uuid.New().String()
		sub.Files[i].SubmissionID = sub.ID
	}
	repo.submissions.t[sub.ID] = &sub
	return sub, nil
}

func (repo *complianceRepository) GetSubmissionByID(ctx context.Context, id string) (compliance.Submission, error) {
	repo.submissions.mutex.RLock()
	defer repo.submissions.mutex.RUnlock()

	if sub, ok := repo.submissions.t[id]; ok {
		return *sub, nil
	}
	return compliance.Submission{}, compliance.ErrSubmissionNotFound
}

func (repo *complianceRepository) GetLatestSubmission(ctx context.Context, itemID, userID string) (compliance.Submission, error) {
	repo.submissions.mutex.RLock()
	defer repo.submissions.mutex.RUnlock()

	var latest *compliance.Submission
	for _, sub := range repo.submissions.t {
		if sub.ItemID != itemID || sub.UserID != userID {
			continue
		}
		if latest == nil || sub.SubmittedAt.After(latest.SubmittedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return compliance.Submission{}, compliance.ErrSubmissionNotFound
	}
	return *latest, nil
}

func (repo *complianceRepository) QuerySubmissions(ctx context.Context, filter compliance.SubmissionFilter) ([]compliance.Submission, error) {
	repo.submissions.mutex.RLock()
	defer repo.submissions.mutex.RUnlock()

	subs := make([]compliance.Submission, 0, len(repo.submissions.t))
	for _, sub := range repo.submissions.t {
		if filter.ItemID != "" && sub.ItemID != filter.ItemID {
			continue
		}
		if filter.UserID != "" && sub.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *complianceRepository) UpdateSubmissionStatus(
	ctx context.Context,
	id string,
	from, to compliance.Status,
	review compliance.Review,
) (compliance.Submission, error) {
	repo.submissions.mutex.Lock()
	defer repo.submissions.mutex.Unlock()

	sub, ok := repo.submissions.t[id]
	if !ok {
		return compliance.Submission{}, compliance.ErrSubmissionNotFound
	}
	// read-modify-write with a guard on the current status
	if sub.Status != from {
		return compliance.Submission{}, compliance.ErrInvalidTransition
	}

	sub.Status = to
	reviewedAt := review.ReviewedAt
	sub.ReviewedAt = &reviewedAt
	sub.ReviewedBy = review.ReviewedBy
	sub.RejectionReason = review.RejectionReason
	return *sub, nil
}
