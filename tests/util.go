package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kdadks/eyogi/core/compliance"
	"github.com/kdadks/eyogi/core/notification"
)

func CreateItem(
	t *testing.T,
	repo compliance.Repository,
	title string,
	role compliance.Role,
	typ compliance.ItemType,
	formID string,
	due ...time.Time,
) compliance.Item {
	t.Helper()
	now := time.Now().UTC()
	item := compliance.Item{
		Title:       title,
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
		t.Fatalf("CreateItem() failed: %v", err)
	}
	return item
}

func CreateForm(t *testing.T, repo compliance.Repository, title string, fields ...compliance.FormField) compliance.Form {
	t.Helper()
	now := time.Now().UTC()
	form, err := repo.CreateForm(context.Background(), compliance.Form{
		Title:     title,
		Fields:    fields,
		IsActive:  true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateForm() failed: %v", err)
	}
	return form
}

func CreateSubmission(
	t *testing.T,
	repo compliance.Repository,
	itemID, userID string,
	status compliance.Status,
	submittedAt ...time.Time,
) compliance.Submission {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(submittedAt) > 0 {
		tstamp = submittedAt[0].UTC()
	}
	sub, err := repo.CreateSubmission(context.Background(), compliance.Submission{
		ItemID:      itemID,
		UserID:      userID,
		FormData:    compliance.FormData{},
		Status:      status,
		SubmittedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return sub
}

// UserDirectoryMock is an in-memory notification.UserDirectory.
type UserDirectoryMock struct {
	mu    sync.RWMutex
	users map[string]userEntry
}

type userEntry struct {
	info notification.UserInfo
	role compliance.Role
}

var _ notification.UserDirectory = (*UserDirectoryMock)(nil)

func NewUserDirectoryMock() *UserDirectoryMock {
	return &UserDirectoryMock{users: make(map[string]userEntry)}
}

func (dir *UserDirectoryMock) AddUser(id, name, email string, role compliance.Role) {
	dir.mu.Lock()
	defer dir.mu.Unlock()
	dir.users[id] = userEntry{
		info: notification.UserInfo{ID: id, Name: name, Email: email},
		role: role,
	}
}

func (dir *UserDirectoryMock) GetUser(_ context.Context, id string) (notification.UserInfo, error) {
	dir.mu.RLock()
	defer dir.mu.RUnlock()
	entry, ok := dir.users[id]
	if !ok {
		return notification.UserInfo{}, notification.ErrNotFound
	}
	return entry.info, nil
}

func (dir *UserDirectoryMock) QueryUsersByRole(_ context.Context, role compliance.Role) ([]notification.UserInfo, error) {
	dir.mu.RLock()
	defer dir.mu.RUnlock()
	var users []notification.UserInfo
	for _, entry := range dir.users {
		if entry.role == role {
			users = append(users, entry.info)
		}
	}
	return users, nil
}

// NotifierMock records workflow notifications for assertions.
type NotifierMock struct {
	mu        sync.Mutex
	Submitted []compliance.Submission
	Reviewed  []compliance.Submission
	NewItems  []compliance.Item
}

var _ compliance.Notifier = (*NotifierMock)(nil)

func NewNotifierMock() *NotifierMock { return &NotifierMock{} }

func (n *NotifierMock) FormSubmitted(_ context.Context, _ compliance.Item, sub compliance.Submission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Submitted = append(n.Submitted, sub)
}

func (n *NotifierMock) SubmissionReviewed(_ context.Context, _ compliance.Item, sub compliance.Submission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Reviewed = append(n.Reviewed, sub)
}

func (n *NotifierMock) NewItem(_ context.Context, item compliance.Item) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.NewItems = append(n.NewItems, item)
}

// LoggerMock discards all log output.
type LoggerMock struct{}

func (LoggerMock) Enable(bool)                  {}
func (LoggerMock) Debug(string, ...interface{}) {}
func (LoggerMock) Info(string, ...interface{})  {}
func (LoggerMock) Warn(string, ...interface{})  {}
func (LoggerMock) Error(string, ...interface{}) {}
func (LoggerMock) Fatal(string, ...interface{}) {}
