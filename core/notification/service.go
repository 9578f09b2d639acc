package notification

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/kdadks/eyogi/core"
	"github.com/kdadks/eyogi/core/compliance"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
	ErrNotOwner = errors.New("notification belongs to another user")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		// QueryByUser returns the user's notifications, newest first.
		QueryByUser(ctx context.Context, userID string) ([]Notification, error)
		MarkRead(ctx context.Context, id string, at time.Time) (Notification, error)
		DeleteNotification(ctx context.Context, id string) error
	}

	// UserInfo is the slice of the host app's account record the dispatcher needs.
	UserInfo struct {
		ID    string
		Name  string
		Email string
	}

	// UserDirectory is the external user/session collaborator: the host
	// application owns accounts, we only look them up.
	UserDirectory interface {
		GetUser(ctx context.Context, id string) (UserInfo, error)
		QueryUsersByRole(ctx context.Context, role compliance.Role) ([]UserInfo, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		users   UserDirectory
		logger  core.Logger

		nowFunc func() time.Time // mockable
	}
)

func NewService(repo Repository, mailSvc core.EmailService, users UserDirectory, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		users:   users,
		logger:  logger,
		nowFunc: time.Now,
	}
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Notification, error) {
	return svc.repo.QueryByUser(ctx, userID)
}

// MarkRead flags the notification as read. Only the owning user may do so.
func (svc *Service) MarkRead(ctx context.Context, id, userID string) (Notification, error) {
	n, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.UserID != userID {
		return Notification{}, ErrNotOwner
	}
	if n.IsRead {
		return n, nil
	}
	return svc.repo.MarkRead(ctx, id, svc.nowFunc().UTC())
}

// Delete removes the notification. Only the owning user may do so.
func (svc *Service) Delete(ctx context.Context, id, userID string) error {
	n, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotOwner
	}
	return svc.repo.DeleteNotification(ctx, id)
}

func (svc *Service) create(ctx context.Context, n Notification) (Notification, error) {
	n.CreatedAt = svc.nowFunc().UTC()
	return svc.repo.CreateNotification(ctx, n)
}

// sendMail emails the user a copy of the notification, best-effort.
func (svc *Service) sendMail(ctx context.Context, userID, subject, body string) {
	usr, err := svc.users.GetUser(ctx, userID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("looking up user %s for notification email: %v", userID, err), err)
		return
	}
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:     subject,
		TextContent: body,
	})
}

// Dispatcher adapts the notification service to the compliance workflow's
// Notifier contract. All methods are best-effort: failures are logged, never
// propagated into the workflow.
type Dispatcher struct {
	svc *Service
}

var _ compliance.Notifier = (*Dispatcher)(nil)

func NewDispatcher(svc *Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

func (d *Dispatcher) FormSubmitted(ctx context.Context, item compliance.Item, sub compliance.Submission) {
	_, err := d.svc.create(ctx, Notification{
		UserID:       sub.UserID,
		Type:         TypeFormSubmitted,
		Title:        "Submission received",
		Message:      fmt.Sprintf("Your submission for %q is awaiting review.", item.Title),
		ItemID:       item.ID,
		SubmissionID: sub.ID,
	})
	if err != nil {
		d.svc.logger.Warn(fmt.Sprintf("recording form_submitted notification: %v", err), err)
	}
}

func (d *Dispatcher) SubmissionReviewed(ctx context.Context, item compliance.Item, sub compliance.Submission) {
	n := Notification{
		UserID:       sub.UserID,
		ItemID:       item.ID,
		SubmissionID: sub.ID,
	}
	switch sub.Status {
	case compliance.StatusApproved:
		n.Type = TypeSubmissionApproved
		n.Title = "Submission approved"
		n.Message = fmt.Sprintf("Your submission for %q has been approved.", item.Title)
	case compliance.StatusRejected:
		n.Type = TypeSubmissionRejected
		n.Title = "Submission rejected"
		n.Message = fmt.Sprintf("Your submission for %q was rejected. You may submit again.", item.Title)
		n.Metadata = map[string]string{"rejection_reason": sub.RejectionReason}
	default:
		return
	}

	if _, err := d.svc.create(ctx, n); err != nil {
		d.svc.logger.Warn(fmt.Sprintf("recording %s notification: %v", n.Type, err), err)
	}

	body := n.Message
	if sub.Status == compliance.StatusRejected {
		body += "\n\nReason: " + sub.RejectionReason
	}
	d.svc.sendMail(ctx, sub.UserID, n.Title, body)
}

func (d *Dispatcher) NewItem(ctx context.Context, item compliance.Item) {
	users, err := d.svc.users.QueryUsersByRole(ctx, item.TargetRole)
	if err != nil {
		d.svc.logger.Warn(fmt.Sprintf("listing %s users for new item notification: %v", item.TargetRole, err), err)
		return
	}

	msg := fmt.Sprintf("A new compliance item %q has been assigned to you.", item.Title)
	meta := map[string]string{}
	if item.DueDate != nil {
		meta["due_date"] = item.DueDate.Format(time.RFC3339)
	}
	for _, usr := range users {
		_, err := d.svc.create(ctx, Notification{
			UserID:   usr.ID,
			Type:     TypeNewComplianceItem,
			Title:    "New compliance item",
			Message:  msg,
			ItemID:   item.ID,
			Metadata: meta,
		})
		if err != nil {
			d.svc.logger.Warn(fmt.Sprintf("recording new_compliance_item notification: %v", err), err)
		}
	}
}
