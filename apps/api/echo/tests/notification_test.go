package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kdadks/eyogi/core/compliance"
	"github.com/kdadks/eyogi/core/notification"
	testutil "github.com/kdadks/eyogi/tests"
)

func createNotification(t *testing.T, userID string, typ notification.Type, createdAt time.Time) notification.Notification {
	t.Helper()
	n, err := ntfRepo.CreateNotification(context.Background(), notification.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     "Submission approved",
		Message:   "Your submission has been approved.",
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("createNotification(): %v", err)
	}
	return n
}

func Test_notificationApi(t *testing.T) {
	userToken := getToken(t, "ntf1", compliance.RoleTeacher, false)
	otherToken := getToken(t, "ntf2", compliance.RoleTeacher, false)

	now := time.Now().UTC()
	older := createNotification(t, "ntf1", notification.TypeNewComplianceItem, now.Add(-time.Hour))
	newer := createNotification(t, "ntf1", notification.TypeSubmissionApproved, now)
	createNotification(t, "ntf2", notification.TypeSubmissionRejected, now)

	t.Run("auth required", func(t *testing.T) {
		tt := httpTest{path: "/v1/notifications", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodGet, tt.path)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("query returns own, newest first", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", userToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var ntfs []notification.Notification
		decode(t, rec.Body.Bytes(), &ntfs)
		if assert.Len(t, ntfs, 2) {
			assert.Equal(t, newer.ID, ntfs[0].ID)
			assert.Equal(t, older.ID, ntfs[1].ID)
		}
	})

	t.Run("mark read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/notifications/"+older.ID+"/read", userToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var n notification.Notification
		decode(t, rec.Body.Bytes(), &n)
		assert.True(t, n.IsRead)
		assert.NotNil(t, n.ReadAt)

		t.Run("idempotent", func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/v1/notifications/"+older.ID+"/read", userToken)
			app.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)

			var again notification.Notification
			decode(t, rec.Body.Bytes(), &again)
			assert.Equal(t, n.ReadAt.Unix(), again.ReadAt.Unix())
		})
	})

	t.Run("mark read denied for non-owner", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/notifications/"+newer.ID+"/read", otherToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown notification", func(t *testing.T) {
		tt := httpTest{
			path: "/v1/notifications/nope/read", token: userToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "notification not found"}),
		}
		req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/notifications/"+newer.ID, userToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/notifications/"+newer.ID, userToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_notificationApi_reviewDispatch(t *testing.T) {
	userToken := getToken(t, "ntf3", compliance.RoleStudent, false)
	adminToken := getToken(t, "admin1", "", true)
	userDir.AddUser("ntf3", "Ntf Three", "ntf3@test.ie", compliance.RoleStudent)

	item := testutil.CreateItem(t, cplRepo, "Dispatch Check", compliance.RoleStudent, compliance.ItemVerification, "")

	req, rec := newAuthRequest(http.MethodPost, "/v1/compliance/items/"+item.ID+"/complete", userToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var sub compliance.Submission
	decode(t, rec.Body.Bytes(), &sub)

	req, rec = newAuthRequest(http.MethodPost, "/v1/compliance/submissions/"+sub.ID+"/review", adminToken,
		marchallObj(t, compliance.ReviewDecision{Action: compliance.ActionReject, RejectionReason: "illegible scan"}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", userToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var ntfs []notification.Notification
	decode(t, rec.Body.Bytes(), &ntfs)
	if assert.NotEmpty(t, ntfs) {
		assert.Equal(t, notification.TypeSubmissionRejected, ntfs[0].Type)
		assert.Equal(t, sub.ID, ntfs[0].SubmissionID)
		assert.Equal(t, "illegible scan", ntfs[0].Metadata["rejection_reason"])
	}
}
