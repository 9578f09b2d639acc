package inmemdb

import (
	"sync"

	"github.com/kdadks/eyogi/core/compliance"
	"github.com/kdadks/eyogi/core/notification"
)

type (
	DB struct {
		items         *itemTable
		forms         *formTable
		submissions   *submissionTable
		notifications *notificationTable
	}

	itemTable struct {
		t     map[string]*compliance.Item
		mutex sync.RWMutex
	}

	formTable struct {
		t     map[string]*compliance.Form
		mutex sync.RWMutex
	}

	submissionTable struct {
		t     map[string]*compliance.Submission
		mutex sync.RWMutex
	}

	notificationTable struct {
		t     map[string]*notification.Notification
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		items:         &itemTable{t: make(map[string]*compliance.Item)},
		forms:         &formTable{t: make(map[string]*compliance.Form)},
		submissions:   &submissionTable{t: make(map[string]*compliance.Submission)},
		notifications: &notificationTable{t: make(map[string]*notification.Notification)},
	}
}
