// Package inmem provides map-backed repositories. Used by tests and by the
// API handler tests where a real database would only get in the way.
package inmem

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/application"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/enrollment"
	"github.com/trezcool/shule/core/user"
)

type DB struct {
	mutex        sync.RWMutex
	applications map[string]application.Application
	users        map[string]user.User
	subjects     map[string]enrollment.Subject
	enrollments  map[string]enrollment.Enrollment
	fees         map[string]billing.FeeRecord
}

// NewDB returns an empty store pre-seeded with the canonical subject catalogue.
func NewDB() *DB {
	db := &DB{
		applications: make(map[string]application.Application),
		users:        make(map[string]user.User),
		subjects:     make(map[string]enrollment.Subject),
		enrollments:  make(map[string]enrollment.Enrollment),
		fees:         make(map[string]billing.FeeRecord),
	}
	now := time.Now().UTC()
	for _, grade := range enrollment.GradeLevels() {
		names, _ := enrollment.CanonicalSubjects(grade)
		for _, name := range names {
			subj := enrollment.Subject{
				ID:         uuid.NewString(),
				Name:       name,
				GradeLevel: grade,
				CreatedAt:  now,
			}
			db.subjects[subj.ID] = subj
		}
	}
	return db
}

// Clear drops all rows except the subject catalogue.
func (db *DB) Clear() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.applications = make(map[string]application.Application)
	db.users = make(map[string]user.User)
	db.enrollments = make(map[string]enrollment.Enrollment)
	db.fees = make(map[string]billing.FeeRecord)
}
