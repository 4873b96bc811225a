package inmem

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/shule/core/application"
)

type applicationRepository struct {
	db *DB
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(db *DB) application.Repository {
	return &applicationRepository{db: db}
}

func copyApp(app application.Application) application.Application {
	cp := app
	cp.Subjects = append([]string(nil), app.Subjects...)
	return cp
}

func (repo *applicationRepository) CreateApplication(_ context.Context, app application.Application) (application.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.applications[app.ID] = copyApp(app)
	return app, nil
}

func (repo *applicationRepository) GetApplicationByID(_ context.Context, id string) (application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if app, ok := repo.db.applications[id]; ok {
		return copyApp(app), nil
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) GetActiveApplicationByEmail(_ context.Context, email string) (application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, app := range repo.db.applications {
		if app.Email == email && (app.Status == application.StatusPending || app.Status == application.StatusApproved) {
			return copyApp(app), nil
		}
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) GetApplicationByToken(_ context.Context, hash string, now time.Time) (application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, app := range repo.db.applications {
		if app.TokenHash.String == hash && app.TokenHash.Valid && app.TokenExpires.Time.After(now) {
			return copyApp(app), nil
		}
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) GetApplicationByParentToken(_ context.Context, hash string, now time.Time) (application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, app := range repo.db.applications {
		if app.ParentTokenHash.String == hash && app.ParentTokenHash.Valid && app.ParentTokenExpires.Time.After(now) {
			return copyApp(app), nil
		}
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) UpdateApplication(_ context.Context, app application.Application) (application.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.applications[app.ID]; !ok {
		return application.Application{}, application.ErrNotFound
	}
	repo.db.applications[app.ID] = copyApp(app)
	return app, nil
}

func (repo *applicationRepository) FilterApplications(_ context.Context, filter application.QueryFilter) ([]application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	apps := make([]application.Application, 0)
	for _, app := range repo.db.applications {
		if filter.Kind != "" && app.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.Search != "" {
			s := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(app.Name), s) && !strings.Contains(strings.ToLower(app.Email), s) {
				continue
			}
		}
		if !filter.CreatedFrom.IsZero() && app.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && app.CreatedAt.After(filter.CreatedTo) {
			continue
		}
		apps = append(apps, copyApp(app))
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].CreatedAt.After(apps[j].CreatedAt) })
	return apps, nil
}
