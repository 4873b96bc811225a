package inmem

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func copyUser(usr user.User) user.User {
	cp := usr
	cp.PasswordHash = append([]byte(nil), usr.PasswordHash...)
	if usr.Student != nil {
		student := *usr.Student
		student.SubjectIDs = append([]string(nil), usr.Student.SubjectIDs...)
		cp.Student = &student
	}
	if usr.Tutor != nil {
		tutor := *usr.Tutor
		tutor.Subjects = append([]string(nil), usr.Tutor.Subjects...)
		cp.Tutor = &tutor
	}
	if usr.Parent != nil {
		parent := *usr.Parent
		parent.ChildIDs = append([]string(nil), usr.Parent.ChildIDs...)
		cp.Parent = &parent
	}
	return cp
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.users {
		if existing.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	repo.db.users[usr.ID] = copyUser(usr)
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if usr, ok := repo.db.users[id]; ok {
		return copyUser(usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, usr := range repo.db.users {
		if usr.Email == email {
			return copyUser(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByPasswordResetToken(_ context.Context, hash string, now time.Time) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, usr := range repo.db.users {
		if usr.PasswordResetTokenHash.Valid && usr.PasswordResetTokenHash.String == hash && usr.PasswordResetTokenExpires.Time.After(now) {
			return copyUser(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmailVerifyToken(_ context.Context, hash string, now time.Time) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, usr := range repo.db.users {
		if usr.EmailVerifyTokenHash.Valid && usr.EmailVerifyTokenHash.String == hash && usr.EmailVerifyTokenExpires.Time.After(now) {
			return copyUser(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	for _, existing := range repo.db.users {
		if existing.Email == usr.Email && existing.ID != usr.ID {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.users[usr.ID] = copyUser(usr)
	return usr, nil
}

func (repo *userRepository) SetUserLastLogin(_ context.Context, id string, t time.Time) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	usr, ok := repo.db.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.LastLogin = t
	repo.db.users[id] = usr
	return copyUser(usr), nil
}

func (repo *userRepository) SetStudentSubjects(_ context.Context, userID string, subjectIDs []string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	usr, ok := repo.db.users[userID]
	if !ok || usr.Student == nil {
		return user.ErrNotFound
	}
	usr.Student.SubjectIDs = append([]string(nil), subjectIDs...)
	repo.db.users[userID] = usr
	return nil
}

func (repo *userRepository) LinkParentChild(_ context.Context, parentID, childID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	child, ok := repo.db.users[childID]
	if !ok || child.Student == nil {
		return user.ErrNotFound
	}
	child.Student.ParentID.SetValid(parentID)
	repo.db.users[childID] = child

	if parent, ok := repo.db.users[parentID]; ok && parent.Parent != nil {
		for _, id := range parent.Parent.ChildIDs {
			if id == childID {
				return nil
			}
		}
		parent.Parent.ChildIDs = append(parent.Parent.ChildIDs, childID)
		repo.db.users[parentID] = parent
	}
	return nil
}
