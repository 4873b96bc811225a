package main

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, user.Repository) {
	t.Helper()
	logger = log.New(os.Stdout, "TEST : ", log.LstdFlags)
	db := inmem.NewDB()
	usrRepo := inmem.NewUserRepository(db)
	return &commandLine{
		usrRepo: usrRepo,
		feeRepo: inmem.NewFeeRepository(db),
	}, usrRepo
}

func createUser(t *testing.T, repo user.Repository, email string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Role:      user.RoleTutor,
		Name:      "John Otieno",
		Email:     email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword("Secret123"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, usrRepo := setup(t)

	usr := createUser(t, usrRepo, "john@example.com")

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, pwd: "Changed456"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed: %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli, usrRepo := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"addadmin", "-name", "Root"}, wantErr: errHelp},
		{name: "no password", args: []string{"addadmin", "-name", "Root", "-email", "root@test.cd"}, wantErr: errHelp},
		{name: "create", args: []string{"addadmin", "-name", "Root", "-email", "root@test.cd"}, pwd: "Secret123"},
		{name: "update existing", args: []string{"addadmin", "-name", "Root", "-email", "root@test.cd"}, pwd: "Changed456"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				usr, err := usrRepo.GetUserByEmail(context.Background(), "root@test.cd")
				if err != nil {
					t.Fatalf("GetUserByEmail() failed: %v", err)
				}
				if !usr.IsAdmin() {
					t.Errorf("expected admin role, got %q", usr.Role)
				}
				if cerr := usr.CheckPassword(tt.pwd); cerr != nil {
					t.Errorf("password not set: %v", cerr)
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_feeSweep(t *testing.T) {
	cli, _ := setup(t)

	if err := cli.run([]string{"admin", "feesweep"}); err != nil {
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}
