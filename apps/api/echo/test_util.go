package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/application"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/enrollment"
	"github.com/trezcool/shule/core/user"
	appfs "github.com/trezcool/shule/fs"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database/inmem"
)

type httpErr struct {
	Error string `json:"error"`
}

type testServerDeps struct {
	db      *inmem.DB
	conf    *core.Config
	usrRepo user.Repository
	usrSvc  user.Service
	appSvc  application.Service
	enrSvc  enrollment.Service
	feeRepo billing.Repository
	mailSvc *emailsvc.DummyService
}

func newTestServer(t *testing.T) (Server, *testServerDeps) {
	t.Helper()

	conf := &core.Config{
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Shule",
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "noreply@localhost",

		AccountInviteTimeoutDelta:     24 * time.Hour,
		PasswordResetTimeoutDelta:     10 * time.Minute,
		EmailVerificationTimeoutDelta: time.Hour,

		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	core.ParseEmailTemplates(conf, appfs.FS, logger)

	db := inmem.NewDB()
	usrRepo := inmem.NewUserRepository(db)
	mailSvc := emailsvc.NewDummyService()
	usrSvc := user.NewService(usrRepo, mailSvc, conf, logger)
	enrSvc := enrollment.NewService(inmem.NewEnrollmentRepository(db), usrRepo)
	appSvc := application.NewService(inmem.NewApplicationRepository(db), usrSvc, enrSvc, mailSvc, conf, logger)
	feeRepo := inmem.NewFeeRepository(db)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	application.InitValidators(validate, translator)

	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		AppSvc:     appSvc,
		UsrSvc:     usrSvc,
		EnrSvc:     enrSvc,
		FeeRepo:    feeRepo,
		Validate:   validate,
		Translator: translator,

		DisableReqLogs: true,
	})

	return srv, &testServerDeps{
		db:      db,
		conf:    conf,
		usrRepo: usrRepo,
		usrSvc:  usrSvc,
		appSvc:  appSvc,
		enrSvc:  enrSvc,
		feeRepo: feeRepo,
		mailSvc: mailSvc,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func createTestAccount(t *testing.T, svc user.Service, role, email string) user.User {
	t.Helper()
	na := user.NewAccount{
		Role:     role,
		Name:     "Test " + role,
		Email:    email,
		Password: "Secret123",
	}
	if role == user.RoleStudent {
		na.GradeLevel = "grade-2"
	}
	usr, err := svc.Create(context.Background(), na)
	if err != nil {
		t.Fatalf("createTestAccount() failed: %v", err)
	}
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("decodeBody() failed: %v; body: %s", err, rec.Body.String())
	}
}

func checkCode(t *testing.T, rec *httptest.ResponseRecorder, wantCode int) {
	t.Helper()
	if rec.Code != wantCode {
		t.Fatalf("failed! code = %v; wantCode %v; body: %s", rec.Code, wantCode, rec.Body.String())
	}
}
