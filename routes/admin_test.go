package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

// buildAccountTestApp wires the admin, student and resource routes the
// same way the server does, backed by an in-memory database.
func buildAccountTestApp(t *testing.T) *iris.Application {
	t.Helper()
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Admin{}, &models.Teacher{}, &models.Student{},
		&models.SchoolClass{}, &models.LearningResource{}, &models.AuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	storage.DB = db

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	admin := app.Party("/api/admin")
	{
		admin.Get("/me", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, GetAdmin)
	}

	student := app.Party("/api/student")
	{
		student.Post("/", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, CreateStudent)
	}

	resource := app.Party("/api/resource", accessTokenVerifierMiddleware)
	{
		resource.Post("/", CreateResource)
	}
	if err := app.Build(); err != nil {
		t.Fatalf("failed to build test app: %v", err)
	}
	return app
}

func TestGetAdminReturnsOwnAccount(t *testing.T) {
	app := buildAccountTestApp(t)

	first := models.Admin{Name: "First", Email: "first-" + t.Name() + "@school.test", SchoolName: "First " + t.Name()}
	second := models.Admin{Name: "Second", Email: "second-" + t.Name() + "@school.test", SchoolName: "Second " + t.Name()}
	if err := storage.DB.Create(&first).Error; err != nil {
		t.Fatal(err)
	}
	if err := storage.DB.Create(&second).Error; err != nil {
		t.Fatal(err)
	}

	token := signMessageTestToken(t, second.ID, models.ModelAdmin, second.ID)
	resp := doJSON(t, app, http.MethodGet, "/api/admin/me", token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body models.Admin
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.ID != second.ID || body.Email != second.Email {
		t.Fatalf("expected admin %d (%s), got %d (%s)", second.ID, second.Email, body.ID, body.Email)
	}
}

func TestCreateResourceUsesTokenSchool(t *testing.T) {
	app := buildAccountTestApp(t)

	admin := models.Admin{Name: "Head", Email: t.Name() + "@school.test", SchoolName: t.Name()}
	if err := storage.DB.Create(&admin).Error; err != nil {
		t.Fatal(err)
	}
	teacher := models.Teacher{Name: "Teach", Email: "teach-" + t.Name() + "@school.test", SchoolID: admin.ID}
	if err := storage.DB.Create(&teacher).Error; err != nil {
		t.Fatal(err)
	}

	token := signMessageTestToken(t, teacher.ID, models.ModelTeacher, admin.ID)
	resp := doJSON(t, app, http.MethodPost, "/api/resource", token,
		`{"title":"Syllabus","externalURL":"https://example.com/syllabus.pdf"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var resource models.LearningResource
	if err := json.Unmarshal(resp.Body.Bytes(), &resource); err != nil {
		t.Fatal(err)
	}
	if resource.SchoolID != admin.ID {
		t.Fatalf("expected school %d, got %d", admin.ID, resource.SchoolID)
	}
	if resource.UploaderID != teacher.ID || resource.UploaderModel != models.ModelTeacher {
		t.Fatalf("unexpected uploader %d/%s", resource.UploaderID, resource.UploaderModel)
	}
}

func TestCreateResourceRejectsStudentUploader(t *testing.T) {
	app := buildAccountTestApp(t)

	token := signMessageTestToken(t, 7, models.ModelStudent, 1)
	resp := doJSON(t, app, http.MethodPost, "/api/resource", token,
		`{"title":"Notes","externalURL":"https://example.com/notes.pdf"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateStudentRejectsBadGuardianPhone(t *testing.T) {
	app := buildAccountTestApp(t)

	admin := models.Admin{Name: "Head", Email: t.Name() + "@school.test", SchoolName: t.Name()}
	if err := storage.DB.Create(&admin).Error; err != nil {
		t.Fatal(err)
	}
	class := models.SchoolClass{Name: "5A", SchoolID: admin.ID}
	if err := storage.DB.Create(&class).Error; err != nil {
		t.Fatal(err)
	}

	token := signMessageTestToken(t, admin.ID, models.ModelAdmin, admin.ID)
	body := fmt.Sprintf(`{"name":"Asha","rollNum":1,"password":"longenough","classID":%d,"guardianPhone":"12345"}`, class.ID)
	resp := doJSON(t, app, http.MethodPost, "/api/student", token, body)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short guardian phone, got %d: %s", resp.Code, resp.Body.String())
	}

	body = fmt.Sprintf(`{"name":"Asha","rollNum":1,"password":"longenough","classID":%d,"guardianPhone":"98765 43210"}`, class.ID)
	resp = doJSON(t, app, http.MethodPost, "/api/student", token, body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for valid guardian phone, got %d: %s", resp.Code, resp.Body.String())
	}

	var student models.Student
	if err := json.Unmarshal(resp.Body.Bytes(), &student); err != nil {
		t.Fatal(err)
	}
	if student.GuardianPhone != "919876543210" {
		t.Fatalf("expected normalized guardian phone, got %q", student.GuardianPhone)
	}
}
