package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc"
	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

func RegisterAdmin(ctx iris.Context) {
	var input RegisterAdminInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var admin models.Admin
	exists, existsErr := getAndHandleAdminExists(&admin, input.Email)
	if existsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if exists {
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(input.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	admin = models.Admin{
		Name:       input.Name,
		Email:      strings.ToLower(input.Email),
		Password:   hashedPassword,
		SchoolName: input.SchoolName,
		Role:       models.ModelAdmin,
	}
	if err := storage.DB.Create(&admin).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	returnAdmin(admin, ctx)
}

func LoginAdmin(ctx iris.Context) {
	var input LoginInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	errorMsg := "Invalid email or password."
	var admin models.Admin
	exists, existsErr := getAndHandleAdminExists(&admin, input.Email)
	if existsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if !exists {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	if admin.SocialLogin {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", "Social Login Account", ctx)
		return
	}

	if passwordErr := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(input.Password)); passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	returnAdmin(admin, ctx)
}

// GoogleLoginOrSignUp exchanges a Google access token for an admin
// account, creating one on first sign-in.
func GoogleLoginOrSignUp(ctx iris.Context) {
	var input SocialLoginInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	endpoint := "https://www.googleapis.com/userinfo/v2/me"
	req, _ := http.NewRequest("GET", endpoint, nil)
	req.Header.Set("Authorization", "Bearer "+input.AccessToken)
	res, googleErr := http.DefaultClient.Do(req)
	if googleErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	defer res.Body.Close()

	body, bodyErr := io.ReadAll(res.Body)
	if bodyErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var googleBody GoogleUserRes
	json.Unmarshal(body, &googleBody)

	if googleBody.Email == "" {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Invalid Google token.", ctx)
		return
	}

	var admin models.Admin
	exists, existsErr := getAndHandleAdminExists(&admin, googleBody.Email)
	if existsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !exists {
		admin = models.Admin{
			Name:           strings.TrimSpace(googleBody.GivenName + " " + googleBody.FamilyName),
			Email:          strings.ToLower(googleBody.Email),
			SchoolName:     input.SchoolName,
			SocialLogin:    true,
			SocialProvider: "Google",
			Role:           models.ModelAdmin,
		}
		storage.DB.Create(&admin)
		returnAdmin(admin, ctx)
		return
	}

	if admin.SocialLogin && admin.SocialProvider == "Google" {
		returnAdmin(admin, ctx)
		return
	}

	utils.CreateEmailAlreadyRegistered(ctx)
}

// AppleLoginOrSignUp verifies an Apple identity token against Apple's
// JWKS and logs in or creates the admin.
func AppleLoginOrSignUp(ctx iris.Context) {
	var input AppleLoginInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	res, httpErr := http.Get("https://appleid.apple.com/auth/keys")
	if httpErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	defer res.Body.Close()

	body, bodyErr := io.ReadAll(res.Body)
	if bodyErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	jwks, jwksErr := keyfunc.NewJSON(body)
	token, tokenErr := jwtv4.Parse(input.IdentityToken, jwks.Keyfunc)
	if jwksErr != nil || tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if !token.Valid {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Invalid user token.", ctx)
		return
	}

	email := fmt.Sprint(token.Claims.(jwtv4.MapClaims)["email"])
	if email == "" || email == "<nil>" {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Invalid user token.", ctx)
		return
	}

	var admin models.Admin
	exists, existsErr := getAndHandleAdminExists(&admin, email)
	if existsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !exists {
		admin = models.Admin{
			Email:          strings.ToLower(email),
			SchoolName:     input.SchoolName,
			SocialLogin:    true,
			SocialProvider: "Apple",
			Role:           models.ModelAdmin,
		}
		storage.DB.Create(&admin)
		returnAdmin(admin, ctx)
		return
	}

	if admin.SocialLogin && admin.SocialProvider == "Apple" {
		returnAdmin(admin, ctx)
		return
	}

	utils.CreateEmailAlreadyRegistered(ctx)
}

// GetAdmin returns the authenticated admin's own account.
func GetAdmin(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	var admin models.Admin
	if err := storage.DB.First(&admin, userID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(admin)
}

// AdminStats summarizes one school for the dashboard.
func AdminStats(ctx iris.Context) {
	schoolID := ctx.Values().Get("schoolID").(uint)

	var students, teachers, classes, subjects, notices, messages int64
	storage.DB.Model(&models.Student{}).Where("school_id = ?", schoolID).Count(&students)
	storage.DB.Model(&models.Teacher{}).Where("school_id = ?", schoolID).Count(&teachers)
	storage.DB.Model(&models.SchoolClass{}).Where("school_id = ?", schoolID).Count(&classes)
	storage.DB.Model(&models.Subject{}).Where("school_id = ?", schoolID).Count(&subjects)
	storage.DB.Model(&models.Notice{}).Where("school_id = ?", schoolID).Count(&notices)
	storage.DB.Model(&models.Message{}).Where("school_id = ?", schoolID).Count(&messages)

	ctx.JSON(iris.Map{
		"students": students,
		"teachers": teachers,
		"classes":  classes,
		"subjects": subjects,
		"notices":  notices,
		"messages": messages,
	})
}

// AdminActivity lists recent audit log entries for the school.
func AdminActivity(ctx iris.Context) {
	schoolID := ctx.Values().Get("schoolID").(uint)
	limit := ctx.URLParamIntDefault("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	entries := []models.AuditLog{}
	if err := storage.DB.Where("school_id = ?", schoolID).
		Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(entries)
}

func getAndHandleAdminExists(admin *models.Admin, email string) (exists bool, err error) {
	query := storage.DB.Where("email = ?", strings.ToLower(email)).Limit(1).Find(admin)
	if query.Error != nil {
		return false, query.Error
	}
	return query.RowsAffected > 0, nil
}

func hashAndSaltPassword(password string) (hashedPassword string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func returnAdmin(admin models.Admin, ctx iris.Context) {
	// An admin's school is their own row ID
	tokenPair, tokenErr := utils.CreateTokenPair(admin.ID, models.ModelAdmin, admin.ID, admin.Name)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":           admin.ID,
		"name":         admin.Name,
		"email":        admin.Email,
		"schoolName":   admin.SchoolName,
		"role":         models.ModelAdmin,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

// LookupAccount resolves a refresh-token subject back into claims.
func LookupAccount(role string, id uint) (*utils.AccessToken, error) {
	switch role {
	case models.ModelAdmin:
		var admin models.Admin
		if err := storage.DB.First(&admin, id).Error; err != nil {
			return nil, err
		}
		return &utils.AccessToken{ID: admin.ID, Role: role, SchoolID: admin.ID, Name: admin.Name}, nil
	case models.ModelTeacher:
		var teacher models.Teacher
		if err := storage.DB.First(&teacher, id).Error; err != nil {
			return nil, err
		}
		return &utils.AccessToken{ID: teacher.ID, Role: role, SchoolID: teacher.SchoolID, Name: teacher.Name}, nil
	case models.ModelStudent:
		var student models.Student
		if err := storage.DB.First(&student, id).Error; err != nil {
			return nil, err
		}
		return &utils.AccessToken{ID: student.ID, Role: role, SchoolID: student.SchoolID, Name: student.Name}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func RefreshToken(ctx iris.Context) {
	utils.RefreshToken(ctx, LookupAccount)
}

// ForgotPassword issues a short-lived reset token for an admin account.
// The response never reveals whether the email is registered.
func ForgotPassword(ctx iris.Context) {
	var input ForgotPasswordInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	okResponse := iris.Map{"msg": "If that email is registered a reset link has been sent."}

	var admin models.Admin
	exists, existsErr := getAndHandleAdminExists(&admin, input.Email)
	if existsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if !exists || admin.Password == "" {
		ctx.JSON(okResponse)
		return
	}

	resetToken, tokenErr := utils.CreateForgotPasswordToken(admin.ID, models.ModelAdmin, admin.Email)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	go utils.SendPasswordResetEmail(admin.Email, admin.Name, resetToken)
	ctx.JSON(okResponse)
}

// ResetPassword runs behind the reset-token verifier.
func ResetPassword(ctx iris.Context) {
	var input ResetPasswordInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jsonWT.Get(ctx).(*utils.ForgotPasswordToken)

	var admin models.Admin
	query := storage.DB.Where("id = ? AND email = ?", claims.ID, claims.Email).Limit(1).Find(&admin)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(input.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	admin.Password = hashedPassword
	if err := storage.DB.Save(&admin).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"passwordReset": true})
}

type RegisterAdminInput struct {
	Name       string `json:"name" validate:"required,max=256"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=256"`
	SchoolName string `json:"schoolName" validate:"required,max=256"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SocialLoginInput struct {
	AccessToken string `json:"accessToken" validate:"required"`
	SchoolName  string `json:"schoolName"`
}

type AppleLoginInput struct {
	IdentityToken string `json:"identityToken" validate:"required"`
	SchoolName    string `json:"schoolName"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Password string `json:"password" validate:"required,min=8,max=256"`
}

type GoogleUserRes struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}
