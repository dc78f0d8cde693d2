package routes

import (
	"strings"
	"time"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

// CreateTeacher is admin-only; the teacher belongs to the admin's school.
func CreateTeacher(ctx iris.Context) {
	var input CreateTeacherInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	schoolID := ctx.Values().Get("schoolID").(uint)

	var existing models.Teacher
	query := storage.DB.Where("email = ?", strings.ToLower(input.Email)).Limit(1).Find(&existing)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected > 0 {
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(input.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	teacher := models.Teacher{
		Name:      input.Name,
		Email:     strings.ToLower(input.Email),
		Password:  hashedPassword,
		Role:      models.ModelTeacher,
		SchoolID:  schoolID,
		ClassID:   input.ClassID,
		SubjectID: input.SubjectID,
	}
	if err := storage.DB.Create(&teacher).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if input.SubjectID != nil {
		storage.DB.Model(&models.Subject{}).
			Where("id = ? AND school_id = ?", *input.SubjectID, schoolID).
			Update("teacher_id", teacher.ID)
	}

	utils.Audit(ctx, "teacher.create", "teacher", itoa(teacher.ID), nil, teacher)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(teacher)
}

func LoginTeacher(ctx iris.Context) {
	var input LoginInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	errorMsg := "Invalid email or password."
	var teacher models.Teacher
	query := storage.DB.Where("email = ?", strings.ToLower(input.Email)).Limit(1).Find(&teacher)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	if passwordErr := bcrypt.CompareHashAndPassword([]byte(teacher.Password), []byte(input.Password)); passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	tokenPair, tokenErr := utils.CreateTokenPair(teacher.ID, models.ModelTeacher, teacher.SchoolID, teacher.Name)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":           teacher.ID,
		"name":         teacher.Name,
		"email":        teacher.Email,
		"role":         models.ModelTeacher,
		"schoolID":     teacher.SchoolID,
		"classID":      teacher.ClassID,
		"subjectID":    teacher.SubjectID,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

func ListTeachers(ctx iris.Context) {
	schoolID := ctx.Values().Get("schoolID").(uint)

	teachers := []models.Teacher{}
	if err := storage.DB.Where("school_id = ?", schoolID).
		Preload("Class").Preload("Subject").
		Find(&teachers).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(teachers)
}

func GetTeacher(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var teacher models.Teacher
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).
		Preload("Class").Preload("Subject").
		Limit(1).Find(&teacher)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(teacher)
}

// UpdateTeacherAssignment changes a teacher's class/subject assignment.
func UpdateTeacherAssignment(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var input UpdateTeacherAssignmentInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var teacher models.Teacher
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&teacher)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	before := teacher
	teacher.ClassID = input.ClassID
	teacher.SubjectID = input.SubjectID
	if err := storage.DB.Save(&teacher).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if input.SubjectID != nil {
		storage.DB.Model(&models.Subject{}).
			Where("id = ? AND school_id = ?", *input.SubjectID, schoolID).
			Update("teacher_id", teacher.ID)
	}

	utils.Audit(ctx, "teacher.assign", "teacher", itoa(teacher.ID), before, teacher)
	ctx.JSON(teacher)
}

func DeleteTeacher(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var teacher models.Teacher
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&teacher)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	// Unassign their subject before removal
	storage.DB.Model(&models.Subject{}).Where("teacher_id = ?", teacher.ID).Update("teacher_id", nil)
	storage.DB.Delete(&teacher)

	utils.Audit(ctx, "teacher.delete", "teacher", itoa(teacher.ID), teacher, nil)
	ctx.JSON(iris.Map{"deleted": true})
}

// MarkTeacherAttendance records one presence mark per teacher per day.
func MarkTeacherAttendance(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var input TeacherAttendanceInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var teacher models.Teacher
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&teacher)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	date := input.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	var record models.TeacherAttendance
	existing := storage.DB.Where("teacher_id = ? AND date = ?", teacher.ID, date).Limit(1).Find(&record)
	if existing.RowsAffected > 0 {
		record.Status = input.Status
		storage.DB.Save(&record)
	} else {
		record = models.TeacherAttendance{TeacherID: teacher.ID, Date: date, Status: input.Status}
		storage.DB.Create(&record)
	}
	ctx.JSON(record)
}

// AlterTeacherPushToken registers or removes an Expo push token.
func AlterTeacherPushToken(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var input PushTokenInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var teacher models.Teacher
	if err := storage.DB.First(&teacher, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	updated, err := alterPushTokens(teacher.PushTokens, input)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	teacher.PushTokens = updated
	if input.AllowsNotifications != nil {
		teacher.AllowsNotifications = input.AllowsNotifications
	}
	storage.DB.Save(&teacher)
	ctx.JSON(iris.Map{"updated": true})
}

type CreateTeacherInput struct {
	Name      string `json:"name" validate:"required,max=256"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=256"`
	ClassID   *uint  `json:"classID"`
	SubjectID *uint  `json:"subjectID"`
}

type UpdateTeacherAssignmentInput struct {
	ClassID   *uint `json:"classID"`
	SubjectID *uint `json:"subjectID"`
}

type TeacherAttendanceInput struct {
	Date   string `json:"date"`
	Status string `json:"status" validate:"required,oneof=present absent"`
}
