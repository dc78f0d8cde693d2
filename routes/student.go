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

// CreateStudent is admin-only; roll numbers are unique within a class.
func CreateStudent(ctx iris.Context) {
	var input CreateStudentInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	schoolID := ctx.Values().Get("schoolID").(uint)

	if input.GuardianPhone != "" && !utils.ValidatePhoneNumber(input.GuardianPhone) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Guardian phone must be a 10 digit number.", ctx)
		return
	}

	var class models.SchoolClass
	classQuery := storage.DB.Where("id = ? AND school_id = ?", input.ClassID, schoolID).Limit(1).Find(&class)
	if classQuery.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if classQuery.RowsAffected == 0 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Class does not exist in this school.", ctx)
		return
	}

	var existing models.Student
	rollQuery := storage.DB.Where("class_id = ? AND roll_num = ?", input.ClassID, input.RollNum).Limit(1).Find(&existing)
	if rollQuery.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if rollQuery.RowsAffected > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "Roll number already taken in this class.", ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(input.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	student := models.Student{
		Name:          input.Name,
		RollNum:       input.RollNum,
		Email:         strings.ToLower(input.Email),
		Password:      hashedPassword,
		Role:          models.ModelStudent,
		SchoolID:      schoolID,
		ClassID:       input.ClassID,
		GuardianPhone: utils.NormalizePhoneNumber(input.GuardianPhone),
	}
	if err := storage.DB.Create(&student).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "student.create", "student", itoa(student.ID), nil, student)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(student)
}

// LoginStudent authenticates by roll number, name and password, the way
// school portals hand out credentials.
func LoginStudent(ctx iris.Context) {
	var input LoginStudentInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	errorMsg := "Invalid roll number, name or password."
	var student models.Student
	query := storage.DB.Where("roll_num = ? AND name = ?", input.RollNum, input.Name).Limit(1).Find(&student)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	if passwordErr := bcrypt.CompareHashAndPassword([]byte(student.Password), []byte(input.Password)); passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	tokenPair, tokenErr := utils.CreateTokenPair(student.ID, models.ModelStudent, student.SchoolID, student.Name)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":           student.ID,
		"name":         student.Name,
		"rollNum":      student.RollNum,
		"role":         models.ModelStudent,
		"schoolID":     student.SchoolID,
		"classID":      student.ClassID,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

func ListStudents(ctx iris.Context) {
	schoolID := ctx.Values().Get("schoolID").(uint)

	db := storage.DB.Where("school_id = ?", schoolID)
	if classID := ctx.URLParamIntDefault("classID", 0); classID > 0 {
		db = db.Where("class_id = ?", classID)
	}

	students := []models.Student{}
	if err := db.Preload("Class").Find(&students).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(students)
}

func GetStudent(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var student models.Student
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).
		Preload("Class").Preload("Attendance").Preload("ExamResults.Subject").
		Limit(1).Find(&student)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(student)
}

func UpdateStudent(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var input UpdateStudentInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var student models.Student
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&student)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	before := student
	if input.Name != "" {
		student.Name = input.Name
	}
	if input.Email != "" {
		student.Email = strings.ToLower(input.Email)
	}
	if input.GuardianPhone != "" {
		if !utils.ValidatePhoneNumber(input.GuardianPhone) {
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "Guardian phone must be a 10 digit number.", ctx)
			return
		}
		student.GuardianPhone = utils.NormalizePhoneNumber(input.GuardianPhone)
	}
	if input.ClassID != nil {
		student.ClassID = *input.ClassID
	}
	if input.Password != "" {
		hashed, hashErr := hashAndSaltPassword(input.Password)
		if hashErr != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		student.Password = hashed
	}

	if err := storage.DB.Save(&student).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "student.update", "student", itoa(student.ID), before, student)
	ctx.JSON(student)
}

func DeleteStudent(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var student models.Student
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&student)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	storage.DB.Where("student_id = ?", student.ID).Delete(&models.AttendanceRecord{})
	storage.DB.Where("student_id = ?", student.ID).Delete(&models.ExamResult{})
	storage.DB.Delete(&student)

	utils.Audit(ctx, "student.delete", "student", itoa(student.ID), student, nil)
	ctx.JSON(iris.Map{"deleted": true})
}

// MarkStudentAttendance records presence for one subject session.
func MarkStudentAttendance(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var input StudentAttendanceInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var student models.Student
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&student)
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

	var record models.AttendanceRecord
	existing := storage.DB.Where("student_id = ? AND subject_id = ? AND date = ?", student.ID, input.SubjectID, date).
		Limit(1).Find(&record)
	if existing.RowsAffected > 0 {
		record.Status = input.Status
		storage.DB.Save(&record)
	} else {
		record = models.AttendanceRecord{
			StudentID: student.ID,
			SubjectID: input.SubjectID,
			Date:      date,
			Status:    input.Status,
		}
		storage.DB.Create(&record)
	}
	ctx.JSON(record)
}

// ClearStudentAttendance wipes a student's attendance for one subject.
func ClearStudentAttendance(ctx iris.Context) {
	id := ctx.Params().Get("id")
	subjectID := ctx.Params().Get("subjectID")

	res := storage.DB.Where("student_id = ? AND subject_id = ?", id, subjectID).Delete(&models.AttendanceRecord{})
	if res.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"cleared": res.RowsAffected})
}

// RecordExamResult upserts one subject's marks for a student.
func RecordExamResult(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var input ExamResultInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var student models.Student
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&student)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	var result models.ExamResult
	existing := storage.DB.Where("student_id = ? AND subject_id = ?", student.ID, input.SubjectID).Limit(1).Find(&result)
	if existing.RowsAffected > 0 {
		before := result
		result.MarksObtained = input.MarksObtained
		storage.DB.Save(&result)
		utils.Audit(ctx, "examresult.update", "examresult", itoa(result.ID), before, result)
	} else {
		result = models.ExamResult{
			StudentID:     student.ID,
			SubjectID:     input.SubjectID,
			MarksObtained: input.MarksObtained,
		}
		storage.DB.Create(&result)
		utils.Audit(ctx, "examresult.create", "examresult", itoa(result.ID), nil, result)
	}
	ctx.JSON(result)
}

// AlterStudentPushToken registers or removes an Expo push token.
func AlterStudentPushToken(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var input PushTokenInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var student models.Student
	if err := storage.DB.First(&student, claims.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	updated, err := alterPushTokens(student.PushTokens, input)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	student.PushTokens = updated
	if input.AllowsNotifications != nil {
		student.AllowsNotifications = input.AllowsNotifications
	}
	storage.DB.Save(&student)
	ctx.JSON(iris.Map{"updated": true})
}

type CreateStudentInput struct {
	Name          string `json:"name" validate:"required,max=256"`
	RollNum       int    `json:"rollNum" validate:"required,min=1"`
	Email         string `json:"email" validate:"omitempty,email"`
	Password      string `json:"password" validate:"required,min=8,max=256"`
	ClassID       uint   `json:"classID" validate:"required"`
	GuardianPhone string `json:"guardianPhone"`
}

type LoginStudentInput struct {
	RollNum  int    `json:"rollNum" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateStudentInput struct {
	Name          string `json:"name"`
	Email         string `json:"email" validate:"omitempty,email"`
	Password      string `json:"password" validate:"omitempty,min=8,max=256"`
	ClassID       *uint  `json:"classID"`
	GuardianPhone string `json:"guardianPhone"`
}

type StudentAttendanceInput struct {
	SubjectID uint   `json:"subjectID" validate:"required"`
	Date      string `json:"date"`
	Status    string `json:"status" validate:"required,oneof=present absent"`
}

type ExamResultInput struct {
	SubjectID     uint `json:"subjectID" validate:"required"`
	MarksObtained int  `json:"marksObtained" validate:"min=0,max=100"`
}
