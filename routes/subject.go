package routes

import (
	"strings"

	"github.com/kataras/iris/v12"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

// CreateSubjects creates a batch of subjects for one class. Codes must be
// unique within the school.
func CreateSubjects(ctx iris.Context) {
	var input CreateSubjectsInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	schoolID := ctx.Values().Get("schoolID").(uint)

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

	codes := make([]string, 0, len(input.Subjects))
	for _, s := range input.Subjects {
		codes = append(codes, strings.ToUpper(s.Code))
	}
	var clash models.Subject
	clashQuery := storage.DB.Where("school_id = ? AND code IN ?", schoolID, codes).Limit(1).Find(&clash)
	if clashQuery.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if clashQuery.RowsAffected > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "Subject code "+clash.Code+" is already in use.", ctx)
		return
	}

	subjects := make([]models.Subject, 0, len(input.Subjects))
	for _, s := range input.Subjects {
		subjects = append(subjects, models.Subject{
			Name:     s.Name,
			Code:     strings.ToUpper(s.Code),
			Sessions: s.Sessions,
			ClassID:  input.ClassID,
			SchoolID: schoolID,
		})
	}
	if err := storage.DB.Create(&subjects).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "subject.create", "subject", itoa(subjects[0].ID), nil, subjects)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(subjects)
}

func ListSubjects(ctx iris.Context) {
	schoolID := ctx.Values().Get("schoolID").(uint)

	db := storage.DB.Where("school_id = ?", schoolID)
	if classID := ctx.URLParamIntDefault("classID", 0); classID > 0 {
		db = db.Where("class_id = ?", classID)
	}

	subjects := []models.Subject{}
	if err := db.Preload("Teacher").Find(&subjects).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(subjects)
}

// ListFreeSubjects returns subjects with no teacher assigned yet, for the
// assignment dropdown on the admin dashboard.
func ListFreeSubjects(ctx iris.Context) {
	schoolID := ctx.Values().Get("schoolID").(uint)

	subjects := []models.Subject{}
	if err := storage.DB.Where("school_id = ? AND teacher_id IS NULL", schoolID).Find(&subjects).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(subjects)
}

func GetSubject(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var subject models.Subject
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).
		Preload("Teacher").Preload("Class").
		Limit(1).Find(&subject)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(subject)
}

func DeleteSubject(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var subject models.Subject
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&subject)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	storage.DB.Where("subject_id = ?", subject.ID).Delete(&models.AttendanceRecord{})
	storage.DB.Where("subject_id = ?", subject.ID).Delete(&models.ExamResult{})
	storage.DB.Delete(&subject)

	utils.Audit(ctx, "subject.delete", "subject", itoa(subject.ID), subject, nil)
	ctx.JSON(iris.Map{"deleted": true})
}

type SubjectInput struct {
	Name     string `json:"name" validate:"required,max=128"`
	Code     string `json:"code" validate:"required,max=16"`
	Sessions int    `json:"sessions" validate:"min=0"`
}

type CreateSubjectsInput struct {
	ClassID  uint           `json:"classID" validate:"required"`
	Subjects []SubjectInput `json:"subjects" validate:"required,min=1,dive"`
}
