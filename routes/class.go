package routes

import (
	"github.com/kataras/iris/v12"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

func CreateClass(ctx iris.Context) {
	var input CreateClassInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	schoolID := ctx.Values().Get("schoolID").(uint)

	var existing models.SchoolClass
	query := storage.DB.Where("school_id = ? AND name = ?", schoolID, input.Name).Limit(1).Find(&existing)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "A class with this name already exists.", ctx)
		return
	}

	class := models.SchoolClass{
		Name:     input.Name,
		SchoolID: schoolID,
	}
	if err := storage.DB.Create(&class).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "class.create", "class", itoa(class.ID), nil, class)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(class)
}

func ListClasses(ctx iris.Context) {
	schoolID := ctx.Values().Get("schoolID").(uint)

	classes := []models.SchoolClass{}
	if err := storage.DB.Where("school_id = ?", schoolID).Find(&classes).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(classes)
}

func GetClass(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var class models.SchoolClass
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).
		Preload("Subjects.Teacher").Preload("Students").
		Limit(1).Find(&class)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(class)
}

// DeleteClass removes a class and everything hanging off it. Students of the
// class go with it, matching the cascade the dashboard expects.
func DeleteClass(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var class models.SchoolClass
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&class)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	var studentIDs []uint
	storage.DB.Model(&models.Student{}).Where("class_id = ?", class.ID).Pluck("id", &studentIDs)
	if len(studentIDs) > 0 {
		storage.DB.Where("student_id IN ?", studentIDs).Delete(&models.AttendanceRecord{})
		storage.DB.Where("student_id IN ?", studentIDs).Delete(&models.ExamResult{})
		storage.DB.Where("class_id = ?", class.ID).Delete(&models.Student{})
	}
	storage.DB.Where("class_id = ?", class.ID).Delete(&models.Subject{})
	storage.DB.Delete(&class)

	utils.Audit(ctx, "class.delete", "class", itoa(class.ID), class, nil)
	ctx.JSON(iris.Map{"deleted": true})
}

type CreateClassInput struct {
	Name string `json:"name" validate:"required,max=128"`
}
