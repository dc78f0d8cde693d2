package routes

import (
	"time"

	"github.com/kataras/iris/v12"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

func CreateNotice(ctx iris.Context) {
	var input NoticeInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	schoolID := ctx.Values().Get("schoolID").(uint)

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	notice := models.Notice{
		Title:    input.Title,
		Details:  input.Details,
		Date:     date,
		SchoolID: schoolID,
	}
	if err := storage.DB.Create(&notice).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "notice.create", "notice", itoa(notice.ID), nil, notice)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(notice)
}

func ListNotices(ctx iris.Context) {
	schoolID := ctx.Values().Get("schoolID").(uint)

	notices := []models.Notice{}
	if err := storage.DB.Where("school_id = ?", schoolID).Order("date DESC").Find(&notices).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(notices)
}

func UpdateNotice(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var input NoticeInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var notice models.Notice
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&notice)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	before := notice
	notice.Title = input.Title
	notice.Details = input.Details
	if !input.Date.IsZero() {
		notice.Date = input.Date
	}
	if err := storage.DB.Save(&notice).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "notice.update", "notice", itoa(notice.ID), before, notice)
	ctx.JSON(notice)
}

func DeleteNotice(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var notice models.Notice
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&notice)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	storage.DB.Delete(&notice)
	utils.Audit(ctx, "notice.delete", "notice", itoa(notice.ID), notice, nil)
	ctx.JSON(iris.Map{"deleted": true})
}

type NoticeInput struct {
	Title   string    `json:"title" validate:"required,max=256"`
	Details string    `json:"details" validate:"required"`
	Date    time.Time `json:"date"`
}
