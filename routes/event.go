package routes

import (
	"time"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

func CreateEvent(ctx iris.Context) {
	var input EventInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	schoolID := ctx.Values().Get("schoolID").(uint)

	if input.Audience == "class" && input.ClassID == nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "classID is required for a class audience.", ctx)
		return
	}
	if !input.EndTime.After(input.StartTime) {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "endTime must be after startTime.", ctx)
		return
	}

	event := models.Event{
		Title:       input.Title,
		Description: input.Description,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Location:    input.Location,
		Audience:    input.Audience,
		ClassID:     input.ClassID,
		SchoolID:    schoolID,
		CreatedBy:   claims.ID,
	}
	if err := storage.DB.Create(&event).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "event.create", "event", itoa(event.ID), nil, event)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(event)
}

// ListEvents returns calendar entries visible to the caller, optionally
// within a from/to range (RFC 3339 query params).
func ListEvents(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	schoolID := ctx.Values().Get("schoolID").(uint)

	db := storage.DB.Where("school_id = ?", schoolID)

	switch claims.Role {
	case models.ModelTeacher:
		db = db.Where("audience IN ?", []string{"all", "teachers"})
	case models.ModelStudent:
		var student models.Student
		storage.DB.First(&student, claims.ID)
		db = db.Where("audience IN ? OR (audience = ? AND class_id = ?)",
			[]string{"all", "students"}, "class", student.ClassID)
	}

	if from := ctx.URLParam("from"); from != "" {
		if t, parseErr := time.Parse(time.RFC3339, from); parseErr == nil {
			db = db.Where("end_time >= ?", t)
		}
	}
	if to := ctx.URLParam("to"); to != "" {
		if t, parseErr := time.Parse(time.RFC3339, to); parseErr == nil {
			db = db.Where("start_time <= ?", t)
		}
	}

	events := []models.Event{}
	if err := db.Order("start_time ASC").Find(&events).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(events)
}

func GetEvent(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var event models.Event
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&event)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(event)
}

func UpdateEvent(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var input EventInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var event models.Event
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&event)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	before := event
	event.Title = input.Title
	event.Description = input.Description
	event.StartTime = input.StartTime
	event.EndTime = input.EndTime
	event.Location = input.Location
	event.Audience = input.Audience
	event.ClassID = input.ClassID
	if err := storage.DB.Save(&event).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "event.update", "event", itoa(event.ID), before, event)
	ctx.JSON(event)
}

func DeleteEvent(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var event models.Event
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&event)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	storage.DB.Delete(&event)
	utils.Audit(ctx, "event.delete", "event", itoa(event.ID), event, nil)
	ctx.JSON(iris.Map{"deleted": true})
}

type EventInput struct {
	Title       string    `json:"title" validate:"required,max=256"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required"`
	Location    string    `json:"location"`
	Audience    string    `json:"audience" validate:"required,oneof=all teachers students class"`
	ClassID     *uint     `json:"classID"`
}
