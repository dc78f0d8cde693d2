package routes

import (
	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

// CreateResource stores a learning resource. The uploader identity comes
// from the token and must be an admin or teacher account; any other kind
// fails the request.
func CreateResource(ctx iris.Context) {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	if claims.Role != models.ModelAdmin && claims.Role != models.ModelTeacher {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Uploader must be an admin or teacher account.", ctx)
		return
	}

	var input CreateResourceInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	schoolID := claims.SchoolID

	fileURL := ""
	if input.FileBase64 != "" {
		// Unique public ID per upload, otherwise Cloudinary overwrites
		// the previous asset in place.
		fileURL = storage.UploadBase64File(input.FileBase64, "resources/"+utils.GenerateShortToken(8))
		if fileURL == "" {
			utils.CreateInternalServerError(ctx)
			return
		}
	}
	if fileURL == "" && input.ExternalURL == "" {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "A resource needs a file or an external link.", ctx)
		return
	}

	resource := models.LearningResource{
		Title:         input.Title,
		Description:   input.Description,
		FileURL:       fileURL,
		ExternalURL:   input.ExternalURL,
		SubjectID:     input.SubjectID,
		ClassID:       input.ClassID,
		SchoolID:      schoolID,
		UploaderID:    claims.ID,
		UploaderModel: claims.Role,
		UploaderName:  claims.Name,
	}
	if err := storage.DB.Create(&resource).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "resource.create", "resource", itoa(resource.ID), nil, resource)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(resource)
}

func ListResources(ctx iris.Context) {
	schoolID := ctx.Values().Get("schoolID").(uint)

	db := storage.DB.Where("school_id = ?", schoolID)
	if classID := ctx.URLParamIntDefault("classID", 0); classID > 0 {
		db = db.Where("class_id = ? OR class_id IS NULL", classID)
	}
	if subjectID := ctx.URLParamIntDefault("subjectID", 0); subjectID > 0 {
		db = db.Where("subject_id = ?", subjectID)
	}

	resources := []models.LearningResource{}
	if err := db.Order("created_at DESC").Find(&resources).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(resources)
}

func GetResource(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var resource models.LearningResource
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&resource)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(resource)
}

// DeleteResource removes the record and its uploaded file. Only the
// uploader or an admin may delete.
func DeleteResource(ctx iris.Context) {
	id := ctx.Params().Get("id")
	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	schoolID := ctx.Values().Get("schoolID").(uint)

	var resource models.LearningResource
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&resource)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	if claims.Role != models.ModelAdmin &&
		!(resource.UploaderModel == claims.Role && resource.UploaderID == claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	if resource.FileURL != "" {
		storage.DeleteUploadedFile(resource.FileURL)
	}
	storage.DB.Delete(&resource)

	utils.Audit(ctx, "resource.delete", "resource", itoa(resource.ID), resource, nil)
	ctx.JSON(iris.Map{"deleted": true})
}

type CreateResourceInput struct {
	Title       string `json:"title" validate:"required,max=256"`
	Description string `json:"description"`
	FileBase64  string `json:"fileBase64"`
	ExternalURL string `json:"externalURL" validate:"omitempty,url"`
	SubjectID   *uint  `json:"subjectID"`
	ClassID     *uint  `json:"classID"`
}
