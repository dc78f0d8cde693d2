package routes

import (
	"time"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/services"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

func CreateAssignment(ctx iris.Context) {
	var input CreateAssignmentInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	schoolID := ctx.Values().Get("schoolID").(uint)

	var subject models.Subject
	subjectQuery := storage.DB.Where("id = ? AND school_id = ?", input.SubjectID, schoolID).Limit(1).Find(&subject)
	if subjectQuery.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if subjectQuery.RowsAffected == 0 {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Subject does not exist in this school.", ctx)
		return
	}
	if subject.TeacherID == nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Subject has no teacher assigned.", ctx)
		return
	}

	assignment := models.Assignment{
		Title:       input.Title,
		Description: input.Description,
		SubjectID:   subject.ID,
		ClassID:     subject.ClassID,
		TeacherID:   *subject.TeacherID,
		SchoolID:    schoolID,
		DueDate:     input.DueDate,
	}
	if err := storage.DB.Create(&assignment).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "assignment.create", "assignment", itoa(assignment.ID), nil, assignment)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(assignment)
}

func ListAssignments(ctx iris.Context) {
	schoolID := ctx.Values().Get("schoolID").(uint)

	db := storage.DB.Where("school_id = ?", schoolID)
	if classID := ctx.URLParamIntDefault("classID", 0); classID > 0 {
		db = db.Where("class_id = ?", classID)
	}
	if subjectID := ctx.URLParamIntDefault("subjectID", 0); subjectID > 0 {
		db = db.Where("subject_id = ?", subjectID)
	}

	assignments := []models.Assignment{}
	if err := db.Preload("Subject").Order("due_date ASC").Find(&assignments).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(assignments)
}

func GetAssignment(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var assignment models.Assignment
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).
		Preload("Subject").Preload("Teacher").Preload("Submissions.Student").
		Limit(1).Find(&assignment)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(assignment)
}

func DeleteAssignment(ctx iris.Context) {
	id := ctx.Params().Get("id")
	schoolID := ctx.Values().Get("schoolID").(uint)

	var assignment models.Assignment
	query := storage.DB.Where("id = ? AND school_id = ?", id, schoolID).Limit(1).Find(&assignment)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	storage.DB.Where("assignment_id = ?", assignment.ID).Delete(&models.AssignmentSubmission{})
	storage.DB.Delete(&assignment)

	utils.Audit(ctx, "assignment.delete", "assignment", itoa(assignment.ID), assignment, nil)
	ctx.JSON(iris.Map{"deleted": true})
}

// SubmitAssignment records a student's submission, one per student per
// assignment. Resubmitting replaces the previous body.
func SubmitAssignment(ctx iris.Context) {
	id := ctx.Params().Get("id")
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	var input SubmitAssignmentInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var assignment models.Assignment
	query := storage.DB.Where("id = ? AND school_id = ?", id, claims.SchoolID).Limit(1).Find(&assignment)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	attachmentURL := ""
	if input.AttachmentBase64 != "" {
		// Public ID scoped to the assignment and student so submissions
		// never overwrite each other on Cloudinary.
		publicID := "submissions/" + itoa(assignment.ID) + "/" + itoa(claims.ID)
		attachmentURL = storage.UploadBase64File(input.AttachmentBase64, publicID)
		if attachmentURL == "" {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	var submission models.AssignmentSubmission
	existing := storage.DB.Where("assignment_id = ? AND student_id = ?", assignment.ID, claims.ID).
		Limit(1).Find(&submission)
	if existing.RowsAffected > 0 {
		submission.Body = input.Body
		if attachmentURL != "" {
			// Same public ID as the first upload, so Cloudinary already
			// replaced the asset in place. Only the URL changes.
			submission.AttachmentURL = attachmentURL
		}
		submission.SubmittedAt = time.Now()
		storage.DB.Save(&submission)
	} else {
		submission = models.AssignmentSubmission{
			AssignmentID:  assignment.ID,
			StudentID:     claims.ID,
			Body:          input.Body,
			AttachmentURL: attachmentURL,
			SubmittedAt:   time.Now(),
		}
		storage.DB.Create(&submission)
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(submission)
}

// GradeSubmission records a grade. The grader identity comes from the
// token; only admin and teacher accounts may grade, anything else fails
// the request outright.
func GradeSubmission(ctx iris.Context) {
	id := ctx.Params().Get("id")
	submissionID := ctx.Params().Get("submissionID")
	claims := jsonWT.Get(ctx).(*utils.AccessToken)

	if claims.Role != models.ModelAdmin && claims.Role != models.ModelTeacher {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Grader must be an admin or teacher account.", ctx)
		return
	}

	var input GradeSubmissionInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var assignment models.Assignment
	assignmentQuery := storage.DB.Where("id = ? AND school_id = ?", id, claims.SchoolID).Limit(1).Find(&assignment)
	if assignmentQuery.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if assignmentQuery.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	var submission models.AssignmentSubmission
	query := storage.DB.Where("id = ? AND assignment_id = ?", submissionID, assignment.ID).Limit(1).Find(&submission)
	if query.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if query.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	before := submission
	now := time.Now()
	graderID := claims.ID
	submission.Grade = &input.Grade
	submission.Feedback = input.Feedback
	submission.GraderID = &graderID
	submission.GraderModel = claims.Role
	submission.GradedAt = &now
	if err := storage.DB.Save(&submission).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "submission.grade", "submission", itoa(submission.ID), before, submission)
	go services.Notifications.SendGradeNotification(submission.StudentID, assignment.Title, input.Grade)
	ctx.JSON(submission)
}

type CreateAssignmentInput struct {
	Title       string    `json:"title" validate:"required,max=256"`
	Description string    `json:"description"`
	SubjectID   uint      `json:"subjectID" validate:"required"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
}

type SubmitAssignmentInput struct {
	Body             string `json:"body" validate:"required_without=AttachmentBase64"`
	AttachmentBase64 string `json:"attachmentBase64"`
}

type GradeSubmissionInput struct {
	Grade    int    `json:"grade" validate:"min=0,max=100"`
	Feedback string `json:"feedback"`
}
