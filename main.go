package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/SharathcAcharya/EduCore-sub001/routes"
	"github.com/SharathcAcharya/EduCore-sub001/services"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
	storage.InitializeCloudinary()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	// JWT Verifiers
	resetTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("EMAIL_TOKEN_SECRET")))
	resetTokenVerifier.WithDefaultBlocklist()
	resetTokenVerifierMiddleware := resetTokenVerifier.Verify(func() interface{} {
		return new(utils.ForgotPasswordToken)
	})

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	// Health check endpoint for the hosting platform
	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	admin := app.Party("/api/admin")
	{
		admin.Post("/register", routes.RegisterAdmin)
		admin.Post("/login", routes.LoginAdmin)
		admin.Post("/google", routes.GoogleLoginOrSignUp)
		admin.Post("/apple", routes.AppleLoginOrSignUp)
		admin.Post("/forgotpassword", routes.ForgotPassword)
		admin.Post("/resetpassword", resetTokenVerifierMiddleware, routes.ResetPassword)
		admin.Get("/me", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.GetAdmin)
		admin.Get("/stats", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.AdminStats)
		admin.Get("/activity", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.AdminActivity)
	}

	teacher := app.Party("/api/teacher")
	{
		teacher.Post("/login", routes.LoginTeacher)
		teacher.Post("/", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.CreateTeacher)
		teacher.Get("/", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.ListTeachers)
		teacher.Get("/{id}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetTeacher)
		teacher.Patch("/{id}/assignment", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.UpdateTeacherAssignment)
		teacher.Delete("/{id}", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.DeleteTeacher)
		teacher.Post("/{id}/attendance", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.MarkTeacherAttendance)
		teacher.Patch("/pushtoken", accessTokenVerifierMiddleware, routes.AlterTeacherPushToken)
	}

	student := app.Party("/api/student")
	{
		student.Post("/login", routes.LoginStudent)
		student.Post("/", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.CreateStudent)
		student.Get("/", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware, routes.ListStudents)
		student.Get("/{id}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetStudent)
		student.Patch("/{id}", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.UpdateStudent)
		student.Delete("/{id}", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.DeleteStudent)
		student.Post("/{id}/attendance", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware, routes.MarkStudentAttendance)
		student.Delete("/{id}/attendance/{subjectID}", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.ClearStudentAttendance)
		student.Post("/{id}/exam-result", accessTokenVerifierMiddleware, utils.StaffOnlyMiddleware, routes.RecordExamResult)
		student.Patch("/pushtoken", accessTokenVerifierMiddleware, routes.AlterStudentPushToken)
	}

	class := app.Party("/api/class", accessTokenVerifierMiddleware)
	{
		class.Post("/", utils.AdminOnlyMiddleware, routes.CreateClass)
		class.Get("/", utils.UserIDFromTokenMiddleware, routes.ListClasses)
		class.Get("/{id}", utils.UserIDFromTokenMiddleware, routes.GetClass)
		class.Delete("/{id}", utils.AdminOnlyMiddleware, routes.DeleteClass)
	}

	subject := app.Party("/api/subject", accessTokenVerifierMiddleware)
	{
		subject.Post("/", utils.AdminOnlyMiddleware, routes.CreateSubjects)
		subject.Get("/", utils.UserIDFromTokenMiddleware, routes.ListSubjects)
		subject.Get("/free", utils.AdminOnlyMiddleware, routes.ListFreeSubjects)
		subject.Get("/{id}", utils.UserIDFromTokenMiddleware, routes.GetSubject)
		subject.Delete("/{id}", utils.AdminOnlyMiddleware, routes.DeleteSubject)
	}

	assignment := app.Party("/api/assignment", accessTokenVerifierMiddleware)
	{
		assignment.Post("/", utils.StaffOnlyMiddleware, routes.CreateAssignment)
		assignment.Get("/", utils.UserIDFromTokenMiddleware, routes.ListAssignments)
		assignment.Get("/{id}", utils.UserIDFromTokenMiddleware, routes.GetAssignment)
		assignment.Delete("/{id}", utils.StaffOnlyMiddleware, routes.DeleteAssignment)
		assignment.Post("/{id}/submit", routes.SubmitAssignment)
		assignment.Post("/{id}/submissions/{submissionID}/grade", utils.StaffOnlyMiddleware, routes.GradeSubmission)
	}

	event := app.Party("/api/event", accessTokenVerifierMiddleware)
	{
		event.Post("/", utils.StaffOnlyMiddleware, routes.CreateEvent)
		event.Get("/", utils.UserIDFromTokenMiddleware, routes.ListEvents)
		event.Get("/{id}", utils.UserIDFromTokenMiddleware, routes.GetEvent)
		event.Put("/{id}", utils.StaffOnlyMiddleware, routes.UpdateEvent)
		event.Delete("/{id}", utils.StaffOnlyMiddleware, routes.DeleteEvent)
	}

	resource := app.Party("/api/resource", accessTokenVerifierMiddleware)
	{
		resource.Post("/", routes.CreateResource)
		resource.Get("/", utils.UserIDFromTokenMiddleware, routes.ListResources)
		resource.Get("/{id}", utils.UserIDFromTokenMiddleware, routes.GetResource)
		resource.Delete("/{id}", utils.UserIDFromTokenMiddleware, routes.DeleteResource)
	}

	notice := app.Party("/api/notice", accessTokenVerifierMiddleware)
	{
		notice.Post("/", utils.AdminOnlyMiddleware, routes.CreateNotice)
		notice.Get("/", utils.UserIDFromTokenMiddleware, routes.ListNotices)
		notice.Put("/{id}", utils.AdminOnlyMiddleware, routes.UpdateNotice)
		notice.Delete("/{id}", utils.AdminOnlyMiddleware, routes.DeleteNotice)
	}

	messages := app.Party("/api/messages", accessTokenVerifierMiddleware)
	{
		messages.Post("/", routes.CreateMessage)
		messages.Get("/inbox/{userID:uint}/{userModel}", routes.GetInbox)
		messages.Get("/sent/{userID:uint}/{userModel}", routes.GetSent)
		messages.Get("/conversation/{userID:uint}/{userModel}/{otherID:uint}", routes.GetConversation)
		messages.Get("/unread/{userID:uint}/{userModel}", routes.GetUnreadCount)
		messages.Get("/broadcast/{userID:uint}/{userModel}", routes.GetBroadcastInbox)
		messages.Post("/typing", routes.SetTyping)
		messages.Get("/typing/{userID:uint}/{userModel}/{otherID:uint}", routes.ListTyping)
		messages.Get("/{id}", routes.GetMessage)
		messages.Delete("/{id}", routes.DeleteMessage)
	}

	// Real-time gateway; clients authenticate with query params and join
	// rooms over the socket.
	app.Get("/ws", services.HandleWebSocket)

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, routes.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
