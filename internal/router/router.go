package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizroomhq/quizroom-backend/internal/config"
	"github.com/quizroomhq/quizroom-backend/internal/handler"
	"github.com/quizroomhq/quizroom-backend/internal/middleware"
	"github.com/quizroomhq/quizroom-backend/internal/response"
	"github.com/quizroomhq/quizroom-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Room    *handler.RoomHandler
	Student *handler.StudentHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireAnyJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAnyJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.GET("/dashboard", handlers.Room.Dashboard)
		teacherAPI.POST("/rooms", handlers.Room.CreateRoom)
		teacherAPI.GET("/rooms", handlers.Room.ListRooms)
		teacherAPI.GET("/rooms/:room_id", handlers.Room.GetRoom)
		teacherAPI.GET("/rooms/:room_id/members", handlers.Room.Members)
		teacherAPI.POST("/rooms/:room_id/quiz", handlers.Room.UploadQuiz)
		teacherAPI.PATCH("/rooms/:room_id/quiz/duration", handlers.Room.SetDuration)
		teacherAPI.POST("/rooms/:room_id/start", handlers.Room.StartQuiz)
		teacherAPI.POST("/rooms/:room_id/extend", handlers.Room.ExtendQuiz)
		teacherAPI.POST("/rooms/:room_id/close", handlers.Room.CloseRoom)
		teacherAPI.GET("/rooms/:room_id/report", handlers.Room.Report)
		teacherAPI.GET("/rooms/:room_id/students/:student_id/sheet", handlers.Room.StudentSheet)
	}

	// ─── 3. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.POST("/rooms/join", handlers.Student.JoinRoom)
		studentAPI.GET("/rooms", handlers.Student.ListRooms)
		studentAPI.GET("/rooms/:room_id/quiz", handlers.Student.TakeQuiz)
		studentAPI.POST("/rooms/:room_id/submit", handlers.Student.Submit)
		studentAPI.GET("/rooms/:room_id/result", handlers.Student.Result)
		studentAPI.GET("/rooms/:room_id/sheet", handlers.Student.Sheet)
		studentAPI.GET("/results", handlers.Student.Overview)
	}

	// ─── 4. WebSocket Group (Teacher WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireTeacherWSAuth(authService))
	{
		ws.GET("/teacher/rooms/:room_id/monitor", handlers.WS.MonitorRoom)
	}

	return router
}
