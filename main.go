package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"assessment-service/internal/db"
	"assessment-service/internal/event"
	"assessment-service/internal/generation"
	"assessment-service/internal/handlers"
	"assessment-service/internal/jobs"
	"assessment-service/internal/repository"
	"assessment-service/internal/service"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		log.Fatal("MONGO_URI is required")
	}
	db.InitMongo(mongoURI)

	// RabbitMQ event publisher
	rabbitURL := os.Getenv("RABBITMQ_URI")
	eventExchange := os.Getenv("RABBITMQ_EXCHANGE")
	var publisher *event.EventPublisher
	if rabbitURL != "" && eventExchange != "" {
		var err error
		publisher, err = event.NewEventPublisher(rabbitURL, eventExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RabbitMQ not configured, events will not be published")
	}

	// External question generation collaborator
	var generator generation.Generator
	if genURL := os.Getenv("GENERATION_URL"); genURL != "" {
		generator = generation.NewHTTPGenerator(genURL, os.Getenv("GENERATION_API_KEY"))
	} else {
		log.Println("GENERATION_URL not configured, question generation falls back to manual authoring")
	}

	database := db.Client.Database("assessment_service")

	// Repositories
	attemptRepo := repository.NewAttemptRepository(database)
	assessmentRepo := repository.NewAssessmentRepository(database)
	questionRepo := repository.NewQuestionRepository(database)
	progressRepo := repository.NewProgressRepository(database)
	patternRepo := repository.NewPatternRepository(database)
	courseRepo := repository.NewCourseRepository(database)

	// Services
	progressService := service.NewProgressService(progressRepo, courseRepo, assessmentRepo, attemptRepo, publisher)
	attemptService := service.NewAttemptService(attemptRepo, assessmentRepo, progressService, publisher)
	patternService := service.NewPatternService(attemptRepo, patternRepo, progressRepo, courseRepo, nil, publisher)
	assessmentService := service.NewAssessmentService(assessmentRepo, generator)
	questionService := service.NewQuestionService(questionRepo)
	courseService := service.NewCourseService(courseRepo)

	// Handlers
	attemptHandler := handlers.NewAttemptHandler(attemptService)
	progressHandler := handlers.NewProgressHandler(progressService)
	patternHandler := handlers.NewPatternHandler(patternService)
	assessmentHandler := handlers.NewAssessmentHandler(assessmentService)
	questionHandler := handlers.NewQuestionHandler(questionService)
	courseHandler := handlers.NewCourseHandler(courseService)

	// Background sweeps
	scheduler := jobs.NewScheduler(attemptService, patternService)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID", "X-User-Role"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Authenticated routes: the gateway sets X-User-ID after auth.
	authed := r.Group("/", handlers.RequireUser())
	{
		authed.GET("/assessments/:id", assessmentHandler.Get)
		authed.POST("/assessments/:id/attempts", attemptHandler.Start)
		authed.GET("/assessments/:id/attempts", attemptHandler.History)

		authed.GET("/attempts/:id", attemptHandler.Get)
		authed.PATCH("/attempts/:id/answers/:questionId", attemptHandler.RecordAnswer)
		authed.POST("/attempts/:id/submit", attemptHandler.Submit)

		authed.GET("/students/:id/attempts", attemptHandler.ListByStudent)
		authed.GET("/students/:id/patterns", patternHandler.Get)

		authed.GET("/progress/:studentId", progressHandler.Get)
		authed.POST("/lessons/:id/start", progressHandler.StartLesson)
		authed.POST("/lessons/:id/complete", progressHandler.CompleteLesson)

		authed.GET("/courses", courseHandler.List)
		authed.GET("/courses/:id", courseHandler.Get)
		authed.GET("/courses/:id/assessments", assessmentHandler.ListByCourse)
		authed.GET("/questions", questionHandler.List)
		authed.GET("/questions/:id", questionHandler.Get)
	}

	// Instructor routes: authoring, grading, overrides.
	instructor := r.Group("/", handlers.RequireUser(), handlers.RequireInstructor())
	{
		instructor.POST("/assessments", assessmentHandler.Create)
		instructor.PUT("/assessments/:id", assessmentHandler.Update)
		instructor.DELETE("/assessments/:id", assessmentHandler.Delete)
		instructor.POST("/assessments/:id/questions/generate", assessmentHandler.Generate)

		instructor.POST("/attempts/:id/grade", attemptHandler.Grade)

		instructor.POST("/progress/:studentId/block", progressHandler.Block)
		instructor.POST("/progress/:studentId/unblock", progressHandler.Unblock)
		instructor.POST("/progress/:studentId/recompute", progressHandler.Recompute)
		instructor.POST("/students/:id/patterns/refresh", patternHandler.Refresh)

		instructor.POST("/questions", questionHandler.Create)
		instructor.PUT("/questions/:id", questionHandler.Update)
		instructor.DELETE("/questions/:id", questionHandler.Delete)
		instructor.POST("/questions/pick", questionHandler.Pick)

		instructor.POST("/courses", courseHandler.Create)
		instructor.PUT("/courses/:id", courseHandler.Update)
		instructor.DELETE("/courses/:id", courseHandler.Delete)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
