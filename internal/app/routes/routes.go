package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/supersix/academy/internal/app/controllers"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/app/models/dto"
	"github.com/supersix/academy/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	studentController *controllers.StudentController,
	authMiddleware *middleware.AuthMiddleware,
	storageDriver string,
) {
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", authController.Signup)
		auth.POST("/login", authController.Login)
	}
	v1.GET("/branches", studentController.ListBranches)

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.GET("/auth/me", authController.GetProfile)
	}

	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.RoleRequired(string(models.RoleAdmin)))
	{
		admin.GET("/branches/summary", studentController.BranchSummaries)
		admin.GET("/students", studentController.ListStudents)
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.HealthResponse{Status: "ok", Storage: storageDriver}, ""))
	})
}
