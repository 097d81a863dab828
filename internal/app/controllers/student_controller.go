package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/supersix/academy/internal/app/models/dto"
	"github.com/supersix/academy/internal/app/services"
	"github.com/supersix/academy/internal/middleware"
	"github.com/supersix/academy/internal/pkg/helpers"
)

// StudentController serves branches and the admin roster
type StudentController struct {
	studentService services.StudentService
	logger         zerolog.Logger
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService services.StudentService, logger zerolog.Logger) *StudentController {
	return &StudentController{
		studentService: studentService,
		logger:         logger,
	}
}

// ListBranches returns the branches available at signup
// @Summary List branches
// @Tags branches
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.BranchResponse}
// @Router /branches [get]
func (c *StudentController) ListBranches(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.studentService.ListBranches(), ""))
}

// BranchSummaries reports the IDs issued per branch
// @Summary Student IDs issued per branch
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.BranchSummary}
// @Failure 403 {object} dto.ErrorResponse "Admin only"
// @Router /admin/branches/summary [get]
func (c *StudentController) BranchSummaries(ctx *gin.Context) {
	summaries, err := c.studentService.BranchSummaries(ctx.Request.Context())
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build branch summaries")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summaries, ""))
}

// ListStudents returns a page of the roster
// @Summary List students
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param branch query string false "Branch key"
// @Param search query string false "Name, email or student ID"
// @Param page query int false "Page number (1-based)"
// @Param size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.StudentListResponse}
// @Failure 400 {object} dto.ErrorResponse "Unknown branch"
// @Failure 403 {object} dto.ErrorResponse "Admin only"
// @Router /admin/students [get]
func (c *StudentController) ListStudents(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)

	resp, err := c.studentService.ListStudents(ctx.Request.Context(), ctx.Query("branch"), ctx.Query("search"), page, size)
	if err != nil {
		c.logger.Warn().Err(err).Str("branch", ctx.Query("branch")).Msg("Failed to list students")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}
