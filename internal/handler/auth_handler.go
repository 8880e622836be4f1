package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proctorhub/proctorhub-backend/internal/middleware"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/proctorhub/proctorhub-backend/internal/response"
	"github.com/proctorhub/proctorhub-backend/internal/service"
	"github.com/proctorhub/proctorhub-backend/internal/validator"
)

// StudentGetter loads student profiles for authenticated requests.
type StudentGetter interface {
	GetByID(ctx context.Context, id int64) (*model.Student, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	students    StudentGetter
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, students StudentGetter) *AuthHandler {
	return &AuthHandler{authService: authService, students: students}
}

// Login godoc
// POST /api/v1/auth/login
// Validates credentials, rejects if a session is active elsewhere, returns JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, student, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		case errors.Is(err, service.ErrSessionAlreadyActive):
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"student": gin.H{
			"id":        student.ID,
			"username":  student.Username,
			"full_name": student.FullName,
		},
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Removes the student's login session so another device may log in.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), claims.StudentID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated student.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	student, err := h.students.GetByID(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"student": gin.H{
			"id":        student.ID,
			"username":  student.Username,
			"full_name": student.FullName,
		},
	})
}
