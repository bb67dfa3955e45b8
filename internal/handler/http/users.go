package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/service"
)

// UserHandler serves the user directory, admin management and the
// caller's own profile.
type UserHandler struct {
	users       *service.UserService
	maxFileSize int64
}

func NewUserHandler(users *service.UserService, maxFileSize int64) *UserHandler {
	if users == nil {
		panic("UserService cannot be nil for UserHandler")
	}
	if maxFileSize <= 0 {
		maxFileSize = service.DefaultMaxFileSize
	}
	return &UserHandler{users: users, maxFileSize: maxFileSize}
}

// CreateUserRequest is the admin create body.
type CreateUserRequest struct {
	RegisterRequest
	Role domain.Role `json:"role" binding:"required,role"`
}

// UpdateUserRequest holds optional fields; absent fields are kept.
type UpdateUserRequest struct {
	Username   *string      `json:"username" form:"username" binding:"omitempty,min=3,max=50"`
	Email      *string      `json:"email" form:"email" binding:"omitempty,email"`
	Phone      *string      `json:"phone" form:"phone" binding:"omitempty,ph_phone"`
	Role       *domain.Role `json:"role" form:"role" binding:"omitempty,role"`
	Department *string      `json:"department" form:"department"`
	Course     *string      `json:"course" form:"course"`
	YearLevel  *int         `json:"yearLevel" form:"yearLevel"`
	Bio        *string      `json:"bio" form:"bio"`
}

func (r UpdateUserRequest) update() service.UserUpdate {
	return service.UserUpdate{
		Username:   r.Username,
		Email:      r.Email,
		Phone:      r.Phone,
		Role:       r.Role,
		Department: r.Department,
		Course:     r.Course,
		YearLevel:  r.YearLevel,
		Bio:        r.Bio,
	}
}

// ChangePasswordRequest is the password change body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// List returns users grouped by role.
func (h *UserHandler) List(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		return
	}
	grouped, err := h.users.List(c.Request.Context(), uid)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, grouped)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, u)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindErrorResponse(c, err)
		return
	}
	in := req.input()
	in.Role = req.Role
	u, err := h.users.Create(c.Request.Context(), in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": u})
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindErrorResponse(c, err)
		return
	}
	u, err := h.users.Update(c.Request.Context(), id, req.update())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "user": u})
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithField("user_id", id).Info("Handler.DeleteUser: User deleted")
	MessageResponse(c, "User deleted successfully")
}

// UpdateProfile edits the caller's profile. Accepts JSON or multipart with
// an optional profilePicture file.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		BindErrorResponse(c, err)
		return
	}
	picture, err := formUpload(c, "profilePicture", h.maxFileSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	upd := req.update()
	upd.Role = nil
	u, err := h.users.UpdateProfile(c.Request.Context(), uid, upd, picture)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": u})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindErrorResponse(c, err)
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		HandleServiceError(c, err)
		return
	}
	MessageResponse(c, "Password changed successfully")
}

func (h *UserHandler) UploadProfilePicture(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		return
	}
	picture, err := formUpload(c, "profilePicture", h.maxFileSize)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	path, err := h.users.UploadProfilePicture(c.Request.Context(), uid, picture)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile picture uploaded successfully", "profilePicture": path})
}
