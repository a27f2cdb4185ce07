package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dtroode/account-server/internal/api/http/cookie"
	"github.com/dtroode/account-server/internal/api/http/response"
	"github.com/dtroode/account-server/internal/apierror"
	"github.com/dtroode/account-server/internal/logger"
	"github.com/dtroode/account-server/internal/model"
)

// SessionService defines login, token rotation and credential operations.
type SessionService interface {
	Login(ctx context.Context, params model.LoginParams) (model.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
}

// AccountService defines registration and profile operations.
type AccountService interface {
	Register(ctx context.Context, params model.RegisterParams) (model.Profile, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (model.Profile, error)
	UpdateDetails(ctx context.Context, userID uuid.UUID, details model.AccountDetails) (model.Profile, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, file model.Upload) (model.Profile, error)
	UpdateCoverImage(ctx context.Context, userID uuid.UUID, file model.Upload) (model.Profile, error)
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

type loginResponse struct {
	User         model.Profile `json:"user"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}

// User handles the /users endpoints.
type User struct {
	sessionService SessionService
	accountService AccountService
	contextManager model.ContextManager
	cookies        cookie.Options
	logger         *logger.Logger
}

// NewUser creates a new User handler.
func NewUser(
	sessionService SessionService,
	accountService AccountService,
	contextManager model.ContextManager,
	cookies cookie.Options,
	logger *logger.Logger,
) *User {
	return &User{
		sessionService: sessionService,
		accountService: accountService,
		contextManager: contextManager,
		cookies:        cookies,
		logger:         logger,
	}
}

// Register creates an account from a multipart form with avatar and optional cover image.
func (h *User) Register(c *gin.Context) {
	h.logger.Debug("User handler: processing register request")

	avatar, closeAvatar, err := formUpload(c, "avatar")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeAvatar()

	cover, closeCover, err := formUpload(c, "coverImage")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeCover()

	params := model.RegisterParams{
		Username:   c.PostForm("username"),
		FullName:   c.PostForm("fullName"),
		Email:      c.PostForm("email"),
		Password:   c.PostForm("password"),
		CoverImage: cover,
	}
	if avatar != nil {
		params.Avatar = *avatar
	}

	profile, err := h.accountService.Register(c.Request.Context(), params)
	if err != nil {
		h.logger.Info("User handler: register failed",
			"username", c.PostForm("username"),
			"error", err.Error())
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, profile, "User registered successfully")
}

// Login authenticates by username or email and sets the token cookies.
func (h *User) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apierror.NewErrValidation("invalid request body"))
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		response.Error(c, apierror.NewErrValidation("username or email is required"))
		return
	}
	if req.Password == "" {
		response.Error(c, apierror.NewErrValidation("password is required"))
		return
	}

	result, err := h.sessionService.Login(c.Request.Context(), model.LoginParams{
		Identifier: identifier,
		Password:   req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	cookie.SetTokens(c, h.cookies, result.Tokens)
	response.JSON(c, http.StatusOK, loginResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// RefreshToken rotates the refresh token taken from the cookie or the request body.
func (h *User) RefreshToken(c *gin.Context) {
	presented, _ := c.Cookie(cookie.RefreshToken)
	if presented == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	pair, err := h.sessionService.Refresh(c.Request.Context(), presented)
	if err != nil {
		response.Error(c, err)
		return
	}

	cookie.SetTokens(c, h.cookies, pair)
	response.JSON(c, http.StatusOK, pair, "Access token refreshed successfully")
}

// Logout ends the session of the authenticated user and clears the cookies.
func (h *User) Logout(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.sessionService.Logout(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	cookie.ClearTokens(c, h.cookies)
	response.JSON(c, http.StatusOK, nil, "User logged out successfully")
}

// ChangePassword replaces the password of the authenticated user.
func (h *User) ChangePassword(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apierror.NewErrValidation("old and new password are required"))
		return
	}

	err := h.sessionService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, nil, "Password changed successfully")
}

// CurrentUser returns the authenticated user's profile.
func (h *User) CurrentUser(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	profile, err := h.accountService.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, "Current user fetched successfully")
}

// UpdateAccount changes full name, username and email.
func (h *User) UpdateAccount(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apierror.NewErrValidation("all fields are required"))
		return
	}

	profile, err := h.accountService.UpdateDetails(c.Request.Context(), userID, model.AccountDetails{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, "Account details updated successfully")
}

// UpdateAvatar replaces the avatar from the "avatar" form file.
func (h *User) UpdateAvatar(c *gin.Context) {
	h.updateMedia(c, "avatar", h.accountService.UpdateAvatar, "Avatar updated successfully")
}

// UpdateCoverImage replaces the cover image from the "coverImage" form file.
func (h *User) UpdateCoverImage(c *gin.Context) {
	h.updateMedia(c, "coverImage", h.accountService.UpdateCoverImage, "Cover image updated successfully")
}

type mediaUpdater func(ctx context.Context, userID uuid.UUID, file model.Upload) (model.Profile, error)

func (h *User) updateMedia(c *gin.Context, field string, update mediaUpdater, message string) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	file, closeFile, err := formUpload(c, field)
	if err != nil {
		response.Error(c, err)
		return
	}
	if file == nil {
		response.Error(c, apierror.NewErrValidation(field+" file is missing"))
		return
	}
	defer closeFile()

	profile, err := update(c.Request.Context(), userID, *file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, message)
}

func (h *User) userID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		response.Error(c, apierror.NewErrUnauthorized())
		return uuid.Nil, false
	}
	return userID, true
}

// formUpload opens an optional multipart file. A nil upload means the field is absent.
func formUpload(c *gin.Context, field string) (*model.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, apierror.NewErrValidation("invalid multipart form")
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, apierror.NewErrInternal(err)
	}

	return &model.Upload{
		Filename:    header.Filename,
		ContentType: contentType(header),
		Size:        header.Size,
		Reader:      file,
	}, func() { _ = file.Close() }, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
