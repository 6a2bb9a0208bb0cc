package controllers

import (
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/paperroom/middleware"
	"github.com/cppla/paperroom/models"
	"github.com/cppla/paperroom/utils"
)

// AuthController handles local account registration, login and logout.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and returns a token for it.
func (a *AuthController) Register(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeValidation, "username must be 3-32 letters, digits, '-' or '_'")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrWeakPassword) {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeValidation, err.Error())
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to hash password")
		return
	}

	var existing int64
	if err := a.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&existing).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to check username")
		return
	}
	if existing > 0 {
		utils.Error(ctx, http.StatusConflict, utils.CodeUsernameTaken, "username already exists")
		return
	}

	user := models.User{Username: req.Username, PasswordHash: hash}
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, utils.CodeUsernameTaken, "username already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to create user")
		return
	}

	a.issue(ctx, http.StatusCreated, user)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeBadRequest, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	a.issue(ctx, http.StatusOK, user)
}

func (a *AuthController) issue(ctx *gin.Context, status int, user models.User) {
	token, claims, err := utils.GenerateToken(user.ID, user.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, utils.CodeOK, "success", gin.H{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
		"user":       user,
	})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	var user models.User
	if err := a.db.First(&user, middleware.CurrentUserID(ctx)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "user not found")
		return
	}
	utils.Success(ctx, user)
}

// Logout revokes the presented token until it expires.
func (a *AuthController) Logout(ctx *gin.Context) {
	v, ok := ctx.Get(middleware.ContextClaimsKey)
	claims, _ := v.(*utils.Claims)
	if !ok || claims == nil || claims.ExpiresAt == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid token")
		return
	}
	utils.RevokeToken(ctx.Request.Context(), claims.ID, claims.ExpiresAt.Time)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

func validUsername(s string) bool {
	if n := utf8.RuneCountInString(s); n < 3 || n > 32 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}
