package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/postwall/config"
	"github.com/cppla/postwall/middleware"
	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/utils"
)

// AuthController is the local identity stand-in: accounts, JWT sessions
// and logout.
type AuthController struct {
	db       *gorm.DB
	tokenTTL time.Duration
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	ttl := time.Duration(config.Get().TokenTTLHr) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &AuthController{db: db, tokenTTL: ttl}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Confirm  string `json:"confirm"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	// Username: 2-32 runes of letters, digits, CJK, '-' and '_'
	if l := len([]rune(req.Username)); l < 2 || l > 32 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 2-32 characters")
		return
	}
	if !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username may only contain letters, digits, '-' and '_'")
		return
	}

	// Password: 6-72 bytes of a-z A-Z 0-9 - _ .
	if req.Confirm != "" && req.Password != req.Confirm {
		utils.Error(ctx, http.StatusBadRequest, 40002, "passwords do not match")
		return
	}
	if len(req.Password) < 6 || len(req.Password) > 72 || !validPassword(req.Password) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "password must be 6-72 characters of letters, digits and -_.")
		return
	}

	var existing models.User
	err := a.db.Where("username = ?", req.Username).First(&existing).Error
	if err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(ctx, models.NewInternalError(err))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}

	user := models.User{Username: req.Username, PasswordHash: hash}
	if err := a.db.Create(&user).Error; err != nil {
		utils.RespondError(ctx, models.NewInternalError(err))
		return
	}

	a.issueToken(ctx, http.StatusCreated, user)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
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

	a.issueToken(ctx, http.StatusOK, user)
}

func (a *AuthController) issueToken(ctx *gin.Context, status int, user models.User) {
	token, err := utils.GenerateToken(user.ID, user.Username, a.tokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token":      token,
		"expires_in": int64(a.tokenTTL.Seconds()),
		"user":       sanitizeUserResponse(user),
	})
}

// Logout revokes the session until the token would have expired and drops
// its anti-forgery token.
func (a *AuthController) Logout(ctx *gin.Context) {
	session := middleware.SessionID(ctx)
	expiresAt := middleware.TokenExpiry(ctx)
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(a.tokenTTL)
	}

	utils.BlacklistSession(session, expiresAt)
	utils.RevokeCSRFToken(session)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID := middleware.UserID(ctx)
	if userID == 0 {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "user not found")
		return
	}

	utils.Success(ctx, sanitizeUserResponse(user))
}

func validUsername(s string) bool {
	for _, r := range s {
		if r == '-' || r == '_' {
			continue
		}
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		// basic CJK
		if r >= 0x4E00 && r <= 0x9FFF {
			continue
		}
		return false
	}
	return true
}

func validPassword(s string) bool {
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-' || r == '_' || r == '.' {
			continue
		}
		return false
	}
	return true
}

func sanitizeUserResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	}
}
