package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/postwall/config"
	"github.com/cppla/postwall/middleware"
	"github.com/cppla/postwall/utils"
)

// CSRFController hands out anti-forgery tokens for authenticated sessions.
type CSRFController struct {
	ttl time.Duration
}

// NewCSRFController creates a CSRFController.
func NewCSRFController() *CSRFController {
	ttl := time.Duration(config.Get().CSRFTTLMinutes) * time.Minute
	return &CSRFController{ttl: ttl}
}

// Refresh issues a new token for the caller's session, replacing the old one.
func (c *CSRFController) Refresh(ctx *gin.Context) {
	token := utils.IssueCSRFToken(middleware.SessionID(ctx), c.ttl)
	utils.Success(ctx, gin.H{
		"csrf_token": token,
		"header":     middleware.CSRFHeader,
	})
}
