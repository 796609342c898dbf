package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/postwall/config"
	"github.com/cppla/postwall/middleware"
	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/services"
	"github.com/cppla/postwall/utils"
)

// formOverhead leaves room for the caption and multipart framing on top of
// the image bound.
const formOverhead = 64 << 10

// PostController exposes the feed and the post interactions.
type PostController struct {
	interactions  *services.InteractionService
	feed          *services.FeedService
	maxImageBytes int64
}

// NewPostController creates a PostController.
func NewPostController(interactions *services.InteractionService, feed *services.FeedService) *PostController {
	limit := config.Get().MaxImageBytes
	if limit <= 0 {
		limit = services.DefaultMaxImageBytes
	}
	return &PostController{interactions: interactions, feed: feed, maxImageBytes: limit}
}

// actorFrom builds the acting principal from the authenticated request.
func actorFrom(ctx *gin.Context) services.Actor {
	return services.Actor{ID: middleware.UserID(ctx), Name: middleware.Username(ctx)}
}

// parseID reads a positive numeric path parameter, answering 400 otherwise.
func parseID(ctx *gin.Context, param, label string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(param)), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(ctx, models.NewValidationError("invalid "+label+" id"))
		return 0, false
	}
	return uint(id), true
}

// Feed returns every post, newest first, with liked flags for the caller.
func (p *PostController) Feed(ctx *gin.Context) {
	views, err := p.feed.GetFeed(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"posts": views})
}

// GetPost returns a single post view.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "post")
	if !ok {
		return
	}
	view, err := p.feed.GetPost(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": view})
}

// CreatePost accepts a multipart form with a caption and an optional image.
func (p *PostController) CreatePost(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, p.maxImageBytes+formOverhead)

	input := services.CreatePostInput{}
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		if _, err := ctx.MultipartForm(); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.RespondError(ctx, models.NewValidationError(
					fmt.Sprintf("image may not be greater than %d kilobytes", p.maxImageBytes>>10)))
				return
			}
			utils.RespondError(ctx, models.NewValidationError("invalid multipart form"))
			return
		}
		header, err := ctx.FormFile("image")
		switch {
		case err == nil:
			file, err := header.Open()
			if err != nil {
				utils.RespondError(ctx, models.NewValidationError("image upload failed"))
				return
			}
			defer file.Close()
			input.Image = &services.ImageUpload{Filename: header.Filename, Reader: file}
		case !errors.Is(err, http.ErrMissingFile):
			utils.RespondError(ctx, models.NewValidationError("image upload failed"))
			return
		}
	}
	input.Content = ctx.PostForm("content")

	view, err := p.interactions.CreatePost(ctx.Request.Context(), actorFrom(ctx), input)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"post": view})
}

// UpdateCaption replaces the caption of the caller's post.
func (p *PostController) UpdateCaption(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "post")
	if !ok {
		return
	}

	type request struct {
		Content string `json:"content"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.RespondError(ctx, models.NewValidationError("invalid request payload"))
		return
	}

	view, err := p.interactions.EditCaption(ctx.Request.Context(), actorFrom(ctx), id, req.Content)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": view})
}

// DeletePost removes the caller's post together with its comments and likes.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "post")
	if !ok {
		return
	}
	if err := p.interactions.DeletePost(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// ToggleLike flips the caller's like and returns the resulting state.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "post")
	if !ok {
		return
	}
	state, err := p.interactions.ToggleLike(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, state)
}

// AddComment appends a comment to a post.
func (p *PostController) AddComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "post")
	if !ok {
		return
	}

	type request struct {
		Text string `json:"text"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.RespondError(ctx, models.NewValidationError("invalid request payload"))
		return
	}

	view, err := p.interactions.AddComment(ctx.Request.Context(), actorFrom(ctx), id, req.Text)
	if err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"comment": view})
}

// DeleteComment removes one of the caller's comments.
func (p *PostController) DeleteComment(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id", "post")
	if !ok {
		return
	}
	commentID, ok := parseID(ctx, "commentId", "comment")
	if !ok {
		return
	}
	if err := p.interactions.DeleteComment(ctx.Request.Context(), actorFrom(ctx), postID, commentID); err != nil {
		utils.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}
