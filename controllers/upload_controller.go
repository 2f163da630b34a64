package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialnet/services"
	"github.com/cppla/socialnet/utils"
)

// multipartOverhead leaves room for form boundaries and headers around the file itself.
const multipartOverhead = 1 << 20

// UploadController stores and deletes images.
type UploadController struct {
	media    *services.MediaService
	maxBytes int64
}

// NewUploadController creates an UploadController accepting images up to maxBytes.
func NewUploadController(media *services.MediaService, maxBytes int64) *UploadController {
	return &UploadController{media: media, maxBytes: maxBytes}
}

// UploadImage accepts the multipart field "image".
func (u *UploadController) UploadImage(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, u.maxBytes+multipartOverhead)
	fh, err := ctx.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(ctx, http.StatusBadRequest, fmt.Sprintf("File too large. Maximum size is %dMB", u.maxBytes>>20))
			return
		}
		utils.Error(ctx, http.StatusBadRequest, "No image file provided")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(ctx, err)
		return
	}
	defer f.Close()

	img, err := u.media.UploadImage(ctx.Request.Context(), f, fh.Size)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "Image uploaded successfully", gin.H{"imageUrl": img.URL, "publicId": img.PublicID})
}

// DeleteImage removes the image named by publicId in the JSON body.
func (u *UploadController) DeleteImage(ctx *gin.Context) {
	var req struct {
		PublicID string `json:"publicId"`
	}
	// an empty or malformed body is reported as a missing publicId
	_ = ctx.ShouldBindJSON(&req)
	if err := u.media.DeleteImage(ctx.Request.Context(), req.PublicID); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, "Image deleted successfully", nil)
}
