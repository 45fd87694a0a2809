package server

import (
	"net/http"

	apperrors "github.com/astrocub/prompt-service/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

func badRequestResponse(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func notFoundResponse(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{"error": message})
}

func internalErrorResponse(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// errorResponse maps typed application errors onto their HTTP status;
// anything else is a plain 500
func errorResponse(c *gin.Context, err error) {
	if appErr, ok := apperrors.GetAppError(err); ok {
		c.JSON(appErr.StatusCode, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}
	internalErrorResponse(c, err)
}
