// Package httperr maps apperr.Error kinds to HTTP status codes, shared by
// every route package (spec.md §7: "not-found 404; validation 400; engine
// failure 500"), dispatching on the error kind via errors.As.
package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodenestor/hiveminddb/internal/apperr"
)

// Respond writes the appropriate JSON error response for err.
func Respond(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperr.KindNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": appErr.Error()})
		case apperr.KindValidation, apperr.KindGraphEndpoint, apperr.KindAlreadyInvalid, apperr.KindEmbeddingShape, apperr.KindTaskState:
			c.JSON(http.StatusBadRequest, gin.H{"error": appErr.Error()})
		case apperr.KindForbidden:
			c.JSON(http.StatusForbidden, gin.H{"error": appErr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": appErr.Error()})
		}
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
