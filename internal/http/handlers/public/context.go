package public

import (
	handlershared "github.com/soundmarket/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	handlershared.RespondServiceError(c, err, fallbackMsg)
}
