package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/logger"
	"github.com/joy095/reservation/utils"
	"github.com/joy095/reservation/utils/jwt_parse"
)

// StaffAuth admits requests carrying a valid staff bearer token and stores the
// staff username under utils.StaffContextKey.
func StaffAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := jwt_parse.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			logger.WarnLogger.Warnf("Staff route %s called without bearer token from %s", c.FullPath(), c.ClientIP())
			utils.RespondError(c, utils.ErrUnauthorized)
			return
		}

		username, err := jwt_parse.ParseStaffToken(secret, token)
		if err != nil {
			logger.WarnLogger.Warnf("Rejected staff token from %s: %v", c.ClientIP(), err)
			utils.RespondError(c, utils.ErrUnauthorized)
			return
		}

		c.Set(utils.StaffContextKey, username)
		c.Next()
	}
}
