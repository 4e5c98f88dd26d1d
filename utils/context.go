package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/logger"
)

// StaffContextKey is where the staff auth middleware stores the username.
const StaffContextKey = "staff_username"

// GetStaffFromContext returns the authenticated staff username.
func GetStaffFromContext(c *gin.Context) (string, error) {
	v, exists := c.Get(StaffContextKey)
	if !exists {
		logger.ErrorLogger.Error("Staff identity not found in context.")
		return "", ErrStaffNotFound
	}
	username, ok := v.(string)
	if !ok || username == "" {
		logger.ErrorLogger.Errorf("Staff identity in context has unexpected type %T", v)
		return "", ErrStaffNotFound
	}
	return username, nil
}
