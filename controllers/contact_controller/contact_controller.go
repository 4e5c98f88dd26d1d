package contact_controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/badwords"
	"github.com/joy095/reservation/logger"
	"github.com/joy095/reservation/utils"
	"github.com/joy095/reservation/utils/mail"
)

// ContactController relays the public contact form to the operator inbox.
type ContactController struct {
	Notifier      mail.Dispatcher
	BadWords      *badwords.List
	OperatorEmail string
}

func NewContactController(notifier mail.Dispatcher, words *badwords.List, operatorEmail string) *ContactController {
	return &ContactController{Notifier: notifier, BadWords: words, OperatorEmail: operatorEmail}
}

type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=120"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required,max=4000"`
}

// Submit handles POST /api/contact.
func (cc *ContactController) Submit(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "name, a valid email and message are required")
		return
	}
	name := strings.TrimSpace(req.Name)
	message := strings.TrimSpace(req.Message)
	if name == "" || message == "" {
		utils.RespondError(c, utils.ErrMissingField)
		return
	}
	if cc.BadWords.ContainsBadWords(name) || cc.BadWords.ContainsBadWords(message) {
		logger.WarnLogger.Warnf("Contact form from %s rejected by profanity screen", req.Email)
		utils.RespondError(c, utils.ErrInappropriateContent)
		return
	}

	msg, err := mail.Contact(cc.OperatorEmail, name, req.Email, message)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	cc.Notifier.Dispatch(msg)

	logger.InfoLogger.Infof("Contact form from %s relayed", req.Email)
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Thanks, we will get back to you soon.",
	})
}
