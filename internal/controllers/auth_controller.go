package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges admin credentials for a bearer token.
func (ctl *Controller) Login(c *gin.Context) {
	var body loginInput
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ctl.Directory.Authenticate(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		logrus.WithField("email", body.Email).Warn("login rejected")
		respondError(c, err)
		return
	}

	token, err := ctl.Auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"ID":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}
