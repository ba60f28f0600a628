package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler(c *gin.Context) {
	var input loginRequest
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.Login(c.Request.Context(), input.Username, input.Password)
	respond(c, http.StatusOK, result, err)
}
