package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
)

func createStaffHandler(c *gin.Context) {
	var input models.NewStaff
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.CreateStaff(c.Request.Context(), &input)
	respond(c, http.StatusCreated, result, err)
}

func listStaffHandler(c *gin.Context) {
	result, err := models.ListStaff(c.Request.Context())
	respond(c, http.StatusOK, result, err)
}

func createStaffAssignmentHandler(c *gin.Context) {
	eventId, ok := intParam(c, "id")
	if !ok {
		return
	}
	var input models.NewStaffAssignment
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.CreateStaffAssignment(c.Request.Context(), eventId, &input)
	respond(c, http.StatusCreated, result, err)
}

func listStaffAssignmentsHandler(c *gin.Context) {
	eventId, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := models.ListStaffAssignments(c.Request.Context(), eventId)
	respond(c, http.StatusOK, result, err)
}

func getEventStaffCostHandler(c *gin.Context) {
	eventId, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := models.GetEventStaffCost(c.Request.Context(), eventId)
	respond(c, http.StatusOK, result, err)
}

func updateStaffAssignmentHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var input models.UpdateStaffAssignmentInput
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.UpdateStaffAssignment(c.Request.Context(), id, &input)
	respond(c, http.StatusOK, result, err)
}

// importStaffAssignmentsHandler takes a multipart "file" holding an xlsx workbook.
func importStaffAssignmentsHandler(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	count, err := models.ImportStaffAssignmentsFromXlsx(c.Request.Context(), file)
	respond(c, http.StatusCreated, gin.H{"imported": count}, err)
}
