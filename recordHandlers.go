package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/cashflow_analytics/models"
	"bitbucket.org/mmdatafocus/cashflow_analytics/utils"
	"github.com/gin-gonic/gin"
)

// registerRecordRoutes exposes the record upkeep surface. The engine itself
// never writes; these routes exist for seeding and day-to-day bookkeeping.
func registerRecordRoutes(r *gin.Engine) {
	records := r.Group("/records")
	records.POST("/receivables", createReceivableHandler)
	records.PUT("/receivables/:id", updateReceivableHandler)
	records.POST("/payables", createPayableHandler)
	records.PUT("/payables/:id", updatePayableHandler)
	records.POST("/snapshots", createSnapshotHandler)
	records.POST("/forecast-entries", createForecastEntryHandler)
	records.POST("/forecast-entries/:id/supersede", supersedeForecastEntryHandler)
	records.POST("/seasonal-patterns", createSeasonalPatternHandler)
}

func organizationFromRequest(c *gin.Context) (string, bool) {
	org, ok := utils.GetOrganizationIdFromContext(c.Request.Context())
	if !ok || org == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Organization-Id header is required"})
		return "", false
	}
	return org, true
}

func respondRecordError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrorSnapshotExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	c.Error(err)
}

func createReceivableHandler(c *gin.Context) {
	org, ok := organizationFromRequest(c)
	if !ok {
		return
	}
	var input models.Receivable
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.OrganizationId = org
	record, err := models.CreateReceivable(c.Request.Context(), &input)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func updateReceivableHandler(c *gin.Context) {
	org, ok := organizationFromRequest(c)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}
	var input models.Receivable
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.ID = id
	input.OrganizationId = org
	record, err := models.UpdateReceivable(c.Request.Context(), &input)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func createPayableHandler(c *gin.Context) {
	org, ok := organizationFromRequest(c)
	if !ok {
		return
	}
	var input models.Payable
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.OrganizationId = org
	record, err := models.CreatePayable(c.Request.Context(), &input)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func updatePayableHandler(c *gin.Context) {
	org, ok := organizationFromRequest(c)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}
	var input models.Payable
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.ID = id
	input.OrganizationId = org
	record, err := models.UpdatePayable(c.Request.Context(), &input)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func createSnapshotHandler(c *gin.Context) {
	org, ok := organizationFromRequest(c)
	if !ok {
		return
	}
	var input models.WorkingCapitalSnapshot
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.OrganizationId = org
	record, err := models.CreateWorkingCapitalSnapshot(c.Request.Context(), &input)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func createForecastEntryHandler(c *gin.Context) {
	org, ok := organizationFromRequest(c)
	if !ok {
		return
	}
	var input models.ForecastEntry
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.OrganizationId = org
	record, err := models.CreateForecastEntry(c.Request.Context(), &input)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func supersedeForecastEntryHandler(c *gin.Context) {
	org, ok := organizationFromRequest(c)
	if !ok {
		return
	}
	oldId, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}
	var replacement models.ForecastEntry
	if err := c.ShouldBindJSON(&replacement); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	replacement.OrganizationId = org
	record, err := models.SupersedeForecastEntry(c.Request.Context(), oldId, &replacement)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func createSeasonalPatternHandler(c *gin.Context) {
	org, ok := organizationFromRequest(c)
	if !ok {
		return
	}
	var input models.SeasonalPattern
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.OrganizationId = org
	record, err := models.CreateSeasonalPattern(c.Request.Context(), &input)
	if err != nil {
		respondRecordError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}
