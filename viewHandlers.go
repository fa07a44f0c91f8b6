package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_analytics/models"
	"bitbucket.org/mmdatafocus/cashflow_analytics/models/analytics"
	"bitbucket.org/mmdatafocus/cashflow_analytics/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

func registerViewRoutes(r *gin.Engine) {
	svc := analytics.NewService(models.NewDBRecordStore())

	views := r.Group("/views")
	views.GET("/receivable-aging", receivableAgingHandler(svc))
	views.GET("/payable-aging", payableAgingHandler(svc))
	views.GET("/conversion-cycle", conversionCycleHandler(svc))
	views.GET("/runway", runwayHandler(svc))
	views.GET("/waterfall", waterfallHandler(svc))
	views.GET("/variance", varianceHandler(svc))

	analyze := r.Group("/analyze")
	analyze.POST("/variance", analyzeVarianceHandler())
	analyze.POST("/waterfall", analyzeWaterfallHandler())

	export := r.Group("/export")
	export.GET("/receivable-aging.xlsx", exportReceivableAgingHandler(svc))
	export.GET("/payable-aging.xlsx", exportPayableAgingHandler(svc))
	export.GET("/waterfall.xlsx", exportWaterfallHandler(svc))
	export.GET("/variance.xlsx", exportVarianceHandler(svc))
}

// viewRequestFromQuery builds the engine request from the query string.
// Every recognized option is per-call; missing ones fall back to engine
// defaults.
func viewRequestFromQuery(c *gin.Context) (analytics.ViewRequest, error) {
	var req analytics.ViewRequest

	org, ok := utils.GetOrganizationIdFromContext(c.Request.Context())
	if !ok || org == "" {
		return req, errors.New("X-Organization-Id header is required")
	}
	req.OrganizationId = org

	asOf, err := dateParam(c, "as_of", time.Now().UTC())
	if err != nil {
		return req, err
	}
	req.AsOfDate = asOf

	from, err := dateParam(c, "from", asOf.AddDate(-1, 0, 0))
	if err != nil {
		return req, err
	}
	req.FromDate = from

	to, err := dateParam(c, "to", asOf)
	if err != nil {
		return req, err
	}
	req.ToDate = to

	if req.PriorFromDate, err = dateParam(c, "prior_from", time.Time{}); err != nil {
		return req, err
	}
	if req.PriorToDate, err = dateParam(c, "prior_to", time.Time{}); err != nil {
		return req, err
	}

	if req.CreditSales, err = decimalParam(c, "credit_sales"); err != nil {
		return req, err
	}
	if req.COGS, err = decimalParam(c, "cogs"); err != nil {
		return req, err
	}
	if req.PriorCreditSales, err = decimalParam(c, "prior_credit_sales"); err != nil {
		return req, err
	}
	if req.PriorCOGS, err = decimalParam(c, "prior_cogs"); err != nil {
		return req, err
	}

	if v := c.Query("horizon_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return req, errors.New("horizon_days must be a positive integer")
		}
		req.Options.ForecastHorizonDays = n
	}
	if v := c.Query("mode"); v != "" {
		switch v {
		case "segment":
			req.Options.CheckpointMode = analytics.CheckpointModeSegment
		case "cumulative":
			req.Options.CheckpointMode = analytics.CheckpointModeCumulative
		default:
			return req, errors.New("mode must be segment or cumulative")
		}
	}
	if req.Options.TrendTolerancePercent, err = decimalParam(c, "trend_tolerance"); err != nil {
		return req, err
	}
	if req.Options.VarianceHighPercent, err = decimalParam(c, "high_threshold"); err != nil {
		return req, err
	}
	if req.Options.VarianceMediumPercent, err = decimalParam(c, "medium_threshold"); err != nil {
		return req, err
	}
	req.Options.ApplySeasonal = c.Query("seasonal") == "true"

	return req, nil
}

func dateParam(c *gin.Context, name string, def time.Time) (time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, errors.New(name + " must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

func decimalParam(c *gin.Context, name string) (decimal.Decimal, error) {
	v := c.Query(name)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, errors.New(name + " must be a decimal number")
	}
	return d, nil
}

// respondViewError maps the engine's error taxonomy onto status codes.
// Every failure surfaces as an explicit error payload — never a fabricated
// zero-valued view.
func respondViewError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	var reconcileErr *analytics.ReconciliationError
	var fetchErr *analytics.ExternalFetchError

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled", "detail": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &reconcileErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &fetchErr):
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "insufficient data", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
	c.Error(err)
}

func receivableAgingHandler(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := viewRequestFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := svc.ReceivableAging(c.Request.Context(), req)
		if err != nil {
			respondViewError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func payableAgingHandler(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := viewRequestFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := svc.PayableAging(c.Request.Context(), req)
		if err != nil {
			respondViewError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func conversionCycleHandler(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := viewRequestFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		metrics, err := svc.ConversionCycle(c.Request.Context(), req)
		if err != nil {
			respondViewError(c, err)
			return
		}
		c.JSON(http.StatusOK, metrics)
	}
}

func runwayHandler(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := viewRequestFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		estimate, err := svc.Runway(c.Request.Context(), req)
		if err != nil {
			respondViewError(c, err)
			return
		}
		c.JSON(http.StatusOK, estimate)
	}
}

func waterfallHandler(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := viewRequestFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		steps, err := svc.CashFlowWaterfall(c.Request.Context(), req)
		if err != nil {
			respondViewError(c, err)
			return
		}
		c.JSON(http.StatusOK, steps)
	}
}

func varianceHandler(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := viewRequestFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		records, err := svc.CashFlowVariance(c.Request.Context(), req)
		if err != nil {
			respondViewError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

type analyzeVarianceBody struct {
	analytics.VarianceInput
	Options analytics.Options `json:"options"`
}

// analyzeVarianceHandler runs the pure variance analysis over
// caller-supplied numbers, component breakdown included. This is how the
// presentation layer analyzes metrics that live outside the record store
// (P&L lines, channel splits).
func analyzeVarianceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body analyzeVarianceBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		record, err := analytics.AnalyzeVariance(body.VarianceInput, body.Options)
		if err != nil {
			respondViewError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

type analyzeWaterfallBody struct {
	Items   []analytics.WaterfallItem `json:"items"`
	Options analytics.Options         `json:"options"`
}

func analyzeWaterfallHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body analyzeWaterfallBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		steps, err := analytics.ReconcileWaterfall(body.Items, body.Options)
		if err != nil {
			respondViewError(c, err)
			return
		}
		c.JSON(http.StatusOK, steps)
	}
}

func exportReceivableAgingHandler(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := viewRequestFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := svc.ReceivableAging(c.Request.Context(), req)
		if err != nil {
			respondViewError(c, err)
			return
		}
		f, err := analytics.ExportAgingExcel(report)
		if err != nil {
			respondViewError(c, err)
			return
		}
		writeExcel(c, f, "receivable-aging.xlsx")
	}
}

func exportPayableAgingHandler(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := viewRequestFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := svc.PayableAging(c.Request.Context(), req)
		if err != nil {
			respondViewError(c, err)
			return
		}
		f, err := analytics.ExportAgingExcel(report)
		if err != nil {
			respondViewError(c, err)
			return
		}
		writeExcel(c, f, "payable-aging.xlsx")
	}
}

func exportWaterfallHandler(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := viewRequestFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		steps, err := svc.CashFlowWaterfall(c.Request.Context(), req)
		if err != nil {
			respondViewError(c, err)
			return
		}
		f, err := analytics.ExportWaterfallExcel(steps)
		if err != nil {
			respondViewError(c, err)
			return
		}
		writeExcel(c, f, "waterfall.xlsx")
	}
}

func exportVarianceHandler(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := viewRequestFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		records, err := svc.CashFlowVariance(c.Request.Context(), req)
		if err != nil {
			respondViewError(c, err)
			return
		}
		f, err := analytics.ExportVarianceExcel(records)
		if err != nil {
			respondViewError(c, err)
			return
		}
		writeExcel(c, f, "variance.xlsx")
	}
}

func writeExcel(c *gin.Context, f *excelize.File, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
