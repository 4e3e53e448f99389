package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/marcusaleks/Portfolio-Manager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Router wires all handlers.
func Router(svc *service.PortfolioService, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logMiddleware(logger))

	h := &handlers{svc: svc, logger: logger.WithField("component", "http")}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.POST("/transactions", h.createTransaction)
	r.GET("/transactions", h.listTransactions)
	r.GET("/transactions/:id", h.getTransaction)
	r.PUT("/transactions/:id", h.updateTransaction)
	r.DELETE("/transactions/:id", h.deleteTransaction)

	r.GET("/positions", h.listPositions)
	r.GET("/custodians", h.listCustodians)
	r.GET("/valuation", h.valuation)
	r.GET("/history", h.history)
	r.POST("/rebuild", h.rebuild)

	r.GET("/tax", h.taxReport)
	r.GET("/tax/losses", h.taxLosses)

	r.GET("/audit", h.audit)
	r.GET("/corporate-actions", h.corporateActions)
	r.POST("/import/b3", h.importB3)
	return r
}

type handlers struct {
	svc    *service.PortfolioService
	logger *logrus.Entry
}

func (h *handlers) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handlers) listPositions(c *gin.Context) {
	openOnly, _ := strconv.ParseBool(c.DefaultQuery("open", "false"))
	positions, err := h.svc.ListPositions(c.Request.Context(), openOnly)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := []gin.H{}
	for _, p := range positions {
		resp = append(resp, positionView(p))
	}
	c.JSON(http.StatusOK, gin.H{"positions": resp})
}

func (h *handlers) listCustodians(c *gin.Context) {
	custodians, err := h.svc.Custodians(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := []gin.H{}
	for _, cu := range custodians {
		resp = append(resp, gin.H{
			"ticker":      cu.Ticker,
			"institution": cu.Institution,
			"quantity":    money.QuantityString(cu.Quantity),
		})
	}
	c.JSON(http.StatusOK, gin.H{"custodians": resp})
}

func (h *handlers) valuation(c *gin.Context) {
	v, err := h.svc.Valuation(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	holdings := []gin.H{}
	for _, hv := range v.Holdings {
		holdings = append(holdings, gin.H{
			"ticker":         hv.Ticker,
			"currency":       hv.Currency,
			"quantity":       money.QuantityString(hv.Quantity),
			"avgPrice":       money.MonetaryString(hv.AvgPrice),
			"totalCost":      money.MonetaryString(hv.TotalCost),
			"price":          money.MonetaryString(hv.Price),
			"marketValue":    money.MonetaryString(hv.MarketValue),
			"unrealizedGain": money.MonetaryString(hv.UnrealizedGain),
			"display":        hv.Display,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"holdings":    holdings,
		"marketValue": currencyTotals(v.MarketValue),
		"totalCost":   currencyTotals(v.TotalCost),
	})
}

func (h *handlers) history(c *gin.Context) {
	days, err := h.svc.History(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := []gin.H{}
	for _, d := range days {
		resp = append(resp, gin.H{"date": d.Date, "values": currencyTotals(d.Values)})
	}
	c.JSON(http.StatusOK, gin.H{"days": resp})
}

func (h *handlers) rebuild(c *gin.Context) {
	summary, err := h.svc.RebuildAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *handlers) audit(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultAuditLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}
	entries, err := h.svc.Audit(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *handlers) corporateActions(c *gin.Context) {
	alerts, err := h.svc.CorporateActions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := []gin.H{}
	for _, a := range alerts {
		resp = append(resp, gin.H{
			"ticker":    a.Ticker,
			"avgPrice":  money.MonetaryString(a.AvgPrice),
			"price":     money.MonetaryString(a.Price),
			"deviation": a.Deviation.StringFixed(4),
			"message":   a.Message,
		})
	}
	c.JSON(http.StatusOK, gin.H{"alerts": resp})
}

func positionView(p models.Position) gin.H {
	return gin.H{
		"ticker":      p.Ticker,
		"institution": p.Institution,
		"assetClass":  p.AssetClass,
		"currency":    p.Currency,
		"quantity":    money.QuantityString(p.Quantity),
		"avgPrice":    money.MonetaryString(p.AvgPrice),
		"totalCost":   money.MonetaryString(p.TotalCost),
		"fingerprint": p.Fingerprint,
	}
}

func currencyTotals(totals map[models.Currency]decimal.Decimal) gin.H {
	out := gin.H{}
	for cur, v := range totals {
		out[string(cur)] = v.StringFixed(money.MonetaryPlaces)
	}
	return out
}

func logMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		}).Info("request completed")
	}
}
