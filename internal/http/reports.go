package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"

	"github.com/gin-gonic/gin"
)

// maxImportBytes bounds uploaded broker exports.
const maxImportBytes = 10 << 20

func (h *handlers) taxReport(c *gin.Context) {
	report, err := h.svc.TaxReport(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	results := []gin.H{}
	for _, r := range report.Results {
		results = append(results, taxResultView(r))
	}
	c.JSON(http.StatusOK, gin.H{
		"month":           report.Month,
		"results":         results,
		"totalTaxDue":     money.MonetaryString(report.TotalTaxDue),
		"totalWithheld":   money.MonetaryString(report.TotalWithheld),
		"totalNetPayable": money.MonetaryString(report.TotalNetPayable),
		"display":         money.Format(report.TotalNetPayable, string(models.BRL)),
	})
}

func (h *handlers) taxLosses(c *gin.Context) {
	losses, err := h.svc.TaxLosses(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := []gin.H{}
	for _, l := range losses {
		resp = append(resp, gin.H{
			"month":           l.Month,
			"assetClass":      l.AssetClass,
			"tradeType":       l.TradeType,
			"accumulatedLoss": money.MonetaryString(l.AccumulatedLoss),
		})
	}
	c.JSON(http.StatusOK, gin.H{"losses": resp})
}

func taxResultView(r models.TaxResult) gin.H {
	return gin.H{
		"month":          r.Month,
		"assetClass":     r.AssetClass,
		"assetLabel":     r.AssetClass.Label(),
		"tradeType":      r.TradeType,
		"grossGain":      money.MonetaryString(r.GrossGain),
		"lossCarriedIn":  money.MonetaryString(r.LossCarriedIn),
		"taxableGain":    money.MonetaryString(r.TaxableGain),
		"taxRate":        r.TaxRate.StringFixed(2),
		"taxDue":         money.MonetaryString(r.TaxDue),
		"withheld":       money.MonetaryString(r.Withheld),
		"netPayable":     money.MonetaryString(r.NetPayable),
		"lossCarriedOut": money.MonetaryString(r.LossCarriedOut),
		"totalProceeds":  money.MonetaryString(r.TotalProceeds),
		"exempt":         r.Exempt,
	}
}

// importB3 previews the uploaded export, or saves it when confirm=true.
// The file comes either as the raw body or as the multipart field "file".
func (h *handlers) importB3(c *gin.Context) {
	var body io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart upload needs a file field"})
			return
		}
		f, err := header.Open()
		if err != nil {
			h.writeError(c, err)
			return
		}
		defer f.Close()
		body = f
	}

	preview, err := h.svc.PreviewB3(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	confirm, _ := strconv.ParseBool(c.DefaultQuery("confirm", "false"))
	if !confirm {
		rows := []gin.H{}
		for _, tx := range preview.Transactions {
			rows = append(rows, transactionView(tx))
		}
		c.JSON(http.StatusOK, gin.H{"transactions": rows, "skipped": preview.Skipped})
		return
	}

	n, err := h.svc.ImportTransactions(c.Request.Context(), preview.Transactions)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": n, "skipped": preview.Skipped})
}
