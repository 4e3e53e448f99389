package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/marcusaleks/Portfolio-Manager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Decimals travel as strings so no precision is lost to float parsing.
type transactionRequest struct {
	Ticker      string `json:"ticker" binding:"required"`
	AssetClass  string `json:"assetClass" binding:"required"`
	Type        string `json:"type" binding:"required"`
	TradeType   string `json:"tradeType"`
	Date        string `json:"date" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	FXRate      string `json:"fxRate"`
	Institution string `json:"institution" binding:"required"`
	Notes       string `json:"notes"`
}

func (r transactionRequest) toTransaction() (models.Transaction, error) {
	var (
		tx  models.Transaction
		err error
	)
	tx.Ticker = r.Ticker
	tx.Institution = r.Institution
	tx.Notes = strings.TrimSpace(r.Notes)

	if tx.AssetClass, err = models.ParseAssetClass(r.AssetClass); err != nil {
		return tx, err
	}
	if tx.Type, err = models.ParseTransactionType(r.Type); err != nil {
		return tx, err
	}
	if r.TradeType != "" {
		if tx.TradeType, err = models.ParseTradeType(r.TradeType); err != nil {
			return tx, err
		}
	}
	if r.Currency != "" {
		if tx.Currency, err = models.ParseCurrency(r.Currency); err != nil {
			return tx, err
		}
	}
	if tx.Date, err = models.ParseDay(r.Date); err != nil {
		return tx, fmt.Errorf("date must be YYYY-MM-DD")
	}
	if tx.Quantity, err = money.Parse(r.Quantity); err != nil {
		return tx, fmt.Errorf("quantity must be a decimal string")
	}
	if tx.Price, err = optionalDecimal(r.Price, decimal.Zero); err != nil {
		return tx, fmt.Errorf("price must be a decimal string")
	}
	if tx.FXRate, err = optionalDecimal(r.FXRate, decimal.NewFromInt(1)); err != nil {
		return tx, fmt.Errorf("fxRate must be a decimal string")
	}
	return tx, nil
}

func optionalDecimal(raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return money.Parse(raw)
}

func (h *handlers) createTransaction(c *gin.Context) {
	h.saveTransaction(c, 0, http.StatusCreated)
}

func (h *handlers) updateTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.saveTransaction(c, id, http.StatusOK)
}

func (h *handlers) saveTransaction(c *gin.Context, id int64, status int) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx.ID = id

	saved, err := h.svc.SaveTransaction(c.Request.Context(), tx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(status, transactionView(*saved))
}

func (h *handlers) deleteTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteTransaction(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tx, err := h.svc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactionView(*tx))
}

func (h *handlers) listTransactions(c *gin.Context) {
	txs, err := h.svc.ListTransactions(c.Request.Context(), c.Query("ticker"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := []gin.H{}
	for _, tx := range txs {
		resp = append(resp, transactionView(tx))
	}
	c.JSON(http.StatusOK, gin.H{"transactions": resp})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%v: id must be a positive integer", service.ErrValidation)})
		return 0, false
	}
	return id, true
}

func transactionView(tx models.Transaction) gin.H {
	return gin.H{
		"id":          tx.ID,
		"ticker":      tx.Ticker,
		"assetClass":  tx.AssetClass,
		"type":        tx.Type,
		"tradeType":   tx.TradeType,
		"date":        tx.DateKey(),
		"quantity":    money.QuantityString(tx.Quantity),
		"price":       money.MonetaryString(tx.Price),
		"currency":    tx.Currency,
		"fxRate":      money.FXString(tx.FXRate),
		"totalValue":  money.MonetaryString(tx.TotalValue()),
		"institution": tx.Institution,
		"notes":       tx.Notes,
		"fingerprint": tx.Fingerprint,
		"createdAt":   tx.CreatedAt,
	}
}
