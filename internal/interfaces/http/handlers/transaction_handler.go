package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/internal/interfaces/http/response"
	"onepay.payagent/pkg/utils"
)

// TransactionHistory is the read side of the transaction log
type TransactionHistory interface {
	List(ctx context.Context) ([]*entities.TransactionRecord, error)
	ListByType(ctx context.Context, t entities.TransactionType) ([]*entities.TransactionRecord, error)
	ListByAddress(ctx context.Context, address string) ([]*entities.TransactionRecord, error)
	Recent(ctx context.Context, limit int) ([]*entities.TransactionRecord, error)
	GetByHash(ctx context.Context, hash string) (*entities.TransactionRecord, error)
	Clear(ctx context.Context) error
}

// AmountDecryptor reveals an encrypted history amount
type AmountDecryptor interface {
	Decrypt(ctx context.Context, ciphertext string) (decimal.Decimal, error)
}

// TransactionHandler serves the local payment history
type TransactionHandler struct {
	history   TransactionHistory
	decryptor AmountDecryptor
}

// NewTransactionHandler creates a new transaction handler. decryptor may be nil.
func NewTransactionHandler(history TransactionHistory, decryptor AmountDecryptor) *TransactionHandler {
	return &TransactionHandler{history: history, decryptor: decryptor}
}

// ListTransactions lists history records, newest first
// GET /api/v1/transactions?type=&address=&page=&limit=
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		records []*entities.TransactionRecord
		err     error
	)
	switch {
	case c.Query("type") != "":
		records, err = h.history.ListByType(ctx, entities.TransactionType(c.Query("type")))
	case c.Query("address") != "":
		records, err = h.history.ListByAddress(ctx, c.Query("address"))
	default:
		records, err = h.history.List(ctx)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	params := utils.GetPaginationParams(page, limit)

	start, end := params.Bounds(len(records))
	items := records[start:end]
	if items == nil {
		items = []*entities.TransactionRecord{}
	}
	response.Paginated(c, http.StatusOK, "transactions", items, utils.CalculateMeta(int64(len(records)), params.Page, params.Limit))
}

// RecentTransactions returns the newest records
// GET /api/v1/transactions/recent?limit=
func (h *TransactionHandler) RecentTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if records == nil {
		records = []*entities.TransactionRecord{}
	}
	response.Success(c, http.StatusOK, gin.H{"transactions": records})
}

// GetTransaction returns the newest record for a hash
// GET /api/v1/transactions/:hash
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	hash := strings.TrimSpace(c.Param("hash"))
	record, err := h.history.GetByHash(c.Request.Context(), hash)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"transaction": record})
}

// RevealAmount decrypts a confidential record's amount
// GET /api/v1/transactions/:hash/amount
func (h *TransactionHandler) RevealAmount(c *gin.Context) {
	record, err := h.history.GetByHash(c.Request.Context(), strings.TrimSpace(c.Param("hash")))
	if err != nil {
		response.Error(c, err)
		return
	}
	if record.Amount.Valid {
		response.Success(c, http.StatusOK, gin.H{"amount": record.Amount.String, "encrypted": false})
		return
	}
	if !record.EncryptedAmount.Valid || h.decryptor == nil {
		response.Error(c, domainerrors.NotFound("Amount not available"))
		return
	}
	amount, err := h.decryptor.Decrypt(c.Request.Context(), record.EncryptedAmount.String)
	if err != nil {
		response.Error(c, domainerrors.EncryptionFailed(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"amount": amount.String(), "encrypted": true})
}

// ClearTransactions wipes the local history
// DELETE /api/v1/transactions
func (h *TransactionHandler) ClearTransactions(c *gin.Context) {
	if err := h.history.Clear(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
