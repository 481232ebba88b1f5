package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/internal/interfaces/http/response"
)

// PaymentExecutor runs a payment to a final settlement state
type PaymentExecutor interface {
	Execute(ctx context.Context, intent entities.PaymentIntent) (*entities.SettlementResult, error)
}

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	executor PaymentExecutor
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(executor PaymentExecutor) *PaymentHandler {
	return &PaymentHandler{executor: executor}
}

type executePaymentRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Chain        string          `json:"chain" binding:"required"`
	Recipient    string          `json:"recipient"`
	OrderID      string          `json:"orderId"`
	Mode         string          `json:"mode" binding:"omitempty,oneof=direct facilitated"`
	Resource     string          `json:"resource"`
	Confidential bool            `json:"confidential"`
}

func (r executePaymentRequest) intent() (entities.PaymentIntent, error) {
	chain, err := entities.ParseChainID(r.Chain)
	if err != nil {
		return entities.PaymentIntent{}, err
	}
	return entities.PaymentIntent{
		Amount:       r.Amount,
		Currency:     entities.AssetSymbol(strings.ToUpper(strings.TrimSpace(r.Currency))),
		Chain:        chain,
		Recipient:    strings.TrimSpace(r.Recipient),
		OrderID:      strings.TrimSpace(r.OrderID),
		Mode:         entities.PaymentMode(r.Mode),
		Resource:     strings.TrimSpace(r.Resource),
		Confidential: r.Confidential,
	}, nil
}

// ExecutePayment settles one payment and waits for its final status.
// Failed and unconfirmed settlements still carry the result next to the error.
// POST /api/v1/payments/execute
func (h *PaymentHandler) ExecutePayment(c *gin.Context) {
	var input executePaymentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	intent, err := input.intent()
	if err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	result, err := h.executor.Execute(c.Request.Context(), intent)
	if err != nil {
		appErr := domainerrors.FromPaymentError(err)
		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"error":   appErr.Message,
		}
		if result != nil {
			body["result"] = result
		}
		c.JSON(appErr.Status, body)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result":  result,
		"message": "Payment settled",
	})
}
