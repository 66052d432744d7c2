package transactions

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"klunkaz/pkg/registry"
	"klunkaz/pkg/response"
)

type TransactionService interface {
	TransactionHistory() []registry.Transaction
	UserTransactions(who registry.Identity) []registry.Transaction
}

type TransactionHandler struct {
	service TransactionService
}

func NewTransactionHandler(service TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

func (h *TransactionHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/transactions", h.listTransactions)
	router.GET("/users/:identity/transactions", h.listUserTransactions)
}

func parseType(c *gin.Context) (registry.TransactionType, bool) {
	typ := registry.TransactionType(c.Query("type"))
	switch typ {
	case "", registry.TxPurchase, registry.TxRental, registry.TxReturn, registry.TxTransfer:
		return typ, true
	}
	response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid transaction type", nil)
	return "", false
}

func filter(txs []registry.Transaction, typ registry.TransactionType) []registry.Transaction {
	if typ == "" {
		return txs
	}
	out := make([]registry.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == typ {
			out = append(out, tx)
		}
	}
	return out
}

// @Summary      Transaction history
// @Description  Every committed purchase, rental, return and transfer in order
// @Tags         transactions
// @Produce      json
// @Param        type  query  string  false  "purchase, rental, return or transfer"
// @Success      200  {object}  response.APIResponse{data=[]registry.Transaction}
// @Failure      400  {object}  response.APIResponse "Invalid transaction type"
// @Router       /transactions [get]
func (h *TransactionHandler) listTransactions(c *gin.Context) {
	typ, ok := parseType(c)
	if !ok {
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "transactions fetched", filter(h.service.TransactionHistory(), typ))
}

// @Summary      A user's transactions
// @Description  Transactions where the identity is buyer or seller
// @Tags         transactions
// @Produce      json
// @Param        identity  path   string  true   "Identity"
// @Param        type      query  string  false  "purchase, rental, return or transfer"
// @Success      200  {object}  response.APIResponse{data=[]registry.Transaction}
// @Router       /users/{identity}/transactions [get]
func (h *TransactionHandler) listUserTransactions(c *gin.Context) {
	typ, ok := parseType(c)
	if !ok {
		return
	}
	txs := h.service.UserTransactions(registry.Identity(c.Param("identity")))
	response.SendAPIResponse(c, http.StatusOK, true, "transactions fetched", filter(txs, typ))
}
