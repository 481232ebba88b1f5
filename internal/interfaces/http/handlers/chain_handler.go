package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"onepay.payagent/internal/domain/entities"
)

// ChainLister exposes the configured chain table
type ChainLister interface {
	Chains() []*entities.ChainConfig
}

// ChainHandler handles chain endpoints
type ChainHandler struct {
	chains ChainLister
}

// NewChainHandler creates a new chain handler
func NewChainHandler(chains ChainLister) *ChainHandler {
	return &ChainHandler{chains: chains}
}

// ListChains lists the supported settlement chains
// GET /api/v1/chains
func (h *ChainHandler) ListChains(c *gin.Context) {
	type tokenResponse struct {
		Symbol   string `json:"symbol"`
		Address  string `json:"address"`
		Decimals uint8  `json:"decimals"`
	}
	type chainResponse struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Family      string          `json:"family"`
		ChainID     string          `json:"chainId,omitempty"`
		Network     string          `json:"network"`
		ExplorerURL string          `json:"explorerUrl"`
		Symbol      string          `json:"symbol"`
		Tokens      []tokenResponse `json:"tokens"`
	}

	response := []chainResponse{}
	for _, chain := range h.chains.Chains() {
		item := chainResponse{
			ID:          string(chain.ID),
			Name:        chain.Name,
			Family:      string(chain.Family),
			Network:     chain.Network,
			ExplorerURL: chain.ExplorerURL,
			Symbol:      chain.NativeCurrency.Symbol,
			Tokens:      []tokenResponse{},
		}
		if chain.IsEVM() {
			item.ChainID = chain.HexChainID()
		}
		for _, symbol := range []entities.AssetSymbol{entities.AssetUSDC, entities.AssetUSDT} {
			if t, ok := chain.Token(symbol); ok {
				item.Tokens = append(item.Tokens, tokenResponse{Symbol: string(symbol), Address: t.Address, Decimals: t.Decimals})
			}
		}
		response = append(response, item)
	}

	c.JSON(http.StatusOK, gin.H{"chains": response})
}
