package restapi

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"balance_aggregator/internal/app/port"
	"balance_aggregator/internal/domain/entity"
)

// BalanceHandler serves the latest wallet balance snapshots over HTTP. It
// implements port.WalletBalanceListener and is meant to be registered as a
// wallets-scope subscription on the coordinator.
type BalanceHandler struct {
	logger port.Logger

	mu      sync.RWMutex
	latest  port.WalletBalancesResult
	lastErr error
}

// NewBalanceHandler creates the handler.
func NewBalanceHandler(logger port.Logger) *BalanceHandler {
	return &BalanceHandler{logger: logger}
}

// HandleWalletBalances stores the most recent result or failure.
func (h *BalanceHandler) HandleWalletBalances(balances port.WalletBalancesResult, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.lastErr = err
		return
	}
	h.latest = balances
	h.lastErr = nil
}

// GetBalancesHandler returns every ready wallet balance. Wallets still
// loading are absent from the payload, not reported as zero.
func (h *BalanceHandler) GetBalancesHandler(c *gin.Context) {
	h.mu.RLock()
	latest, lastErr := h.latest, h.lastErr
	h.mu.RUnlock()

	if lastErr != nil {
		h.logger.Warn("Serving balance error state", "error", lastErr)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": lastErr.Error()})
		return
	}
	if latest == nil {
		c.JSON(http.StatusOK, gin.H{"balances": gin.H{}, "status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": latest})
}

// GetWalletBalanceHandler returns one wallet's balance, or a loading status
// when its data is not complete yet.
func (h *BalanceHandler) GetWalletBalanceHandler(c *gin.Context) {
	walletID := entity.MetaAccountID(c.Param("walletId"))

	h.mu.RLock()
	latest, lastErr := h.latest, h.lastErr
	h.mu.RUnlock()

	if lastErr != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": lastErr.Error()})
		return
	}
	balance, ok := latest[walletID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"walletId": walletID, "status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"walletId": walletID, "balance": balance})
}
