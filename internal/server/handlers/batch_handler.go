package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/service/tracking"
	"github.com/mamadbah2/agritrace/internal/session"
)

// BatchHandler handles wallet session and batch lifecycle HTTP requests.
type BatchHandler struct {
	svc     *tracking.Service
	session *session.Manager
	logger  *zap.Logger
}

// NewBatchHandler constructs the HTTP handler adapter.
func NewBatchHandler(svc *tracking.Service, sess *session.Manager, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{svc: svc, session: sess, logger: logger}
}

// ConnectWallet requests a signing identity from the external agent.
func (h *BatchHandler) ConnectWallet(c *gin.Context) {
	if err := h.session.Connect(c.Request.Context()); err != nil {
		h.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity": h.session.CurrentIdentity(),
		"chainId":  h.session.ChainID(),
	})
}

// DisconnectWallet clears the session unconditionally.
func (h *BatchHandler) DisconnectWallet(c *gin.Context) {
	h.session.Disconnect()
	c.Status(http.StatusNoContent)
}

// WalletStatus reports the session and agent availability.
func (h *BatchHandler) WalletStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected": h.session.Connected(),
		"identity":  h.session.CurrentIdentity(),
		"chainId":   h.session.ChainID(),
		"agent":     h.session.Probe(c.Request.Context()),
	})
}

// CreateBatch opens a new batch on the ledger.
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var in models.CreateBatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batchID, err := h.svc.CreateBatch(c.Request.Context(), in)
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "batchId": batchID})
}

// AppendDistributor records a distributor handover on a batch.
func (h *BatchHandler) AppendDistributor(c *gin.Context) {
	var in models.AppendDistributorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	in.BatchID = c.Param("id")

	txHash, err := h.svc.AppendDistributor(c.Request.Context(), in)
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "txHash": txHash})
}

// AppendRetailer records a retail entry on a batch.
func (h *BatchHandler) AppendRetailer(c *gin.Context) {
	var in models.AppendRetailerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	in.BatchID = c.Param("id")

	txHash, err := h.svc.AppendRetailer(c.Request.Context(), in)
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "txHash": txHash})
}

// GetBatch returns the shaped batch view. Integrity warnings ride in
// the body and never block the rest of the record.
func (h *BatchHandler) GetBatch(c *gin.Context) {
	view, err := h.svc.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ListFarmerBatches returns the batch ids for a farmer identity.
func (h *BatchHandler) ListFarmerBatches(c *gin.Context) {
	ids, err := h.svc.ListFarmerBatches(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"batches": ids})
}

// QRPayload returns the scannable payload for a batch.
func (h *BatchHandler) QRPayload(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"payload": h.svc.QRPayload(c.Param("id"))})
}

// LedgerStatus reports chain diagnostics.
func (h *BatchHandler) LedgerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.LedgerStatus(c.Request.Context()))
}

// writeLedgerError maps the session/ledger error taxonomy onto HTTP
// statuses. The external error text is surfaced alongside a stable
// message so the UI can show both.
func (h *BatchHandler) writeLedgerError(c *gin.Context, err error) {
	var vErr *models.ValidationError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, models.ErrNotConnected):
		c.JSON(http.StatusConflict, gin.H{
			"error":  "wallet not connected",
			"action": "connect your wallet and retry",
		})
	case errors.Is(err, models.ErrUserRejected):
		c.JSON(http.StatusForbidden, gin.H{"error": "request rejected in wallet", "detail": err.Error()})
	case errors.Is(err, models.ErrAgentUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signing agent unavailable", "detail": err.Error()})
	case errors.Is(err, models.ErrConfirmationTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "transaction confirmation timed out", "detail": err.Error()})
	case errors.Is(err, models.ErrSubmissionFailed), errors.Is(err, models.ErrConnectionFailed):
		h.logger.Error("ledger operation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "ledger operation failed", "detail": err.Error()})
	default:
		h.logger.Error("unexpected ledger error", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "ledger operation failed", "detail": err.Error()})
	}
}
