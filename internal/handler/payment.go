package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest is the HTTP request body for recording a payment.
type CreatePaymentRequest struct {
	RideRequestID string  `json:"ride_request_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	WalletAddress string  `json:"wallet_address"`
	PaymentMethod string  `json:"payment_method"`
	TxHash        string  `json:"tx_hash"`
}

// ConfirmPaymentRequest is the HTTP request body for confirming a payment.
type ConfirmPaymentRequest struct {
	TxHash string `json:"tx_hash"`
}

// UpdatePaymentStatusRequest is the HTTP request body for the admin status override.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status"`
	TxHash string `json:"tx_hash"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID            string     `json:"id"`
	RideRequestID string     `json:"ride_request_id"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	WalletAddress string     `json:"wallet_address"`
	PaymentMethod string     `json:"payment_method"`
	TxHash        string     `json:"tx_hash,omitempty"`
	Status        string     `json:"status"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		RideRequestID: p.RideRequestID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		WalletAddress: p.WalletAddress,
		PaymentMethod: p.PaymentMethod,
		TxHash:        p.TxHash,
		Status:        string(p.Status),
		ConfirmedAt:   p.ConfirmedAt,
		CreatedAt:     p.CreatedAt,
	}
}

// ConfirmPaymentResponse is the HTTP response for a confirmation attempt.
type ConfirmPaymentResponse struct {
	Confirmed bool `json:"confirmed"`
}

// WalletResponse is a receiving wallet shown to passengers.
type WalletResponse struct {
	Chain         string `json:"chain"`
	Currency      string `json:"currency"`
	Address       string `json:"address"`
	TokenContract string `json:"token_contract,omitempty"`
	Label         string `json:"label,omitempty"`
}

// CreatePayment handles POST /v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.RideRequestID == "" {
		respondBadRequest(c, "ride_request_id is required")
		return
	}

	if req.Amount <= 0 {
		respondBadRequest(c, "amount must be positive")
		return
	}

	payment, err := h.paymentService.Create(c.Request.Context(), service.CreatePaymentRequest{
		RideRequestID: req.RideRequestID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		WalletAddress: req.WalletAddress,
		Method:        req.PaymentMethod,
		TxHash:        req.TxHash,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// ConfirmPayment handles POST /v1/payments/:id/confirm
// confirmed=false means the ledger did not verify the transaction and the
// payment stays pending.
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	confirmed, err := h.paymentService.Confirm(c.Request.Context(), c.Param("id"), req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ConfirmPaymentResponse{Confirmed: confirmed})
}

// UpdateStatus handles POST /v1/payments/:id/status
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	payment, err := h.paymentService.UpdateStatus(c.Request.Context(), c.Param("id"), domain.PaymentStatus(req.Status), req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// ListWallets handles GET /v1/wallets?currency=...
func (h *PaymentHandler) ListWallets(c *gin.Context) {
	wallets, err := h.paymentService.ReceivingWallets(c.Request.Context(), c.Query("currency"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]WalletResponse, 0, len(wallets))
	for _, w := range wallets {
		resp = append(resp, WalletResponse{
			Chain:         string(w.Chain),
			Currency:      w.Currency,
			Address:       w.Address,
			TokenContract: w.TokenContract,
			Label:         w.Label,
		})
	}

	respondJSON(c, http.StatusOK, resp)
}
