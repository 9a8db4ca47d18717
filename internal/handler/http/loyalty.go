package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/loyalty"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type LoyaltyHandler interface {
	Lookup(w http.ResponseWriter, r *http.Request)
	Register(w http.ResponseWriter, r *http.Request)
	AwardPoint(w http.ResponseWriter, r *http.Request)
	Redeem(w http.ResponseWriter, r *http.Request)
	ListTransactions(w http.ResponseWriter, r *http.Request)

	// Balance is the public self-service lookup and needs no staff token.
	Balance(w http.ResponseWriter, r *http.Request)
}

type loyaltyHandlerImpl struct {
	loyaltyService loyalty.LoyaltyService
	cooldown       time.Duration
}

func NewLoyaltyHandler(loyaltyService loyalty.LoyaltyService, cooldown time.Duration) LoyaltyHandler {
	return &loyaltyHandlerImpl{
		loyaltyService: loyaltyService,
		cooldown:       cooldown,
	}
}

// program reads the reward settings of the shop loaded by middleware.LoadShop.
func (h *loyaltyHandlerImpl) program(r *http.Request) (loyalty.Program, string, bool) {
	s, ok := middleware.ShopFromContext(r.Context())
	if !ok {
		return loyalty.Program{}, "", false
	}
	return loyalty.NewProgram(s, h.cooldown), s.ID, true
}

// Lookup implements LoyaltyHandler.
func (h *loyaltyHandlerImpl) Lookup(w http.ResponseWriter, r *http.Request) {
	program, shopID, ok := h.program(r)
	if !ok {
		response.NotFound(w, "Shop not found")
		return
	}

	result, err := h.loyaltyService.LookupOrInitCustomer(r.Context(), shopID, r.URL.Query().Get("phone"), program)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Register implements LoyaltyHandler.
func (h *loyaltyHandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	program, shopID, ok := h.program(r)
	if !ok {
		response.NotFound(w, "Shop not found")
		return
	}
	staff, _ := middleware.StaffFromContext(r.Context())

	var req loyalty.RegisterCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ShopID = shopID
	req.StaffID = staffID(staff.EmployeeID)

	view, err := h.loyaltyService.RegisterCustomer(r.Context(), req, program)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Customer registered", view)
}

// AwardPoint implements LoyaltyHandler.
func (h *loyaltyHandlerImpl) AwardPoint(w http.ResponseWriter, r *http.Request) {
	program, shopID, ok := h.program(r)
	if !ok {
		response.NotFound(w, "Shop not found")
		return
	}
	staff, _ := middleware.StaffFromContext(r.Context())

	view, err := h.loyaltyService.AwardPoint(r.Context(), loyalty.PointRequest{
		ShopID:     shopID,
		CustomerID: chi.URLParam(r, "customerID"),
		StaffID:    staffID(staff.EmployeeID),
	}, program)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Point added", view)
}

// Redeem implements LoyaltyHandler.
func (h *loyaltyHandlerImpl) Redeem(w http.ResponseWriter, r *http.Request) {
	program, shopID, ok := h.program(r)
	if !ok {
		response.NotFound(w, "Shop not found")
		return
	}
	staff, _ := middleware.StaffFromContext(r.Context())

	view, err := h.loyaltyService.RedeemReward(r.Context(), loyalty.PointRequest{
		ShopID:     shopID,
		CustomerID: chi.URLParam(r, "customerID"),
		StaffID:    staffID(staff.EmployeeID),
	}, program)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Reward redeemed", view)
}

// ListTransactions implements LoyaltyHandler.
func (h *loyaltyHandlerImpl) ListTransactions(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	txs, err := h.loyaltyService.ListTransactions(r.Context(), chi.URLParam(r, "shopID"), customerID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	resp := loyalty.ListTransactionResponse{
		CustomerID:   customerID,
		Transactions: make([]loyalty.TransactionResponse, 0, len(txs)),
	}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, loyalty.NewTransactionResponse(tx))
	}
	response.Success(w, resp)
}

// Balance implements LoyaltyHandler.
func (h *loyaltyHandlerImpl) Balance(w http.ResponseWriter, r *http.Request) {
	program, shopID, ok := h.program(r)
	if !ok {
		response.NotFound(w, "Shop not found")
		return
	}

	view, err := h.loyaltyService.GetBalance(r.Context(), shopID, r.URL.Query().Get("phone"), program)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, loyalty.NewBalanceResponse(view))
}

func staffID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
