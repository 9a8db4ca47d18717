package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shift"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

// ClockHandler serves the shared tablet clock screen and the staff handsets.
type ClockHandler interface {
	VerifyPin(w http.ResponseWriter, r *http.Request)
	ChangePin(w http.ResponseWriter, r *http.Request)
	SignOut(w http.ResponseWriter, r *http.Request)

	GetSession(w http.ResponseWriter, r *http.Request)
	OpenSession(w http.ResponseWriter, r *http.Request)
	ToggleTask(w http.ResponseWriter, r *http.Request)
	CloseSession(w http.ResponseWriter, r *http.Request)
}

type clockHandlerImpl struct {
	shiftService shift.ShiftService
	jwtService   jwt.Service
}

func NewClockHandler(shiftService shift.ShiftService, jwtService jwt.Service) ClockHandler {
	return &clockHandlerImpl{
		shiftService: shiftService,
		jwtService:   jwtService,
	}
}

// VerifyPin implements ClockHandler.
func (h *clockHandlerImpl) VerifyPin(w http.ResponseWriter, r *http.Request) {
	var req shift.VerifyPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ShopID = chi.URLParam(r, "shopID")

	emp, err := h.shiftService.VerifyPin(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateStaffToken(emp.ID, emp.ShopID)
	if err != nil {
		slog.Error("Failed to generate staff token", "employee_id", emp.ID, "error", err)
		response.InternalServerError(w, "Failed to generate token")
		return
	}

	response.Success(w, shift.VerifyPinResponse{
		EmployeeID:     emp.ID,
		DisplayName:    emp.DisplayName,
		Lifecycle:      h.shiftService.CheckPinLifecycle(emp),
		Token:          token,
		TokenExpiresAt: expiresAt,
	})
}

// ChangePin implements ClockHandler.
func (h *clockHandlerImpl) ChangePin(w http.ResponseWriter, r *http.Request) {
	staff, ok := middleware.StaffFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req shift.ChangePinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EmployeeID = staff.EmployeeID
	req.ShopID = staff.ShopID

	emp, err := h.shiftService.ChangePin(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "PIN changed", map[string]any{
		"employee": shift.NewEmployeeResponse(emp),
		"pin":      h.shiftService.CheckPinLifecycle(emp),
	})
}

// SignOut revokes the staff token so a shared tablet can hand over to the next person.
func (h *clockHandlerImpl) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := jwtauth.TokenFromHeader(r); token != "" {
		h.jwtService.RevokeToken(token)
	}
	response.SuccessWithMessage(w, "Signed out", nil)
}

// GetSession implements ClockHandler.
func (h *clockHandlerImpl) GetSession(w http.ResponseWriter, r *http.Request) {
	staff, ok := middleware.StaffFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	session, err := h.shiftService.GetOpenSession(r.Context(), staff.EmployeeID, staff.ShopID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, shift.NewSessionResponse(session))
}

// OpenSession implements ClockHandler.
func (h *clockHandlerImpl) OpenSession(w http.ResponseWriter, r *http.Request) {
	staff, ok := middleware.StaffFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}
	site, ok := middleware.ShopFromContext(r.Context())
	if !ok {
		response.NotFound(w, "Shop not found")
		return
	}

	var req shift.OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EmployeeID = staff.EmployeeID
	req.ShopID = staff.ShopID

	result, err := h.shiftService.OpenOrResumeSession(r.Context(), req, site)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	resp := shift.OpenSessionResponse{
		Session:    shift.NewSessionResponse(result.Session),
		Resumed:    result.Resumed,
		Remoteness: result.Remoteness,
	}
	if result.Resumed {
		response.SuccessWithMessage(w, "Shift resumed", resp)
		return
	}
	response.Created(w, "Clock in successful", resp)
}

// ToggleTask implements ClockHandler.
func (h *clockHandlerImpl) ToggleTask(w http.ResponseWriter, r *http.Request) {
	staff, ok := middleware.StaffFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	session, err := h.shiftService.ToggleTask(r.Context(), shift.TaskToggleRequest{
		EmployeeID: staff.EmployeeID,
		ShopID:     staff.ShopID,
		SessionID:  chi.URLParam(r, "sessionID"),
		TaskID:     chi.URLParam(r, "taskID"),
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, shift.NewSessionResponse(session))
}

// CloseSession implements ClockHandler.
func (h *clockHandlerImpl) CloseSession(w http.ResponseWriter, r *http.Request) {
	staff, ok := middleware.StaffFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	session, err := h.shiftService.CloseSession(r.Context(), shift.CloseSessionRequest{
		EmployeeID: staff.EmployeeID,
		ShopID:     staff.ShopID,
		SessionID:  chi.URLParam(r, "sessionID"),
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clock out successful", shift.NewSessionResponse(session))
}
