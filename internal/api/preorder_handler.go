package api

import (
	"encoding/json"
	"net/http"
	"time"

	"panaderia-be/internal/order"
	"panaderia-be/internal/preorder"
	"panaderia-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxBodySize = 64 * 1024

type itemRequest struct {
	ProductID uint    `json:"productId"`
	Unit      string  `json:"unit"`
	Quantity  float64 `json:"quantity"`
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type submitPreOrderRequest struct {
	Fulfillment  string         `json:"fulfillment"`
	DeliveryDate string         `json:"deliveryDate"`
	DeliveryTime string         `json:"deliveryTime"`
	Notes        *string        `json:"notes"`
	Contact      contactRequest `json:"contact"`
	Items        []itemRequest  `json:"items"`
}

type submitPreOrderResponse struct {
	ID                 uint       `json:"id"`
	RequiresApproval   bool       `json:"requiresApproval"`
	ConfirmationCode   *string    `json:"confirmationCode,omitempty"`
	ConfirmationExpiry *time.Time `json:"confirmationExpiry,omitempty"`
}

type confirmRequest struct {
	Code    string   `json:"code"`
	Deposit *float64 `json:"depositAmount"`
}

type previewRequest struct {
	Code string `json:"code"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type orderRefResponse struct {
	OrderID uint `json:"orderId"`
}

type lineItemResponse struct {
	ProductID   uint    `json:"productId"`
	ProductName string  `json:"productName"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
}

type preOrderResponse struct {
	ID              uint                   `json:"id"`
	ContactName     string                 `json:"contactName"`
	ContactEmail    *string                `json:"contactEmail"`
	ContactPhone    *string                `json:"contactPhone"`
	DeliveryDate    string                 `json:"deliveryDate"`
	DeliveryTime    string                 `json:"deliveryTime"`
	Fulfillment     string                 `json:"fulfillment"`
	DeliveryAddress *string                `json:"deliveryAddress"`
	Notes           *string                `json:"notes"`
	Disposition     string                 `json:"disposition"`
	Items           []lineItemResponse `json:"items"`
}

func toPreOrderResponse(p *preorder.PreOrder) preOrderResponse {
	resp := preOrderResponse{
		ID:              p.ID,
		ContactName:     p.ContactName,
		ContactEmail:    p.ContactEmail,
		ContactPhone:    p.ContactPhone,
		DeliveryDate:    p.DeliveryDate,
		DeliveryTime:    p.DeliveryTime,
		Fulfillment:     string(p.Fulfillment),
		DeliveryAddress: p.DeliveryAddress,
		Notes:           p.Notes,
		Disposition:     string(p.Disposition),
		Items:           []lineItemResponse{},
	}
	for _, it := range p.Items {
		resp.Items = append(resp.Items, lineItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Unit:        string(it.Unit),
			Quantity:    it.Quantity,
		})
	}
	return resp
}

func toLineItems(in []itemRequest) []order.LineItem {
	items := make([]order.LineItem, 0, len(in))
	for _, it := range in {
		items = append(items, order.LineItem{
			ProductID: it.ProductID,
			Unit:      order.Unit(it.Unit),
			Quantity:  it.Quantity,
		})
	}
	return items
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

type PreOrderHandler struct {
	svc preorder.Service
}

func NewPreOrderHandler(svc preorder.Service) *PreOrderHandler {
	return &PreOrderHandler{svc: svc}
}

func (h *PreOrderHandler) Routes(staffOnly, adminOnly func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/public", h.submitPublic)
		r.With(staffOnly).Post("/{id}/confirm", h.confirm)
		r.With(staffOnly).Post("/{id}/preview", h.preview)
		r.With(adminOnly).Post("/{id}/approve", h.approve)
		r.With(adminOnly).Post("/{id}/reject", h.reject)
		r.With(adminOnly).Get("/pending-approval", h.listPendingApproval)
	}
}

func (h *PreOrderHandler) submitPublic(w http.ResponseWriter, r *http.Request) {
	var req submitPreOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.Submit(r.Context(), preorder.SubmitInput{
		Fulfillment:  req.Fulfillment,
		DeliveryDate: req.DeliveryDate,
		DeliveryTime: req.DeliveryTime,
		Notes:        req.Notes,
		Contact: order.ContactInput{
			Name:    req.Contact.Name,
			Email:   req.Contact.Email,
			Phone:   req.Contact.Phone,
			Address: req.Contact.Address,
		},
		Items: toLineItems(req.Items),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, submitPreOrderResponse{
		ID:                 res.ID,
		RequiresApproval:   res.RequiresApproval,
		ConfirmationCode:   res.ConfirmPIN,
		ConfirmationExpiry: res.ConfirmExpiresAt,
	}, http.StatusCreated)
}

func (h *PreOrderHandler) confirm(w http.ResponseWriter, r *http.Request) {
	preID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req confirmRequest
	if !decodeBody(w, r, &req) {
		return
	}

	orderID, err := h.svc.ConfirmByPIN(r.Context(), preID, req.Code, req.Deposit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, orderRefResponse{OrderID: orderID}, http.StatusCreated)
}

func (h *PreOrderHandler) preview(w http.ResponseWriter, r *http.Request) {
	preID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req previewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.svc.PreviewByPIN(r.Context(), preID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, toPreOrderResponse(p), http.StatusOK)
}

func (h *PreOrderHandler) approve(w http.ResponseWriter, r *http.Request) {
	preID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	orderID, err := h.svc.Approve(r.Context(), preID, r.URL.Query().Get("notify") == "1")
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, orderRefResponse{OrderID: orderID}, http.StatusCreated)
}

func (h *PreOrderHandler) reject(w http.ResponseWriter, r *http.Request) {
	preID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req rejectRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	// Rejection is always communicated when the submitter left an email.
	if err := h.svc.Reject(r.Context(), preID, req.Reason, true); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, map[string]string{"status": "rejected"}, http.StatusOK)
}

func (h *PreOrderHandler) listPendingApproval(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPendingApproval(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]preOrderResponse, 0, len(list))
	for _, p := range list {
		resp = append(resp, toPreOrderResponse(p))
	}
	utils.WriteJSON(w, resp, http.StatusOK)
}
