package api

import (
	"net/http"
	"strconv"

	"panaderia-be/internal/order"
	"panaderia-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type createOrderRequest struct {
	Fulfillment  string          `json:"fulfillment"`
	DeliveryDate string          `json:"deliveryDate"`
	DeliveryTime string          `json:"deliveryTime"`
	Notes        *string         `json:"notes"`
	Items        []itemRequest   `json:"items"`
	AddressID    *uint           `json:"addressId"`
	Contact      *contactRequest `json:"contact"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type notifyRequest struct {
	Subject string `json:"subject"`
}

type orderSummaryResponse struct {
	ID              uint   `json:"id"`
	ContactName     string `json:"contactName"`
	ContactEmail    string `json:"contactEmail"`
	ContactPhone    string `json:"contactPhone"`
	DeliveryDate    string `json:"deliveryDate"`
	DeliveryTime    string `json:"deliveryTime"`
	Fulfillment     string `json:"fulfillment"`
	Status          string `json:"status"`
	DeliveryAddress string `json:"deliveryAddress"`
	Products        string `json:"products"`
}

type orderDetailResponse struct {
	ID              uint               `json:"id"`
	ContactName     *string            `json:"contactName"`
	ContactEmail    *string            `json:"contactEmail"`
	ContactPhone    *string            `json:"contactPhone"`
	DeliveryDate    string             `json:"deliveryDate"`
	DeliveryTime    string             `json:"deliveryTime"`
	Fulfillment     string             `json:"fulfillment"`
	Status          string             `json:"status"`
	DeliveryAddress *string            `json:"deliveryAddress"`
	Notes           *string            `json:"notes"`
	Items           []lineItemResponse `json:"items"`
}

func toOrderDetailResponse(o *order.Order) orderDetailResponse {
	resp := orderDetailResponse{
		ID:              o.ID,
		ContactName:     o.ContactName,
		ContactEmail:    o.ContactEmail,
		ContactPhone:    o.ContactPhone,
		DeliveryDate:    o.DeliveryDate,
		DeliveryTime:    o.DeliveryTime,
		Fulfillment:     string(o.Fulfillment),
		Status:          string(o.Status),
		DeliveryAddress: o.DeliveryAddress,
		Notes:           o.Notes,
		Items:           []lineItemResponse{},
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, lineItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Unit:        string(it.Unit),
			Quantity:    it.Quantity,
		})
	}
	return resp
}

type orderPageResponse struct {
	Data       []orderSummaryResponse `json:"data"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	Total      int64                  `json:"total"`
	TotalPages int64                  `json:"totalPages"`
}

func toOrderPageResponse(p *order.Page) orderPageResponse {
	resp := orderPageResponse{
		Data:       []orderSummaryResponse{},
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
	for _, s := range p.Data {
		resp.Data = append(resp.Data, orderSummaryResponse{
			ID:              s.ID,
			ContactName:     s.ContactName,
			ContactEmail:    s.ContactEmail,
			ContactPhone:    s.ContactPhone,
			DeliveryDate:    s.DeliveryDate,
			DeliveryTime:    s.DeliveryTime,
			Fulfillment:     string(s.Fulfillment),
			Status:          string(s.Status),
			DeliveryAddress: s.DeliveryAddress,
			Products:        s.ProductsSummary,
		})
	}
	return resp
}

type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) Routes(anyActor, staffOnly, adminOnly func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.With(anyActor).Post("/", h.create)
		r.With(anyActor).Get("/", h.list)
		r.With(anyActor).Get("/history", h.history)
		r.With(anyActor).Get("/{id}", h.get)
		r.With(staffOnly).Patch("/{id}/status", h.updateStatus)
		r.With(adminOnly).Delete("/{id}", h.delete)
		r.With(staffOnly).Post("/{id}/notify", h.notify)
	}
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := order.DirectSubmission{
		Fulfillment:  req.Fulfillment,
		DeliveryDate: req.DeliveryDate,
		DeliveryTime: req.DeliveryTime,
		Notes:        req.Notes,
		Items:        toLineItems(req.Items),
		AddressID:    req.AddressID,
		Notify:       r.URL.Query().Get("notify") == "1",
	}
	if req.Contact != nil {
		in.Contact = &order.ContactInput{
			Name:    req.Contact.Name,
			Email:   req.Contact.Email,
			Phone:   req.Contact.Phone,
			Address: req.Contact.Address,
		}
	}

	orderID, err := h.svc.CreateDirect(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, orderRefResponse{OrderID: orderID}, http.StatusCreated)
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.svc.Get(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, toOrderDetailResponse(o), http.StatusOK)
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	h.listPage(w, r, false)
}

func (h *OrderHandler) history(w http.ResponseWriter, r *http.Request) {
	h.listPage(w, r, true)
}

func (h *OrderHandler) listPage(w http.ResponseWriter, r *http.Request, history bool) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	res, err := h.svc.List(r.Context(), page, limit, history)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, toOrderPageResponse(res), http.StatusOK)
}

func (h *OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.UpdateStatus(r.Context(), orderID, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, map[string]string{"status": req.Status}, http.StatusOK)
}

func (h *OrderHandler) delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), orderID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) notify(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req notifyRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.Notify(r.Context(), orderID, req.Subject); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, map[string]string{"status": "sent"}, http.StatusOK)
}
