package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
	"github.com/vladislavdragonenkov/fulfillment/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/fulfillment/internal/service/query"
)

// Заголовки идентификации актора. Аутентификация выполняется выше по стеку
// (gateway), сюда приходит уже проверенная личность.
const (
	headerActorType = "X-Actor-Type"
	headerActorID   = "X-Actor-Id"
)

// Server — HTTP-адаптер над координатором и read-слоем.
type Server struct {
	Router      *mux.Router
	coordinator lifecycle.Coordinator
	queries     *query.Service
	logger      *log.Entry
}

// NewServer создаёт роутер и регистрирует маршруты API.
func NewServer(coordinator lifecycle.Coordinator, queries *query.Service, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "httpapi")
	}
	s := &Server{
		Router:      mux.NewRouter(),
		coordinator: coordinator,
		queries:     queries,
		logger:      logger,
	}

	api := s.Router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/commands", s.handleSubmitCommand).Methods(http.MethodPost)
	api.HandleFunc("/merchants/{id}/stats", s.handleMerchantStats).Methods(http.MethodGet)

	return s
}

type placeOrderRequest struct {
	Lines []struct {
		ProductID string `json:"product_id"`
		Qty       int32  `json:"qty"`
	} `json:"lines"`
	Shipping shippingDTO `json:"shipping"`
	Note     string      `json:"note,omitempty"`
}

type commandRequest struct {
	Action         string `json:"action"`
	Carrier        string `json:"carrier,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Description    string `json:"description,omitempty"`
	Location       string `json:"location,omitempty"`
	Note           string `json:"note,omitempty"`
}

type shippingDTO struct {
	Receiver string `json:"receiver"`
	Phone    string `json:"phone"`
	Province string `json:"province,omitempty"`
	City     string `json:"city,omitempty"`
	District string `json:"district,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

type orderLineDTO struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	ThumbnailURL  string `json:"thumbnail_url,omitempty"`
	PriceMinor    int64  `json:"price_minor"`
	Qty           int32  `json:"qty"`
	SubtotalMinor int64  `json:"subtotal_minor"`
}

type actionEntryDTO struct {
	Actor    string    `json:"actor"`
	Action   string    `json:"action"`
	Note     string    `json:"note,omitempty"`
	Occurred time.Time `json:"occurred_at"`
}

type trackingEventDTO struct {
	Time        time.Time `json:"time"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
}

type shipmentDTO struct {
	ID             string             `json:"id"`
	Carrier        string             `json:"carrier"`
	TrackingNumber string             `json:"tracking_number"`
	Status         string             `json:"status"`
	Events         []trackingEventDTO `json:"events"`
	ShippedAt      time.Time          `json:"shipped_at"`
	DeliveredAt    *time.Time         `json:"delivered_at,omitempty"`
}

type orderDTO struct {
	ID         string           `json:"id"`
	Number     string           `json:"number"`
	BuyerID    string           `json:"buyer_id"`
	MerchantID string           `json:"merchant_id"`
	Status     string           `json:"status"`
	Lines      []orderLineDTO   `json:"lines"`
	TotalMinor int64            `json:"total_minor"`
	Shipping   shippingDTO      `json:"shipping"`
	ActionLog  []actionEntryDTO `json:"action_log"`
	Shipment   *shipmentDTO     `json:"shipment,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type orderPageDTO struct {
	Orders   []orderDTO `json:"orders"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

type statusCountDTO struct {
	Count       int   `json:"count"`
	AmountMinor int64 `json:"amount_minor"`
}

type merchantStatsDTO struct {
	TodaySalesMinor int64                     `json:"today_sales_minor"`
	WeekSalesMinor  int64                     `json:"week_sales_minor"`
	MonthSalesMinor int64                     `json:"month_sales_minor"`
	ByStatus        map[string]statusCountDTO `json:"by_status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	actorType, actorID, ok := actorFrom(r)
	if !ok || actorType != domain.ActorBuyer {
		writeError(w, http.StatusForbidden, "buyer identity required")
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	placeReq := lifecycle.PlaceOrderRequest{
		BuyerID: actorID,
		Shipping: domain.ShippingSnapshot{
			Receiver: req.Shipping.Receiver,
			Phone:    req.Shipping.Phone,
			Province: req.Shipping.Province,
			City:     req.Shipping.City,
			District: req.Shipping.District,
			Detail:   req.Shipping.Detail,
		},
		Note: req.Note,
	}
	for _, line := range req.Lines {
		placeReq.Lines = append(placeReq.Lines, lifecycle.PlaceOrderLine{
			ProductID: line.ProductID,
			Qty:       line.Qty,
		})
	}

	snap, err := s.coordinator.PlaceOrder(placeReq)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(snap.Order, snap.Shipment))
}

func (s *Server) handleSubmitCommand(w http.ResponseWriter, r *http.Request) {
	actorType, actorID, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "actor identity required")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := domain.Command{
		OrderID:   mux.Vars(r)["id"],
		ActorType: actorType,
		ActorID:   actorID,
		Action:    domain.Action(req.Action),
		Payload: domain.CommandPayload{
			Carrier:        req.Carrier,
			TrackingNumber: req.TrackingNumber,
			Description:    req.Description,
			Location:       req.Location,
			Note:           req.Note,
		},
	}

	snap, err := s.coordinator.Submit(cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(snap.Order, snap.Shipment))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	actorType, actorID, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "actor identity required")
		return
	}

	view, err := s.queries.GetOrder(mux.Vars(r)["id"], actorType, actorID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(view.Order, view.Shipment))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	actorType, actorID, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "actor identity required")
		return
	}

	q := r.URL.Query()
	filter := domain.OrderFilter{
		ActorType: actorType,
		ActorID:   actorID,
		Status:    domain.OrderStatus(q.Get("status")),
		Search:    q.Get("search"),
		Page:      atoiOrZero(q.Get("page")),
		PageSize:  atoiOrZero(q.Get("page_size")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	page, err := s.queries.ListOrders(filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := orderPageDTO{
		Orders:   make([]orderDTO, 0, len(page.Orders)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	for _, order := range page.Orders {
		resp.Orders = append(resp.Orders, toOrderDTO(order, nil))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMerchantStats(w http.ResponseWriter, r *http.Request) {
	actorType, actorID, ok := actorFrom(r)
	merchantID := mux.Vars(r)["id"]
	if !ok || (actorType == domain.ActorMerchant && actorID != merchantID) || actorType == domain.ActorBuyer {
		writeError(w, http.StatusForbidden, "merchant identity required")
		return
	}

	stats, err := s.queries.GetMerchantStats(merchantID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := merchantStatsDTO{
		TodaySalesMinor: stats.TodaySalesMinor,
		WeekSalesMinor:  stats.WeekSalesMinor,
		MonthSalesMinor: stats.MonthSalesMinor,
		ByStatus:        make(map[string]statusCountDTO, len(stats.ByStatus)),
	}
	for status, count := range stats.ByStatus {
		resp.ByStatus[string(status)] = statusCountDTO{
			Count:       count.Count,
			AmountMinor: count.AmountMinor,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeDomainError отображает доменные ошибки на коды HTTP.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrShipmentNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, domain.ErrAlreadyTerminal),
		errors.Is(err, domain.ErrAlreadyShipped),
		errors.Is(err, domain.ErrIllegalShipmentTransition),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrMerchantMismatch),
		domain.IsVersionConflict(err):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrProductNotSellable),
		errors.Is(err, domain.ErrBuyerRequired),
		errors.Is(err, domain.ErrMerchantRequired),
		errors.Is(err, domain.ErrLinesRequired),
		errors.Is(err, domain.ErrShippingIncomplete),
		errors.Is(err, domain.ErrLineQtyInvalid),
		errors.Is(err, domain.ErrOrderIDRequired),
		errors.Is(err, domain.ErrCarrierRequired),
		errors.Is(err, domain.ErrTrackingNumberRequired),
		errors.Is(err, domain.ErrTrackingDescriptionRequired):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func actorFrom(r *http.Request) (domain.ActorType, string, bool) {
	actorType := domain.ActorType(r.Header.Get(headerActorType))
	actorID := r.Header.Get(headerActorID)
	if !actorType.Valid() {
		return "", "", false
	}
	if actorType != domain.ActorSystem && actorID == "" {
		return "", "", false
	}
	return actorType, actorID, true
}

func toOrderDTO(order domain.Order, shipment *domain.Shipment) orderDTO {
	dto := orderDTO{
		ID:         order.ID,
		Number:     order.Number,
		BuyerID:    order.BuyerID,
		MerchantID: order.MerchantID,
		Status:     string(order.Status),
		Lines:      make([]orderLineDTO, 0, len(order.Lines)),
		TotalMinor: order.TotalMinor,
		Shipping: shippingDTO{
			Receiver: order.Shipping.Receiver,
			Phone:    order.Shipping.Phone,
			Province: order.Shipping.Province,
			City:     order.Shipping.City,
			District: order.Shipping.District,
			Detail:   order.Shipping.Detail,
		},
		ActionLog: make([]actionEntryDTO, 0, len(order.ActionLog)),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	for _, line := range order.Lines {
		dto.Lines = append(dto.Lines, orderLineDTO{
			ProductID:     line.ProductID,
			Name:          line.Name,
			ThumbnailURL:  line.ThumbnailURL,
			PriceMinor:    line.PriceMinor,
			Qty:           line.Qty,
			SubtotalMinor: line.SubtotalMinor,
		})
	}
	for _, entry := range order.ActionLog {
		dto.ActionLog = append(dto.ActionLog, actionEntryDTO{
			Actor:    string(entry.Actor),
			Action:   string(entry.Action),
			Note:     entry.Note,
			Occurred: entry.Occurred,
		})
	}
	if shipment != nil {
		sd := shipmentDTO{
			ID:             shipment.ID,
			Carrier:        shipment.Carrier,
			TrackingNumber: shipment.TrackingNumber,
			Status:         string(shipment.Status),
			Events:         make([]trackingEventDTO, 0, len(shipment.Events)),
			ShippedAt:      shipment.ShippedAt,
		}
		if !shipment.DeliveredAt.IsZero() {
			delivered := shipment.DeliveredAt
			sd.DeliveredAt = &delivered
		}
		for _, event := range shipment.Events {
			sd.Events = append(sd.Events, trackingEventDTO{
				Time:        event.Time,
				Description: event.Description,
				Location:    event.Location,
			})
		}
		dto.Shipment = &sd
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func atoiOrZero(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
