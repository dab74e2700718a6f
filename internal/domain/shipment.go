package domain

import (
	"strings"
	"time"
)

// ShipmentStatus отражает статус отправления. Машина состояний отправления
// грубее заказной: in_transit не имеет эквивалента на уровне заказа.
type ShipmentStatus string

const (
	// ShipmentStatusPending — запись создана, передача перевозчику не подтверждена.
	ShipmentStatusPending ShipmentStatus = "pending"
	// ShipmentStatusShipped — перевозчик принял отправление.
	ShipmentStatusShipped ShipmentStatus = "shipped"
	// ShipmentStatusInTransit — отправление в пути.
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	// ShipmentStatusDelivered — отправление вручено получателю.
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	// ShipmentStatusException — сбой доставки; допускает повторную отгрузку
	// новой записью, чтобы история трекинга не терялась.
	ShipmentStatusException ShipmentStatus = "exception"
	// ShipmentStatusReturned — отправление вернулось продавцу после сбоя.
	ShipmentStatusReturned ShipmentStatus = "returned"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentStatusPending, ShipmentStatusShipped, ShipmentStatusInTransit,
		ShipmentStatusDelivered, ShipmentStatusException, ShipmentStatusReturned:
		return true
	default:
		return false
	}
}

// Terminal сообщает, допускает ли статус дальнейшие события трекинга.
func (s ShipmentStatus) Terminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusReturned
}

// TrackingEvent — одна запись append-only ленты трекинга.
type TrackingEvent struct {
	Time        time.Time
	Description string
	Location    string
}

// Shipment — запись о доставке, 1:1 с заказом. Хранит только обратную ссылку
// OrderID; заказ прямой ссылки не держит, связь разрешается поиском по OrderID.
type Shipment struct {
	ID             string
	OrderID        string
	Carrier        string
	TrackingNumber string
	Status         ShipmentStatus
	Events         []TrackingEvent
	Version        int64
	ShippedAt      time.Time
	DeliveredAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AppendEvent добавляет запись трекинга. Лента только растёт.
func (s *Shipment) AppendEvent(description, location string, occurred time.Time) {
	s.Events = append(s.Events, TrackingEvent{
		Time:        occurred,
		Description: description,
		Location:    location,
	})
}

// Validate проверяет ключевые поля отправления.
func (s *Shipment) Validate() []error {
	var errs []error

	if s.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if s.Carrier == "" {
		errs = append(errs, ErrCarrierRequired)
	}
	if s.TrackingNumber == "" {
		errs = append(errs, ErrTrackingNumberRequired)
	}

	return errs
}

// shipmentTransitions — допустимые смены статуса отправления.
var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentStatusPending:   {ShipmentStatusShipped},
	ShipmentStatusShipped:   {ShipmentStatusInTransit, ShipmentStatusDelivered, ShipmentStatusException},
	ShipmentStatusInTransit: {ShipmentStatusDelivered, ShipmentStatusException},
	ShipmentStatusException: {ShipmentStatusReturned},
}

// CanTransitionTo проверяет переход по таблице статусов отправления.
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	for _, allowed := range shipmentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Наборы ключевых слов для классификации описаний трекинга. Эвристика
// унаследована от исходной системы и остаётся best-effort: совпадение меняет
// статус, отсутствие совпадения оставляет статус как есть.
var (
	deliveredKeywords = []string{"delivered", "signed", "received by"}
	transitKeywords   = []string{"in transit", "out for delivery", "departed", "arrived at"}
	exceptionKeywords = []string{"exception", "delivery failed", "undeliverable", "refused"}
)

// ClassifyTracking сопоставляет описание события со статусом отправления.
// Возвращает пустой статус, если описание не распознано.
func ClassifyTracking(description string) ShipmentStatus {
	text := strings.ToLower(description)
	for _, kw := range deliveredKeywords {
		if strings.Contains(text, kw) {
			return ShipmentStatusDelivered
		}
	}
	for _, kw := range exceptionKeywords {
		if strings.Contains(text, kw) {
			return ShipmentStatusException
		}
	}
	for _, kw := range transitKeywords {
		if strings.Contains(text, kw) {
			return ShipmentStatusInTransit
		}
	}
	return ""
}
