package domain

import "time"

// OrderStatus описывает жизненный цикл заказа от оформления до завершения.
type OrderStatus string

const (
	// OrderStatusPendingPayment — заказ создан, ожидаем подтверждение оплаты.
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	// OrderStatusPaid — оплата подтверждена платёжным провайдером.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusProcessing — продавец взял заказ в обработку.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — историческое значение из старых записей;
	// таблица переходов его не назначает, завершение идёт сразу в completed.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCompleted — покупатель подтвердил получение, цикл завершён.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled — заказ отменён до завершения цикла.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefundRequested — покупатель запросил возврат после отгрузки.
	OrderStatusRefundRequested OrderStatus = "refund_requested"
	// OrderStatusRefunded — возврат одобрен продавцом, заказ закрыт.
	OrderStatusRefunded OrderStatus = "refunded"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted,
		OrderStatusCancelled, OrderStatusRefundRequested, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// Terminal сообщает, есть ли из статуса исходящие переходы.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// OrderLine представляет одну позицию заказа. Позиции неизменяемы после
// создания заказа: для другого состава оформляется новый заказ.
type OrderLine struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — идентификатор товара в каталоге.
	ProductID string
	// Name — название товара на момент оформления (денормализовано из каталога).
	Name string
	// ThumbnailURL — превью товара на момент оформления.
	ThumbnailURL string
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// Qty — количество единиц товара.
	Qty int32
	// SubtotalMinor = Qty * PriceMinor, фиксируется при создании.
	SubtotalMinor int64
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// ShippingSnapshot — копия адреса получателя на момент оформления заказа.
// Никогда не обновляется, даже если покупатель позже поменяет адрес в профиле.
type ShippingSnapshot struct {
	Receiver string
	Phone    string
	Province string
	City     string
	District string
	Detail   string
}

// ActionEntry — одна запись в append-only журнале действий по заказу.
type ActionEntry struct {
	Actor    ActorType
	Action   Action
	Note     string
	Occurred time.Time
}

// Order агрегирует состояние заказа, его позиции и журнал действий.
type Order struct {
	ID         string
	Number     string // человекочитаемый номер заказа, в дополнение к ID
	BuyerID    string
	MerchantID string
	Status     OrderStatus
	Lines      []OrderLine
	TotalMinor int64
	Shipping   ShippingSnapshot
	ActionLog  []ActionEntry
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RecalcTotal пересчитывает сумму заказа из позиций. Сумма никогда не
// выставляется извне напрямую.
func (o *Order) RecalcTotal() {
	var total int64
	for _, line := range o.Lines {
		total += line.SubtotalMinor
	}
	o.TotalMinor = total
}

// AppendAction добавляет запись в журнал действий. Журнал только растёт.
func (o *Order) AppendAction(actor ActorType, action Action, note string, occurred time.Time) {
	o.ActionLog = append(o.ActionLog, ActionEntry{
		Actor:    actor,
		Action:   action,
		Note:     note,
		Occurred: occurred,
	})
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.BuyerID == "" {
		errs = append(errs, ErrBuyerRequired)
	}
	if o.MerchantID == "" {
		errs = append(errs, ErrMerchantRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	if o.Shipping.Receiver == "" || o.Shipping.Phone == "" {
		errs = append(errs, ErrShippingIncomplete)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.PriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		if line.SubtotalMinor != int64(line.Qty)*line.PriceMinor {
			errs = append(errs, ErrLineSubtotalMismatch)
		}
		calc += line.SubtotalMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
