package domain

// ActorType определяет сторону, от имени которой пришла команда.
type ActorType string

const (
	// ActorBuyer — покупатель, владелец заказа.
	ActorBuyer ActorType = "buyer"
	// ActorMerchant — продавец, исполняющий заказ.
	ActorMerchant ActorType = "merchant"
	// ActorSystem — внутренние источники: платёжные колбэки, таймеры,
	// трекинг доставки. Публичного токена у system-команд нет.
	ActorSystem ActorType = "system"
)

// Valid проверяет, что тип актора поддерживается.
func (a ActorType) Valid() bool {
	switch a {
	case ActorBuyer, ActorMerchant, ActorSystem:
		return true
	default:
		return false
	}
}

// Action — действие над заказом, поступающее через координатор.
type Action string

const (
	// ActionPaymentSucceeded — платёжный провайдер подтвердил оплату.
	ActionPaymentSucceeded Action = "payment-succeeded"
	// ActionPaymentTimeout — оплата не поступила в отведённое окно.
	ActionPaymentTimeout Action = "payment-timeout"
	// ActionCancel — отмена заказа покупателем или продавцом.
	ActionCancel Action = "cancel"
	// ActionBeginProcessing — продавец начал обработку оплаченного заказа.
	ActionBeginProcessing Action = "begin-processing"
	// ActionShip — продавец передал заказ в доставку.
	ActionShip Action = "ship"
	// ActionConfirmReceipt — покупатель подтвердил получение.
	ActionConfirmReceipt Action = "confirm-receipt"
	// ActionAutoConfirm — авто-подтверждение по таймеру бездействия покупателя.
	ActionAutoConfirm Action = "auto-confirm-timeout"
	// ActionRequestRefund — покупатель запросил возврат после отгрузки.
	ActionRequestRefund Action = "request-refund"
	// ActionApproveRefund — продавец одобрил возврат.
	ActionApproveRefund Action = "approve-refund"
	// ActionAddTracking — событие трекинга по отправлению; статус заказа
	// меняет только при классификации "доставлено".
	ActionAddTracking Action = "add-tracking"
)

// CommandPayload несёт дополнительные данные действия. Для ship обязательны
// Carrier и TrackingNumber, для add-tracking — Description.
type CommandPayload struct {
	Carrier        string
	TrackingNumber string
	Description    string
	Location       string
	Note           string
}

// Command — единица входа координатора: кто, над каким заказом и что делает.
type Command struct {
	OrderID   string
	ActorType ActorType
	ActorID   string
	Action    Action
	Payload   CommandPayload
}

// TransitionEvent описывает успешный переход для внешних потребителей
// (уведомления, аналитика). Эмитится по одному на переход.
type TransitionEvent struct {
	OrderID    string      `json:"order_id"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	ActorType  ActorType   `json:"actor_type"`
}
