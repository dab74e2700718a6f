package domain

import "errors"

var (
	// ErrIllegalTransition — переход не разрешён таблицей: либо неподходящий
	// исходный статус, либо действие не принадлежит этому актору.
	ErrIllegalTransition = errors.New("illegal order transition")
	// ErrAlreadyTerminal — попытка отменить заказ в терминальном статусе.
	ErrAlreadyTerminal = errors.New("order already in terminal status")
	// ErrInsufficientStock — на складе меньше, чем запрошено; операция
	// отклоняется целиком, без частичного списания.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrAlreadyShipped — по заказу уже существует активное отправление.
	ErrAlreadyShipped = errors.New("order already has an active shipment")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrShipmentNotFound возвращается, если отправление не найдено.
	ErrShipmentNotFound = errors.New("shipment not found")
	// ErrProductNotFound — товар отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductNotSellable — товар снят с продажи.
	ErrProductNotSellable = errors.New("product is not sellable")
	// ErrMerchantMismatch — позиции заказа принадлежат разным продавцам.
	ErrMerchantMismatch = errors.New("all order lines must belong to one merchant")
	// ErrVersionConflict сигнализирует о конфликте версий при сохранении;
	// команду безопасно повторить целиком.
	ErrVersionConflict = errors.New("aggregate version conflict")

	// Ошибка отсутствующего идентификатора покупателя.
	ErrBuyerRequired = errors.New("buyer_id is required")
	// Ошибка отсутствующего идентификатора продавца.
	ErrMerchantRequired = errors.New("merchant_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка неполного адреса доставки.
	ErrShippingIncomplete = errors.New("shipping receiver and phone are required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrLineQtyInvalid = errors.New("line qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrLinePriceInvalid = errors.New("line price must be non-negative")
	// Ошибка несоответствия подытога позиции произведению qty * price.
	ErrLineSubtotalMismatch = errors.New("line subtotal does not match qty * price")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match lines sum")

	// Ошибка отсутствующего идентификатора заказа в отправлении/стоке.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствующего перевозчика при отгрузке.
	ErrCarrierRequired = errors.New("carrier is required")
	// Ошибка отсутствующего трек-номера при отгрузке.
	ErrTrackingNumberRequired = errors.New("tracking number is required")
	// Ошибка пустого описания события трекинга.
	ErrTrackingDescriptionRequired = errors.New("tracking description is required")
	// Ошибка перехода статуса отправления вне его таблицы.
	ErrIllegalShipmentTransition = errors.New("illegal shipment transition")

	// ErrAppliedKeyRequired — пустой ключ применённого перехода.
	ErrAppliedKeyRequired = errors.New("applied transition key is required")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
