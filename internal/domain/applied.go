package domain

import (
	"fmt"
	"time"
)

// AppliedTransition фиксирует уже применённый переход с побочными эффектами.
// Ключ (orderID + целевой статус) защищает от повторного выполнения эффектов
// при ретрае команды: release стока по отмене выполняется ровно один раз.
type AppliedTransition struct {
	Key       string
	OrderID   string
	ToStatus  OrderStatus
	TTLAt     time.Time
	AppliedAt time.Time
}

// AppliedTransitionKey строит идемпотентный ключ перехода.
func AppliedTransitionKey(orderID string, to OrderStatus) string {
	return fmt.Sprintf("%s:%s", orderID, to)
}
