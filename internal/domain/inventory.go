package domain

import "time"

// StockLevel — складская запись по одному товару. Счётчики меняются только
// относительными операциями через InventoryRepository, абсолютные значения
// извне не выставляются — это сохраняет аудируемость движений.
type StockLevel struct {
	ProductID string
	// Available — сток, доступный к продаже. Инвариант: Available >= 0 всегда;
	// операция, нарушающая его, отклоняется, а не обрезается.
	Available int32
	// Sold — накопительно проданные единицы; уменьшается только при
	// возврате стока по отмене или рефанду.
	Sold      int32
	UpdatedAt time.Time
}

// StockAdjustment — запрошенное относительное изменение по одному товару.
type StockAdjustment struct {
	ProductID string
	Qty       int32
}
