package query

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

// OrderView — заказ вместе с актуальным отправлением (если отгрузка была).
type OrderView struct {
	Order    domain.Order
	Shipment *domain.Shipment
}

// MerchantStats — сводка продавца: продажи по окнам и разбивка по статусам.
type MerchantStats struct {
	TodaySalesMinor int64
	WeekSalesMinor  int64
	MonthSalesMinor int64
	ByStatus        map[domain.OrderStatus]domain.StatusCount
}

// Service — read-сторона: выборки заказов и сводная статистика. Мутаций
// не выполняет и блокировок жизненного цикла не берёт.
type Service struct {
	orders    domain.OrderRepository
	shipments domain.ShipmentRepository
	logger    *log.Entry
	now       func() time.Time
}

// NewService создаёт сервис запросов поверх репозиториев.
func NewService(orders domain.OrderRepository, shipments domain.ShipmentRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "query")
	}
	return &Service{
		orders:    orders,
		shipments: shipments,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetOrder возвращает заказ с отправлением, проверяя видимость для актора:
// покупатель и продавец видят только свои заказы.
func (s *Service) GetOrder(id string, actor domain.ActorType, actorID string) (OrderView, error) {
	order, err := s.orders.Get(id)
	if err != nil {
		return OrderView{}, err
	}

	switch actor {
	case domain.ActorBuyer:
		if order.BuyerID != actorID {
			return OrderView{}, domain.ErrOrderNotFound
		}
	case domain.ActorMerchant:
		if order.MerchantID != actorID {
			return OrderView{}, domain.ErrOrderNotFound
		}
	case domain.ActorSystem:
	default:
		return OrderView{}, domain.ErrOrderNotFound
	}

	view := OrderView{Order: order}
	if shipment, err := s.shipments.GetByOrderID(order.ID); err == nil {
		view.Shipment = &shipment
	}
	return view, nil
}

// ListOrders возвращает страницу заказов по фильтру, новые первыми.
func (s *Service) ListOrders(filter domain.OrderFilter) (domain.OrderPage, error) {
	return s.orders.List(filter)
}

// GetMerchantStats собирает сводку продавца: сумма завершённых продаж за
// сегодня / 7 дней / 30 дней и разбивка заказов по статусам.
func (s *Service) GetMerchantStats(merchantID string) (MerchantStats, error) {
	if merchantID == "" {
		return MerchantStats{}, domain.ErrMerchantRequired
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	today, err := s.orders.SalesSince(merchantID, dayStart)
	if err != nil {
		return MerchantStats{}, err
	}
	week, err := s.orders.SalesSince(merchantID, now.AddDate(0, 0, -7))
	if err != nil {
		return MerchantStats{}, err
	}
	month, err := s.orders.SalesSince(merchantID, now.AddDate(0, 0, -30))
	if err != nil {
		return MerchantStats{}, err
	}
	byStatus, err := s.orders.CountsByStatus(merchantID)
	if err != nil {
		return MerchantStats{}, err
	}

	return MerchantStats{
		TodaySalesMinor: today,
		WeekSalesMinor:  week,
		MonthSalesMinor: month,
		ByStatus:        byStatus,
	}, nil
}
