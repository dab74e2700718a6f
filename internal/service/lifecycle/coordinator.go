package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
	"github.com/vladislavdragonenkov/fulfillment/internal/metrics"
)

const (
	// appliedTransitionTTL ограничивает срок хранения ключей идемпотентности;
	// просроченные ключи вычищает отдельный воркер.
	appliedTransitionTTL = 30 * 24 * time.Hour

	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

// Snapshot — состояние заказа после обработки команды. Отправление
// прикладывается, если по заказу уже была отгрузка.
type Snapshot struct {
	Order    domain.Order
	Shipment *domain.Shipment
}

// PlaceOrderLine — одна позиция запроса на оформление заказа.
type PlaceOrderLine struct {
	ProductID string
	Qty       int32
}

// PlaceOrderRequest — запрос на оформление заказа покупателем.
type PlaceOrderRequest struct {
	BuyerID  string
	Lines    []PlaceOrderLine
	Shipping domain.ShippingSnapshot
	Note     string
}

// Coordinator — единственная точка мутации жизненного цикла заказа.
type Coordinator interface {
	// PlaceOrder оформляет заказ: валидирует позиции по каталогу, атомарно
	// коммитит сток и сохраняет заказ в статусе pending_payment.
	PlaceOrder(req PlaceOrderRequest) (Snapshot, error)
	// Submit применяет команду актора к заказу: валидация прав и перехода,
	// побочные эффекты по стоку/отправлению, персист, событие в outbox.
	Submit(cmd domain.Command) (Snapshot, error)
}

// coordinator связывает репозитории, каталог и outbox в один use-case слой.
type coordinator struct {
	orders    domain.OrderRepository
	shipments domain.ShipmentRepository
	inventory domain.InventoryRepository
	catalog   domain.CatalogService
	outbox    domain.OutboxRepository
	applied   domain.AppliedTransitionRepository
	locks     *orderLocks
	logger    *log.Entry
	metrics   *metrics.LifecycleMetrics
}

// NewCoordinator создаёт рабочий экземпляр координатора.
func NewCoordinator(
	orders domain.OrderRepository,
	shipments domain.ShipmentRepository,
	inventory domain.InventoryRepository,
	catalog domain.CatalogService,
	outbox domain.OutboxRepository,
	applied domain.AppliedTransitionRepository,
	logger *log.Entry,
) Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "lifecycle")
	}
	return &coordinator{
		orders:    orders,
		shipments: shipments,
		inventory: inventory,
		catalog:   catalog,
		outbox:    outbox,
		applied:   applied,
		locks:     newOrderLocks(),
		logger:    logger,
		metrics:   metrics.NewLifecycleMetrics(),
	}
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(
	orders domain.OrderRepository,
	shipments domain.ShipmentRepository,
	inventory domain.InventoryRepository,
	catalog domain.CatalogService,
	outbox domain.OutboxRepository,
	applied domain.AppliedTransitionRepository,
	logger *log.Entry,
) Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "lifecycle")
	}
	return &coordinator{
		orders:    orders,
		shipments: shipments,
		inventory: inventory,
		catalog:   catalog,
		outbox:    outbox,
		applied:   applied,
		locks:     newOrderLocks(),
		logger:    logger,
		metrics:   nil,
	}
}

// PlaceOrder оформляет новый заказ. Сток коммитится синхронно при оформлении
// (optimistic commit): неоплаченный заказ держит сток до payment-timeout.
func (c *coordinator) PlaceOrder(req PlaceOrderRequest) (Snapshot, error) {
	if req.BuyerID == "" {
		return Snapshot{}, domain.ErrBuyerRequired
	}
	if len(req.Lines) == 0 {
		return Snapshot{}, domain.ErrLinesRequired
	}
	if req.Shipping.Receiver == "" || req.Shipping.Phone == "" {
		return Snapshot{}, domain.ErrShippingIncomplete
	}

	now := time.Now().UTC()
	merchantID := ""
	lines := make([]domain.OrderLine, 0, len(req.Lines))
	adjustments := make([]domain.StockAdjustment, 0, len(req.Lines))

	for _, line := range req.Lines {
		if line.Qty <= 0 {
			return Snapshot{}, domain.ErrLineQtyInvalid
		}
		product, err := c.catalog.GetProduct(line.ProductID)
		if err != nil {
			return Snapshot{}, err
		}
		if !product.Sellable {
			return Snapshot{}, domain.ErrProductNotSellable
		}
		// Все позиции заказа должны принадлежать одному продавцу.
		if merchantID == "" {
			merchantID = product.MerchantID
		} else if merchantID != product.MerchantID {
			return Snapshot{}, domain.ErrMerchantMismatch
		}

		lines = append(lines, domain.OrderLine{
			ID:            uuid.NewString(),
			ProductID:     product.ID,
			Name:          product.Name,
			ThumbnailURL:  product.ThumbnailURL,
			PriceMinor:    product.PriceMinor,
			Qty:           line.Qty,
			SubtotalMinor: int64(line.Qty) * product.PriceMinor,
			CreatedAt:     now,
		})
		adjustments = append(adjustments, domain.StockAdjustment{
			ProductID: product.ID,
			Qty:       line.Qty,
		})
	}

	// Атомарное списание по всем позициям: либо весь заказ, либо ничего.
	if err := c.inventory.ReserveAndCommit(adjustments); err != nil {
		return Snapshot{}, err
	}

	order := domain.Order{
		ID:         uuid.NewString(),
		Number:     generateOrderNumber(now),
		BuyerID:    req.BuyerID,
		MerchantID: merchantID,
		Status:     domain.OrderStatusPendingPayment,
		Lines:      lines,
		Shipping:   req.Shipping,
		Version:    0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	order.RecalcTotal()
	order.AppendAction(domain.ActorBuyer, "place-order", req.Note, now)

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		c.releaseStock(adjustments)
		return Snapshot{}, joinErrors(errs)
	}

	// Событие ставится в outbox до персиста заказа: успешное оформление без
	// события невозможно, несохранившийся заказ компенсируется пометкой failed.
	eventID, err := c.stageTransitionEvent(order, "", order.Status, domain.ActorBuyer)
	if err != nil {
		c.releaseStock(adjustments)
		return Snapshot{}, err
	}

	if err := c.orders.Create(order); err != nil {
		// Компенсация: заказ не сохранился, возвращаем сток и гасим событие.
		c.releaseStock(adjustments)
		c.abandonTransitionEvent(order.ID, eventID)
		c.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist order")
		return Snapshot{}, fmt.Errorf("create order: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordOrderPlaced()
	}

	return Snapshot{Order: order}, nil
}

// Submit применяет одну команду актора к заказу. Команды по одному заказу
// сериализуются эксклюзивной блокировкой на orderID.
func (c *coordinator) Submit(cmd domain.Command) (Snapshot, error) {
	start := time.Now()
	if c.metrics != nil {
		c.metrics.RecordCommandStarted()
	}
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordCommandFinished()
			c.metrics.RecordCommandDuration(string(cmd.Action), time.Since(start))
		}
	}()

	if cmd.OrderID == "" {
		return Snapshot{}, domain.ErrOrderIDRequired
	}
	if !cmd.ActorType.Valid() {
		return c.reject(cmd, domain.ErrIllegalTransition)
	}

	unlock := c.locks.Acquire(cmd.OrderID)
	defer unlock()

	order, err := c.orders.Get(cmd.OrderID)
	if err != nil {
		return c.reject(cmd, err)
	}
	if err := checkOwnership(order, cmd); err != nil {
		return c.reject(cmd, err)
	}

	if cmd.Action == domain.ActionAddTracking {
		return c.applyTracking(order, cmd)
	}

	// Подтверждение покупателя и завершение по трекингу взаимно идемпотентны:
	// повторное завершение — no-op, а не ошибка.
	if completionAction(cmd.Action) && order.Status == domain.OrderStatusCompleted {
		if c.metrics != nil {
			c.metrics.RecordTransition(string(cmd.Action), resultOK)
		}
		return c.snapshot(order), nil
	}

	target, err := domain.NextStatus(order.Status, cmd.Action, cmd.ActorType)
	if err != nil {
		// Повтор отмены на уже отменённом заказе: возвращаем AlreadyTerminal,
		// но сперва добираем release, если первый проход до него не дошёл.
		if err == domain.ErrAlreadyTerminal && domain.ReleasesStock(order.Status) {
			c.releaseOnce(order)
		}
		return c.reject(cmd, err)
	}

	return c.applyTransition(order, cmd, target)
}

// applyTransition выполняет проверенный переход: побочные эффекты, персист
// заказа и событие в outbox. Сорвавшиеся записи компенсируются, чтобы заказ
// не оставался в частично применённом состоянии.
func (c *coordinator) applyTransition(order domain.Order, cmd domain.Command, target domain.OrderStatus) (Snapshot, error) {
	now := time.Now().UTC()
	from := order.Status

	var shipment *domain.Shipment
	if target == domain.OrderStatusShipped {
		created, err := c.prepareShipment(order, cmd, now)
		if err != nil {
			return c.reject(cmd, err)
		}
		shipment = created
	}

	order.Status = target
	order.UpdatedAt = now
	order.AppendAction(cmd.ActorType, cmd.Action, cmd.Payload.Note, now)

	eventID, err := c.stageTransitionEvent(order, from, target, cmd.ActorType)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordTransition(string(cmd.Action), resultError)
		}
		return Snapshot{}, err
	}

	if err := c.orders.Save(order); err != nil {
		c.abandonTransitionEvent(order.ID, eventID)
		c.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"action":   cmd.Action,
		}).Error("failed to persist transition")
		if c.metrics != nil {
			c.metrics.RecordTransition(string(cmd.Action), resultError)
		}
		return Snapshot{}, err
	}
	order.Version++

	if shipment != nil {
		if err := c.shipments.Create(*shipment); err != nil {
			// Статус shipped без записи отправления невалиден, а повторная
			// отгрузка из него невозможна: откатываем заказ в исходный статус.
			c.revertTransition(order, from, now)
			c.abandonTransitionEvent(order.ID, eventID)
			c.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist shipment")
			if c.metrics != nil {
				c.metrics.RecordTransition(string(cmd.Action), resultError)
			}
			return Snapshot{}, fmt.Errorf("create shipment: %w", err)
		}
		if c.metrics != nil {
			c.metrics.RecordShipmentCreated()
		}
	}

	// Возврат стока выполняется ровно один раз на пару (заказ, целевой статус),
	// ретраи отсекаются ключом идемпотентности.
	if domain.ReleasesStock(target) {
		c.releaseOnce(order)
	}

	if c.metrics != nil {
		c.metrics.RecordTransition(string(cmd.Action), resultOK)
	}

	snap := Snapshot{Order: order, Shipment: shipment}
	if shipment == nil {
		snap = c.snapshot(order)
	}
	return snap, nil
}

// revertTransition возвращает заказ в исходный статус после сорвавшегося
// побочного эффекта. Откат идёт под той же блокировкой orderID, поэтому
// конкурирующих записей между Save и откатом нет.
func (c *coordinator) revertTransition(order domain.Order, from domain.OrderStatus, now time.Time) {
	order.Status = from
	order.UpdatedAt = now
	if n := len(order.ActionLog); n > 0 {
		order.ActionLog = order.ActionLog[:n-1]
	}
	if err := c.orders.Save(order); err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Error("failed to revert transition")
	}
}

// prepareShipment валидирует отгрузку и собирает новую запись отправления.
// Повторная отгрузка допустима только после exception и идёт новой записью:
// трек-номер существующей записи никогда не перезаписывается.
func (c *coordinator) prepareShipment(order domain.Order, cmd domain.Command, now time.Time) (*domain.Shipment, error) {
	existing, err := c.shipments.GetByOrderID(order.ID)
	if err == nil && existing.Status != domain.ShipmentStatusException {
		return nil, domain.ErrAlreadyShipped
	}
	if err != nil && err != domain.ErrShipmentNotFound {
		return nil, fmt.Errorf("lookup shipment: %w", err)
	}

	shipment := &domain.Shipment{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		Carrier:        cmd.Payload.Carrier,
		TrackingNumber: cmd.Payload.TrackingNumber,
		Status:         domain.ShipmentStatusShipped,
		Version:        0,
		ShippedAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if errs := shipment.Validate(); len(errs) > 0 {
		return nil, joinErrors(errs)
	}
	shipment.AppendEvent("package handed over to carrier", cmd.Payload.Location, now)
	return shipment, nil
}

// applyTracking добавляет событие трекинга и, при распознанной доставке,
// завершает заказ тем же переходом, что и авто-подтверждение.
func (c *coordinator) applyTracking(order domain.Order, cmd domain.Command) (Snapshot, error) {
	if cmd.Payload.Description == "" {
		return c.reject(cmd, domain.ErrTrackingDescriptionRequired)
	}

	shipment, err := c.shipments.GetByOrderID(order.ID)
	if err != nil {
		return c.reject(cmd, err)
	}
	if shipment.Status.Terminal() {
		return c.reject(cmd, domain.ErrIllegalShipmentTransition)
	}

	now := time.Now().UTC()
	shipment.AppendEvent(cmd.Payload.Description, cmd.Payload.Location, now)

	// Классификация описаний — best-effort эвристика: нераспознанное описание
	// оставляет статус отправления без изменений.
	if class := domain.ClassifyTracking(cmd.Payload.Description); class != "" && shipment.Status.CanTransitionTo(class) {
		shipment.Status = class
		if class == domain.ShipmentStatusDelivered {
			shipment.DeliveredAt = now
		}
	}
	shipment.UpdatedAt = now

	if err := c.shipments.Save(shipment); err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist tracking event")
		if c.metrics != nil {
			c.metrics.RecordTransition(string(cmd.Action), resultError)
		}
		return Snapshot{}, err
	}
	shipment.Version++

	if shipment.Status == domain.ShipmentStatusDelivered && order.Status == domain.OrderStatusShipped {
		// Доставка по трекингу завершает заказ, если покупатель ещё не
		// подтвердил получение сам.
		confirm := domain.Command{
			OrderID:   order.ID,
			ActorType: domain.ActorSystem,
			Action:    domain.ActionAutoConfirm,
			Payload:   domain.CommandPayload{Note: "delivery confirmed by carrier tracking"},
		}
		target, terr := domain.NextStatus(order.Status, confirm.Action, confirm.ActorType)
		if terr == nil {
			snap, aerr := c.applyTransition(order, confirm, target)
			if aerr != nil {
				return Snapshot{}, aerr
			}
			snap.Shipment = &shipment
			return snap, nil
		}
	}

	if c.metrics != nil {
		c.metrics.RecordTransition(string(cmd.Action), resultOK)
	}
	return Snapshot{Order: order, Shipment: &shipment}, nil
}

// releaseOnce возвращает сток по заказу ровно один раз: ключ идемпотентности
// (orderID + целевой статус) захватывается атомарно до release, поэтому
// повторные проходы по тому же переходу сток не трогают.
func (c *coordinator) releaseOnce(order domain.Order) {
	key := domain.AppliedTransitionKey(order.ID, order.Status)
	first, err := c.applied.MarkApplied(key, order.ID, order.Status, time.Now().UTC().Add(appliedTransitionTTL))
	if err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Error("failed to mark transition applied")
		return
	}
	if !first {
		return
	}

	adjustments := make([]domain.StockAdjustment, 0, len(order.Lines))
	for _, line := range order.Lines {
		adjustments = append(adjustments, domain.StockAdjustment{
			ProductID: line.ProductID,
			Qty:       line.Qty,
		})
	}
	c.releaseStock(adjustments)
}

func (c *coordinator) releaseStock(adjustments []domain.StockAdjustment) {
	if err := c.inventory.Release(adjustments); err != nil {
		c.logger.WithError(err).Error("stock release failed")
		return
	}
	if c.metrics != nil {
		c.metrics.RecordStockRelease()
	}
}

// stageTransitionEvent кладёт событие перехода в outbox до персиста заказа:
// применённый переход без события невозможен, а событие несостоявшегося
// перехода гасится через abandonTransitionEvent. Доставку наружу выполняет
// outbox worker.
func (c *coordinator) stageTransitionEvent(order domain.Order, from, to domain.OrderStatus, actor domain.ActorType) (string, error) {
	payload, err := json.Marshal(struct {
		domain.TransitionEvent
		TS string `json:"ts"`
	}{
		TransitionEvent: domain.TransitionEvent{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			ActorType:  actor,
		},
		TS: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Error("marshal transition event failed")
		return "", fmt.Errorf("marshal transition event: %w", err)
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventTypeFor(to),
		Payload:       payload,
	}
	staged, err := c.outbox.Enqueue(msg)
	if err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    msg.EventType,
		}).Error("enqueue transition event failed")
		return "", fmt.Errorf("enqueue transition event: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordOutboxEvent()
	}
	return staged.ID, nil
}

// abandonTransitionEvent помечает застолблённое событие как failed, чтобы
// worker не опубликовал переход, который так и не был применён.
func (c *coordinator) abandonTransitionEvent(orderID, eventID string) {
	if err := c.outbox.MarkFailed(eventID); err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"order_id":  orderID,
			"outbox_id": eventID,
		}).Warn("failed to abandon transition event")
	}
}

func (c *coordinator) snapshot(order domain.Order) Snapshot {
	snap := Snapshot{Order: order}
	if shipment, err := c.shipments.GetByOrderID(order.ID); err == nil {
		snap.Shipment = &shipment
	}
	return snap
}

func (c *coordinator) reject(cmd domain.Command, err error) (Snapshot, error) {
	if c.metrics != nil {
		c.metrics.RecordTransition(string(cmd.Action), resultRejected)
	}
	// Отклонённые команды в журнал заказа не пишутся; аудит отказа — забота
	// внешнего коллектора.
	return Snapshot{}, err
}

// checkOwnership сверяет актора с владельцем стороны заказа. System-команды
// приходят из внутреннего контура и проверку ActorID не проходят.
func checkOwnership(order domain.Order, cmd domain.Command) error {
	switch cmd.ActorType {
	case domain.ActorBuyer:
		if cmd.ActorID != order.BuyerID {
			return domain.ErrIllegalTransition
		}
	case domain.ActorMerchant:
		if cmd.ActorID != order.MerchantID {
			return domain.ErrIllegalTransition
		}
	case domain.ActorSystem:
	default:
		return domain.ErrIllegalTransition
	}
	return nil
}

func completionAction(action domain.Action) bool {
	return action == domain.ActionConfirmReceipt || action == domain.ActionAutoConfirm
}

// eventTypeFor сопоставляет целевой статус типу события для потребителей.
func eventTypeFor(to domain.OrderStatus) string {
	switch to {
	case domain.OrderStatusPendingPayment:
		return "OrderPlaced"
	case domain.OrderStatusPaid:
		return "OrderPaid"
	case domain.OrderStatusProcessing:
		return "OrderProcessing"
	case domain.OrderStatusShipped:
		return "OrderShipped"
	case domain.OrderStatusCompleted:
		return "OrderCompleted"
	case domain.OrderStatusCancelled:
		return "OrderCancelled"
	case domain.OrderStatusRefundRequested:
		return "OrderRefundRequested"
	case domain.OrderStatusRefunded:
		return "OrderRefunded"
	default:
		return "OrderStatusChanged"
	}
}

// generateOrderNumber строит человекочитаемый номер заказа в формате
// исходной витрины: yymmddhhmmss + 3 случайные цифры.
func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s%03d", now.Format("060102150405"), rand.IntN(1000))
}

// joinErrors объединяет замечания валидации, сохраняя errors.Is по каждому.
func joinErrors(errs []error) error {
	return errors.Join(errs...)
}

var _ Coordinator = (*coordinator)(nil)
