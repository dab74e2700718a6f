package domain

// transitionKey адресует одну строку таблицы переходов.
type transitionKey struct {
	From   OrderStatus
	Action Action
}

// transitionRule фиксирует, кто имеет право на переход и куда он ведёт.
type transitionRule struct {
	Actor ActorType
	To    OrderStatus
}

// transitionTable — единственное место, где определена легальность переходов.
// Любая пара (статус, действие) вне таблицы отклоняется как ErrIllegalTransition.
// Исторически ship принимается и из paid, и из processing: часть вызывающих
// сторон пропускает processing. Обе строки сохранены до решения владельца
// продукта, какой путь канонический.
var transitionTable = map[transitionKey]transitionRule{
	{OrderStatusPendingPayment, ActionPaymentSucceeded}: {ActorSystem, OrderStatusPaid},
	{OrderStatusPendingPayment, ActionCancel}:           {ActorBuyer, OrderStatusCancelled},
	{OrderStatusPendingPayment, ActionPaymentTimeout}:   {ActorSystem, OrderStatusCancelled},
	{OrderStatusPaid, ActionBeginProcessing}:            {ActorMerchant, OrderStatusProcessing},
	{OrderStatusPaid, ActionCancel}:                     {ActorMerchant, OrderStatusCancelled},
	{OrderStatusPaid, ActionShip}:                       {ActorMerchant, OrderStatusShipped},
	{OrderStatusProcessing, ActionShip}:                 {ActorMerchant, OrderStatusShipped},
	{OrderStatusProcessing, ActionCancel}:               {ActorMerchant, OrderStatusCancelled},
	{OrderStatusShipped, ActionConfirmReceipt}:          {ActorBuyer, OrderStatusCompleted},
	{OrderStatusShipped, ActionAutoConfirm}:             {ActorSystem, OrderStatusCompleted},
	{OrderStatusShipped, ActionRequestRefund}:           {ActorBuyer, OrderStatusRefundRequested},
	{OrderStatusRefundRequested, ActionApproveRefund}:   {ActorMerchant, OrderStatusRefunded},
}

// cancelActions — действия семейства «отмена»; на терминальных статусах они
// отклоняются как ErrAlreadyTerminal, а не как ErrIllegalTransition.
var cancelActions = map[Action]struct{}{
	ActionCancel:         {},
	ActionPaymentTimeout: {},
}

// NextStatus валидирует переход по таблице и возвращает целевой статус.
// Проверяется и исходный статус, и право актора на действие.
func NextStatus(from OrderStatus, action Action, actor ActorType) (OrderStatus, error) {
	if _, isCancel := cancelActions[action]; isCancel && from.Terminal() {
		return "", ErrAlreadyTerminal
	}

	rule, ok := transitionTable[transitionKey{From: from, Action: action}]
	if !ok {
		return "", ErrIllegalTransition
	}
	if rule.Actor != actor {
		return "", ErrIllegalTransition
	}
	return rule.To, nil
}

// ReleasesStock сообщает, должен ли переход в target вернуть сток на склад.
// Отмена до оплаты тоже проходит здесь: сток коммитится при оформлении, поэтому
// release нужен из любого статуса после успешного создания заказа.
func ReleasesStock(target OrderStatus) bool {
	return target == OrderStatusCancelled || target == OrderStatusRefunded
}
