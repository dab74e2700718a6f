package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

func TestNextStatus_AllowedTransitions(t *testing.T) {
	cases := []struct {
		name   string
		from   domain.OrderStatus
		action domain.Action
		actor  domain.ActorType
		want   domain.OrderStatus
	}{
		{"payment success", domain.OrderStatusPendingPayment, domain.ActionPaymentSucceeded, domain.ActorSystem, domain.OrderStatusPaid},
		{"payment timeout", domain.OrderStatusPendingPayment, domain.ActionPaymentTimeout, domain.ActorSystem, domain.OrderStatusCancelled},
		{"buyer cancels before payment", domain.OrderStatusPendingPayment, domain.ActionCancel, domain.ActorBuyer, domain.OrderStatusCancelled},
		{"merchant cancels paid order", domain.OrderStatusPaid, domain.ActionCancel, domain.ActorMerchant, domain.OrderStatusCancelled},
		{"merchant cancels processing order", domain.OrderStatusProcessing, domain.ActionCancel, domain.ActorMerchant, domain.OrderStatusCancelled},
		{"merchant takes order", domain.OrderStatusPaid, domain.ActionBeginProcessing, domain.ActorMerchant, domain.OrderStatusProcessing},
		{"ship directly from paid", domain.OrderStatusPaid, domain.ActionShip, domain.ActorMerchant, domain.OrderStatusShipped},
		{"ship from processing", domain.OrderStatusProcessing, domain.ActionShip, domain.ActorMerchant, domain.OrderStatusShipped},
		{"buyer confirms receipt", domain.OrderStatusShipped, domain.ActionConfirmReceipt, domain.ActorBuyer, domain.OrderStatusCompleted},
		{"auto confirm", domain.OrderStatusShipped, domain.ActionAutoConfirm, domain.ActorSystem, domain.OrderStatusCompleted},
		{"refund request", domain.OrderStatusShipped, domain.ActionRequestRefund, domain.ActorBuyer, domain.OrderStatusRefundRequested},
		{"refund approved", domain.OrderStatusRefundRequested, domain.ActionApproveRefund, domain.ActorMerchant, domain.OrderStatusRefunded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := domain.NextStatus(tc.from, tc.action, tc.actor)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestNextStatus_ActorMismatch(t *testing.T) {
	cases := []struct {
		name   string
		from   domain.OrderStatus
		action domain.Action
		actor  domain.ActorType
	}{
		{"buyer ships", domain.OrderStatusPaid, domain.ActionShip, domain.ActorBuyer},
		{"merchant confirms receipt", domain.OrderStatusShipped, domain.ActionConfirmReceipt, domain.ActorMerchant},
		{"system cancels for buyer", domain.OrderStatusPaid, domain.ActionCancel, domain.ActorSystem},
		{"buyer approves refund", domain.OrderStatusRefundRequested, domain.ActionApproveRefund, domain.ActorBuyer},
		{"merchant fires payment timeout", domain.OrderStatusPendingPayment, domain.ActionPaymentTimeout, domain.ActorMerchant},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := domain.NextStatus(tc.from, tc.action, tc.actor); !errors.Is(err, domain.ErrIllegalTransition) {
				t.Fatalf("expected ErrIllegalTransition, got %v", err)
			}
		})
	}
}

func TestNextStatus_IllegalTransitions(t *testing.T) {
	cases := []struct {
		name   string
		from   domain.OrderStatus
		action domain.Action
		actor  domain.ActorType
	}{
		{"ship before payment", domain.OrderStatusPendingPayment, domain.ActionShip, domain.ActorMerchant},
		{"cancel after shipment", domain.OrderStatusShipped, domain.ActionCancel, domain.ActorBuyer},
		{"refund before shipment", domain.OrderStatusPaid, domain.ActionRequestRefund, domain.ActorBuyer},
		{"confirm unshipped order", domain.OrderStatusProcessing, domain.ActionConfirmReceipt, domain.ActorBuyer},
		{"ship again from shipped", domain.OrderStatusShipped, domain.ActionShip, domain.ActorMerchant},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := domain.NextStatus(tc.from, tc.action, tc.actor); !errors.Is(err, domain.ErrIllegalTransition) {
				t.Fatalf("expected ErrIllegalTransition, got %v", err)
			}
		})
	}
}

func TestNextStatus_CancelOnTerminalIsAlreadyTerminal(t *testing.T) {
	terminal := []domain.OrderStatus{
		domain.OrderStatusCompleted,
		domain.OrderStatusCancelled,
		domain.OrderStatusRefunded,
	}

	for _, status := range terminal {
		t.Run(string(status), func(t *testing.T) {
			if _, err := domain.NextStatus(status, domain.ActionCancel, domain.ActorBuyer); !errors.Is(err, domain.ErrAlreadyTerminal) {
				t.Fatalf("cancel on %s: expected ErrAlreadyTerminal, got %v", status, err)
			}
			if _, err := domain.NextStatus(status, domain.ActionPaymentTimeout, domain.ActorSystem); !errors.Is(err, domain.ErrAlreadyTerminal) {
				t.Fatalf("payment timeout on %s: expected ErrAlreadyTerminal, got %v", status, err)
			}
		})
	}
}

func TestNextStatus_NonCancelOnTerminalIsIllegal(t *testing.T) {
	if _, err := domain.NextStatus(domain.OrderStatusCancelled, domain.ActionShip, domain.ActorMerchant); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestReleasesStock(t *testing.T) {
	if !domain.ReleasesStock(domain.OrderStatusCancelled) {
		t.Fatal("cancelled must release stock")
	}
	if !domain.ReleasesStock(domain.OrderStatusRefunded) {
		t.Fatal("refunded must release stock")
	}
	if domain.ReleasesStock(domain.OrderStatusCompleted) {
		t.Fatal("completed must not release stock")
	}
	if domain.ReleasesStock(domain.OrderStatusShipped) {
		t.Fatal("shipped must not release stock")
	}
}
