package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
)

// helper для создания базового заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:         "order-1",
		Number:     "250901120000123",
		BuyerID:    "buyer-1",
		MerchantID: "merchant-1",
		Status:     domain.OrderStatusPendingPayment,
		Lines: []domain.OrderLine{
			{
				ID:            "line-1",
				ProductID:     "product-1",
				Name:          "Mug",
				PriceMinor:    100,
				Qty:           5,
				SubtotalMinor: 500,
				CreatedAt:     now,
			},
		},
		TotalMinor: 500,
		Shipping: domain.ShippingSnapshot{
			Receiver: "Alex",
			Phone:    "+100000000",
			City:     "Springfield",
			Detail:   "Main st. 1",
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
		want error
	}{
		{
			name: "no buyer",
			mut:  func(o *domain.Order) { o.BuyerID = "" },
			want: domain.ErrBuyerRequired,
		},
		{
			name: "no merchant",
			mut:  func(o *domain.Order) { o.MerchantID = "" },
			want: domain.ErrMerchantRequired,
		},
		{
			name: "no lines",
			mut: func(o *domain.Order) {
				o.Lines = nil
				o.TotalMinor = 0
			},
			want: domain.ErrLinesRequired,
		},
		{
			name: "incomplete shipping",
			mut:  func(o *domain.Order) { o.Shipping.Phone = "" },
			want: domain.ErrShippingIncomplete,
		},
		{
			name: "zero qty",
			mut:  func(o *domain.Order) { o.Lines[0].Qty = 0 },
			want: domain.ErrLineQtyInvalid,
		},
		{
			name: "subtotal mismatch",
			mut:  func(o *domain.Order) { o.Lines[0].SubtotalMinor = 400 },
			want: domain.ErrLineSubtotalMismatch,
		},
		{
			name: "total mismatch",
			mut:  func(o *domain.Order) { o.TotalMinor = 1 },
			want: domain.ErrTotalMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			errs := order.ValidateInvariants()
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			for _, err := range errs {
				if errors.Is(err, tc.want) {
					return
				}
			}
			t.Fatalf("expected %v among %v", tc.want, errs)
		})
	}
}

func TestOrderRecalcTotal(t *testing.T) {
	order := makeOrder()
	order.Lines = append(order.Lines, domain.OrderLine{
		ID:            "line-2",
		ProductID:     "product-2",
		PriceMinor:    250,
		Qty:           2,
		SubtotalMinor: 500,
	})

	order.RecalcTotal()
	if order.TotalMinor != 1000 {
		t.Fatalf("expected total 1000, got %d", order.TotalMinor)
	}
}

func TestOrderAppendAction(t *testing.T) {
	order := makeOrder()
	now := time.Now().UTC()

	order.AppendAction(domain.ActorMerchant, domain.ActionShip, "carrier picked up", now)
	order.AppendAction(domain.ActorBuyer, domain.ActionConfirmReceipt, "", now.Add(time.Hour))

	if len(order.ActionLog) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(order.ActionLog))
	}
	if order.ActionLog[0].Action != domain.ActionShip || order.ActionLog[0].Actor != domain.ActorMerchant {
		t.Fatalf("unexpected first entry: %+v", order.ActionLog[0])
	}
	if order.ActionLog[1].Action != domain.ActionConfirmReceipt {
		t.Fatalf("unexpected second entry: %+v", order.ActionLog[1])
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []domain.OrderStatus{
		domain.OrderStatusCompleted,
		domain.OrderStatusCancelled,
		domain.OrderStatusRefunded,
	}
	for _, status := range terminal {
		if !status.Terminal() {
			t.Fatalf("%s must be terminal", status)
		}
	}

	active := []domain.OrderStatus{
		domain.OrderStatusPendingPayment,
		domain.OrderStatusPaid,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusRefundRequested,
	}
	for _, status := range active {
		if status.Terminal() {
			t.Fatalf("%s must not be terminal", status)
		}
	}
}
