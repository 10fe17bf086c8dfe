package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPaid, OrderStatusShipped},
		{OrderStatusPaid, OrderStatusCanceled},
		{OrderStatusPaid, OrderStatusRefunded},
		{OrderStatusShipped, OrderStatusDelivered},
		{OrderStatusShipped, OrderStatusRefunded},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to OrderStatus }{
		{OrderStatusShipped, OrderStatusCanceled},
		{OrderStatusDelivered, OrderStatusRefunded},
		{OrderStatusCanceled, OrderStatusPaid},
		{OrderStatusRefunded, OrderStatusShipped},
		{OrderStatusPaid, OrderStatusDelivered},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestOrderStatusTerminalStates(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusDelivered, OrderStatusCanceled, OrderStatusRefunded} {
		if !status.IsTerminal() {
			t.Errorf("%s should be terminal", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusPaid, OrderStatusShipped} {
		if status.IsTerminal() {
			t.Errorf("%s should not be terminal", status)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("shipped")
	if err != nil {
		t.Fatalf("ParseOrderStatus: %v", err)
	}
	if status != OrderStatusShipped {
		t.Fatalf("unexpected status %s", status)
	}
	if _, err := ParseOrderStatus("in_transit"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
