package bus

import "testing"

func TestPublishDeliversFIFO(t *testing.T) {
	b := New()

	var order []int
	b.Subscribe(func(e ServiceEvent) { order = append(order, 1) })
	b.Subscribe(func(e ServiceEvent) { order = append(order, 2) })
	b.Subscribe(func(e ServiceEvent) { order = append(order, 3) })

	b.Publish(ServiceEvent{Source: ServiceGNSS, Type: EventLogUpdated})

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("want %v got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("want %v got %v", want, order)
			break
		}
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	calls := 0
	id := b.Subscribe(func(e ServiceEvent) { calls++ })

	b.Unsubscribe(id)
	b.Unsubscribe(id) // must not panic or error

	b.Publish(ServiceEvent{Source: ServiceGNSS, Type: EventLogUpdated})

	if calls != 0 {
		t.Errorf("want 0 calls after unsubscribe, got %d", calls)
	}
}

func TestResubscribeInsideCallbackTakesEffectNextEvent(t *testing.T) {
	b := New()
	var secondCalls int

	var firstID uint64
	firstID = b.Subscribe(func(e ServiceEvent) {
		b.Unsubscribe(firstID)
		b.Subscribe(func(e ServiceEvent) { secondCalls++ })
	})

	b.Publish(ServiceEvent{Source: ServiceGNSS, Type: EventActive})
	if secondCalls != 0 {
		t.Fatalf("resubscription should not receive the event that triggered it, got %d calls", secondCalls)
	}

	b.Publish(ServiceEvent{Source: ServiceGNSS, Type: EventActive})
	if secondCalls != 1 {
		t.Fatalf("want 1 call after second publish, got %d", secondCalls)
	}
}

func TestServiceIdentifierString(t *testing.T) {
	cases := map[ServiceIdentifier]string{
		ServiceGNSS:     "GNSS",
		ServiceArgosTX:  "ARGOS_TX",
		ServiceArgosRX:  "ARGOS_RX",
		ServiceUWDetect: "UW_DETECT",
	}
	for id, want := range cases {
		if got := id.String(); got != want {
			t.Errorf("ServiceIdentifier(%d).String() = %q, want %q", id, got, want)
		}
	}
}
