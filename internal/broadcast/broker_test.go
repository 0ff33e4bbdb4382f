package broadcast

import "testing"

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("m1")
	other := b.Subscribe("m2")

	b.Publish("m1", []byte(`{"event":"x"}`))

	select {
	case got := <-ch:
		if string(got) != `{"event":"x"}` {
			t.Fatalf("got %s", got)
		}
	default:
		t.Fatal("subscriber received nothing")
	}
	select {
	case got := <-other:
		t.Fatalf("other match received %s", got)
	default:
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("m1")
	if n := b.Subscribers("m1"); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	b.Unsubscribe("m1", ch)
	b.Publish("m1", []byte("x"))

	if n := b.Subscribers("m1"); n != 0 {
		t.Fatalf("subscribers = %d, want 0", n)
	}
	if len(ch) != 0 {
		t.Fatal("unsubscribed channel received a message")
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("m1")

	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish("m1", []byte("x"))
	}

	if len(ch) != subscriberBuffer {
		t.Fatalf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}
