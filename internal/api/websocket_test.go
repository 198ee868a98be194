package api

import "testing"

func TestClientSubscribeUnsubscribe(t *testing.T) {
	c := &Client{subscriptions: make(map[string]bool)}

	if c.IsSubscribed("trades:market-1") {
		t.Fatal("expected no subscriptions initially")
	}

	c.Subscribe("trades:market-1")
	if !c.IsSubscribed("trades:market-1") {
		t.Error("expected client to be subscribed after Subscribe")
	}
	if c.IsSubscribed("trades:market-2") {
		t.Error("client should not be subscribed to an unrelated channel")
	}

	c.Unsubscribe("trades:market-1")
	if c.IsSubscribed("trades:market-1") {
		t.Error("expected client to be unsubscribed after Unsubscribe")
	}
}

func TestHubBroadcastOnlyReachesSubscribedClients(t *testing.T) {
	hub := NewHub(nil)
	subscribed := &Client{hub: hub, subscriptions: map[string]bool{"trades:m1": true}, send: make(chan []byte, 1)}
	unsubscribed := &Client{hub: hub, subscriptions: map[string]bool{}, send: make(chan []byte, 1)}
	hub.clients[subscribed] = true
	hub.clients[unsubscribed] = true

	hub.BroadcastToChannel("trades:m1", map[string]string{"price": "10"})

	select {
	case <-subscribed.send:
	default:
		t.Error("expected subscribed client to receive broadcast")
	}
	select {
	case <-unsubscribed.send:
		t.Error("expected unsubscribed client to not receive broadcast")
	default:
	}
}
