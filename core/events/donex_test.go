package events

import (
	"testing"

	"donex/core/types"
)

func TestDonationEventAttributes(t *testing.T) {
	evt := Donation{Donor: "donor", Recipient: "admin1", Owner: "owner", Denom: "ucmst", Gross: "100", Net: "95", Fee: "5", Height: 3}.Event()
	if evt.Type != TypeDonation {
		t.Fatalf("unexpected type %q", evt.Type)
	}
	want := map[string]string{"donor": "donor", "recipient": "admin1", "owner": "owner", "denom": "ucmst", "gross": "100", "net": "95", "fee": "5", "height": "3"}
	for k, v := range want {
		if evt.Attributes[k] != v {
			t.Fatalf("attribute %s: want %q got %q", k, v, evt.Attributes[k])
		}
	}
}

func TestFanoutDeliversInOrder(t *testing.T) {
	var order []string
	first := EmitterFunc(func(e Event) { order = append(order, "first:"+e.EventType()) })
	second := EmitterFunc(func(e Event) { order = append(order, "second:"+e.EventType()) })
	fanout := NewFanout(first, nil, second)
	fanout.Emit(SocialLinked{Address: "abc", Platform: "twitter", ProfileID: "123"})
	fanout.Emit(nil)

	if len(order) != 2 || order[0] != "first:"+TypeSocialLinked || order[1] != "second:"+TypeSocialLinked {
		t.Fatalf("unexpected delivery order %v", order)
	}
}

func TestGenericConversion(t *testing.T) {
	typed := Generic(Transfer{From: "a", To: "b", Denom: "ucmst", Amount: "7"})
	if typed.Type != TypeTransfer || typed.Attr("amount") != "7" {
		t.Fatalf("unexpected generic event %+v", typed)
	}
	raw := &types.Event{Type: "custom", Attributes: map[string]string{"k": "v"}}
	if Generic(raw) != raw {
		t.Fatalf("expected generic passthrough")
	}
}
