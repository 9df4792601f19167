package bridge

import (
	"encoding/json"
	"testing"

	"github.com/luxgrid/dalinet/dali"
)

func TestGestureTopic(t *testing.T) {
	tests := []struct {
		name string
		key  dali.ButtonKey
		want string
	}{
		{"short address", dali.ButtonKey{Kind: dali.AddressShort, Address: 5, Instance: 2}, "dalinet/gesture/short/5/2"},
		{"group address", dali.ButtonKey{Kind: dali.AddressGroup, Address: 3, Instance: 0}, "dalinet/gesture/group/3/0"},
		{"broadcast", dali.ButtonKey{Kind: dali.AddressBroadcast}, "dalinet/gesture/broadcast/0/0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GestureTopic("dalinet", tt.key); got != tt.want {
				t.Errorf("GestureTopic() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventTopic(t *testing.T) {
	got := EventTopic("home/dali", dali.TypeSpecialEvent)
	if got != "home/dali/event/special-event" {
		t.Errorf("EventTopic() = %q", got)
	}
}

func TestStatusPayload(t *testing.T) {
	var decoded map[string]string
	if err := json.Unmarshal(statusPayload("bus-1", true), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["status"] != "online" || decoded["client_id"] != "bus-1" {
		t.Errorf("payload = %v", decoded)
	}
	if err := json.Unmarshal(statusPayload("bus-1", false), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["status"] != "offline" {
		t.Errorf("payload = %v", decoded)
	}
}
