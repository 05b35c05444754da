package database

import (
	"reflect"
	"testing"

	"github.com/redchat-cluster/wire"
)

func chatAt(date int64) *wire.ChatMsg {
	return &wire.ChatMsg{From: "1", Date: date, Message: "m", RoomID: "0"}
}

func TestMemMessageLog_Ordering(t *testing.T) {
	log := NewMemMessageLog()

	// appended out of order; an earlier timestamp lands in its sorted
	// position instead of being rejected
	for _, date := range []int64{10, 30, 20} {
		if err := log.Append("0", chatAt(date)); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := log.Recent("0", 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	dates := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		dates = append(dates, m.Date)
	}
	if !reflect.DeepEqual(dates, []int64{30, 20, 10}) {
		t.Errorf("Recent() dates = %v, want [30 20 10]", dates)
	}
}

func TestMemMessageLog_RoundTrip(t *testing.T) {
	log := NewMemMessageLog()
	msg := &wire.ChatMsg{From: "1", Date: 100, Message: "hi", RoomID: "1:2"}
	if err := log.Append("1:2", msg); err != nil {
		t.Fatal(err)
	}

	msgs, err := log.Recent("1:2", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || !reflect.DeepEqual(msgs[0], msg) {
		t.Errorf("Recent() = %v, want [%v]", msgs, msg)
	}

	has, _ := log.HasMessages("1:2")
	if !has {
		t.Error("HasMessages() = false, want true")
	}
}

func TestMemMessageLog_EmptyRoom(t *testing.T) {
	log := NewMemMessageLog()

	// an unknown room yields an empty sequence, not an error
	msgs, err := log.Recent("missing", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("Recent() = %v, want empty", msgs)
	}

	has, err := log.HasMessages("missing")
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Error("HasMessages() = true, want false")
	}
}

func TestMemMessageLog_OffsetLimit(t *testing.T) {
	log := NewMemMessageLog()
	for date := int64(1); date <= 5; date++ {
		log.Append("0", chatAt(date))
	}

	tests := []struct {
		name   string
		offset int64
		limit  int64
		want   []int64
	}{
		{"first page", 0, 2, []int64{5, 4}},
		{"second page", 2, 2, []int64{3, 2}},
		{"tail", 4, 2, []int64{1}},
		{"past the end", 10, 2, []int64{}},
		{"zero limit", 0, 0, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := log.Recent("0", tt.offset, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			dates := make([]int64, 0, len(msgs))
			for _, m := range msgs {
				dates = append(dates, m.Date)
			}
			if len(dates) != len(tt.want) {
				t.Errorf("Recent() dates = %v, want %v", dates, tt.want)
				return
			}
			for i := range dates {
				if dates[i] != tt.want[i] {
					t.Errorf("Recent() dates = %v, want %v", dates, tt.want)
					return
				}
			}
		})
	}
}

func TestMemMessageLog_NoDedup(t *testing.T) {
	log := NewMemMessageLog()

	// the same text sent twice is two entries, not one
	log.Append("0", chatAt(50))
	log.Append("0", chatAt(51))

	msgs, _ := log.Recent("0", 0, 10)
	if len(msgs) != 2 {
		t.Errorf("Recent() = %v entries, want 2 (no deduplication)", len(msgs))
	}
}
