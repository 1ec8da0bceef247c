package availability

import (
	"testing"

	"nailbook/internal/scheduling/overlay"
	"nailbook/internal/scheduling/timegrid"
	"nailbook/pkg/model"
)

func slot(id, resource, date, tm, status string) *model.Slot {
	return &model.Slot{ID: id, ResourceID: resource, Date: date, Time: tm, Status: status, SlotType: model.SlotTypeRegular}
}

func ids(slots []*model.Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilter(t *testing.T) {
	calc := NewCalculator(timegrid.MustParse("08:00,10:30,13:00,15:30"))

	hidden := slot("hidden", "r1", "2025-03-10", "13:00", model.SlotStatusAvailable)
	hidden.IsHidden = true

	slots := []*model.Slot{
		slot("past", "r1", "2025-03-09", "08:00", model.SlotStatusAvailable),
		slot("d1-1530", "r1", "2025-03-10", "15:30", model.SlotStatusAvailable),
		slot("d1-0800", "r1", "2025-03-10", "08:00", model.SlotStatusAvailable),
		slot("pending", "r1", "2025-03-10", "10:30", model.SlotStatusPending),
		hidden,
		slot("other-res", "r2", "2025-03-10", "08:00", model.SlotStatusAvailable),
		slot("blocked-day", "r1", "2025-03-11", "08:00", model.SlotStatusAvailable),
		slot("d3-1030", "r1", "2025-03-12", "10:30", model.SlotStatusAvailable),
	}
	blocked := overlay.New([]*model.BlockedDate{{StartDate: "2025-03-11", EndDate: "2025-03-11"}})

	r1 := "r1"
	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "resource filter",
			query: Query{ResourceID: &r1, FromDate: "2025-03-10"},
			want:  []string{"d1-0800", "d1-1530", "d3-1030"},
		},
		{
			name:  "all resources",
			query: Query{FromDate: "2025-03-10"},
			want:  []string{"d1-0800", "other-res", "d1-1530", "d3-1030"},
		},
		{
			name:  "later from date",
			query: Query{FromDate: "2025-03-12"},
			want:  []string{"d3-1030"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(calc.Filter(slots, tt.query, blocked))
			if !equal(got, tt.want) {
				t.Errorf("Filter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_EmptyResourceMatchesSingleResourceSlots(t *testing.T) {
	calc := NewCalculator(timegrid.MustParse("08:00,10:30"))
	empty := ""
	slots := []*model.Slot{
		slot("shared", "", "2025-03-10", "08:00", model.SlotStatusAvailable),
		slot("named", "r1", "2025-03-10", "10:30", model.SlotStatusAvailable),
	}

	got := ids(calc.Filter(slots, Query{ResourceID: &empty, FromDate: "2025-03-10"}, nil))
	if !equal(got, []string{"shared"}) {
		t.Errorf("Filter() = %v, want [shared]", got)
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	calc := NewCalculator(timegrid.MustParse("08:00,10:30"))
	slots := []*model.Slot{
		slot("b", "r1", "2025-03-10", "10:30", model.SlotStatusAvailable),
		slot("a", "r1", "2025-03-10", "08:00", model.SlotStatusAvailable),
	}

	calc.Filter(slots, Query{FromDate: "2025-03-01"}, overlay.Empty())
	if slots[0].ID != "b" {
		t.Errorf("input order changed")
	}
}
