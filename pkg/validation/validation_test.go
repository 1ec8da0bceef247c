package validation

import (
	"errors"
	"strings"
	"testing"

	"nailbook/pkg/logger"
)

type sample struct {
	Date  string   `validate:"required,slot_date"`
	Time  string   `validate:"required,slot_time"`
	Times []string `validate:"omitempty,dive,slot_time"`
	Kind  string   `validate:"omitempty,oneof=a b"`
}

func validSample() *sample {
	return &sample{Date: "2025-03-10", Time: "08:00"}
}

func TestStruct(t *testing.T) {
	v := New(logger.New(logger.Config{Level: "info", Format: logger.JSON, Service: "test"}))

	tests := []struct {
		name      string
		mutate    func(s *sample)
		wantField string
		wantMsg   string
	}{
		{name: "valid", mutate: func(s *sample) {}},
		{name: "missing date", mutate: func(s *sample) { s.Date = "" }, wantField: "Date", wantMsg: "is required"},
		{name: "not a calendar day", mutate: func(s *sample) { s.Date = "2025-02-30" }, wantField: "Date", wantMsg: "YYYY-MM-DD"},
		{name: "unpadded date", mutate: func(s *sample) { s.Date = "2025-3-10" }, wantField: "Date", wantMsg: "YYYY-MM-DD"},
		{name: "bad time", mutate: func(s *sample) { s.Time = "8:00" }, wantField: "Time", wantMsg: "HH:MM"},
		{name: "hour out of range", mutate: func(s *sample) { s.Time = "24:00" }, wantField: "Time", wantMsg: "HH:MM"},
		{name: "bad time in list", mutate: func(s *sample) { s.Times = []string{"08:00", "9"} }, wantField: "Times[1]", wantMsg: "HH:MM"},
		{name: "oneof", mutate: func(s *sample) { s.Kind = "c" }, wantField: "Kind", wantMsg: "one of: a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSample()
			tt.mutate(s)
			err := Struct(v, s)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T (%v)", err, err)
			}
			if len(verrs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(verrs), verrs)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.wantField)
			}
			if !strings.Contains(verrs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", verrs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestValidationErrors_Fields(t *testing.T) {
	errs := ValidationErrors{{Field: "Date", Message: "bad"}, {Field: "Time", Message: "worse"}}
	fields := errs.Fields()
	if fields["Date"] != "bad" || fields["Time"] != "worse" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if !strings.Contains(errs.Error(), "2 error(s)") {
		t.Errorf("unexpected message: %s", errs.Error())
	}
	if ValidationErrors(nil).Error() != "" {
		t.Error("empty errors should render as empty string")
	}
}
