package model

import "time"

const (
	BlockScopeSingle = "single"
	BlockScopeRange  = "range"
	BlockScopeMonth  = "month"
)

type BlockedDate struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty"`
	StartDate string    `json:"start_date" bson:"start_date" validate:"required,slot_date"`
	EndDate   string    `json:"end_date" bson:"end_date" validate:"required,slot_date"`
	Scope     string    `json:"scope" bson:"scope" validate:"required,oneof=single range month"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty" validate:"omitempty,max=200"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func (b *BlockedDate) Contains(date string) bool {
	return b.StartDate <= date && date <= b.EndDate
}

// BlockedDateRequest accepts exactly one of a single date, an inclusive
// range or a calendar month (YYYY-MM).
type BlockedDateRequest struct {
	Date      string `json:"date,omitempty" validate:"omitempty,slot_date"`
	StartDate string `json:"start_date,omitempty" validate:"required_with=EndDate,omitempty,slot_date"`
	EndDate   string `json:"end_date,omitempty" validate:"required_with=StartDate,omitempty,slot_date"`
	Month     string `json:"month,omitempty" validate:"omitempty,datetime=2006-01"`
	Reason    string `json:"reason,omitempty" validate:"omitempty,max=200"`
}

// MonthRange returns the first and last day of a YYYY-MM month.
func MonthRange(month string) (string, string, error) {
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return "", "", err
	}
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout), nil
}
