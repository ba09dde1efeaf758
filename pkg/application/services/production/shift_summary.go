package production

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/lotcom/pkg/application/dto"
	"github.com/vsinha/lotcom/pkg/domain/entities"
)

var hundred = decimal.NewFromInt(100)

// SummarizeShifts splits a basket's quantity across the shifts that filled it.
// Percentages are rounded to two places; an empty basket reports zero for every shift.
func SummarizeShifts(event *entities.UnitEvent) dto.ShiftSummary {
	sets := event.PartialDataSets()

	total := 0
	for _, set := range sets {
		total += set.Quantity.Value()
	}

	summary := dto.ShiftSummary{
		EventID: event.ID,
		Total:   total,
		Shifts:  make([]dto.ShiftShare, 0, len(sets)),
	}
	for _, set := range sets {
		percent := decimal.Zero
		if total > 0 {
			percent = decimal.NewFromInt(int64(set.Quantity.Value())).
				Mul(hundred).
				Div(decimal.NewFromInt(int64(total))).
				Round(2)
		}
		summary.Shifts = append(summary.Shifts, dto.ShiftShare{
			Shift:    set.Shift.String(),
			Operator: set.Operator.Initials(),
			Quantity: set.Quantity.Value(),
			Percent:  percent,
		})
	}
	return summary
}
