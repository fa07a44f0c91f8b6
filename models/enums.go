package models

import "errors"

type RecordStatus string

const (
	RecordStatusPending RecordStatus = "Pending"
	RecordStatusPartial RecordStatus = "Partial"
	RecordStatusPaid    RecordStatus = "Paid"
	RecordStatusOverdue RecordStatus = "Overdue"
)

// IsOpen reports whether the item still carries an outstanding balance.
// Paid items are settled and never age.
func (s RecordStatus) IsOpen() bool {
	return s == RecordStatusPending || s == RecordStatusPartial || s == RecordStatusOverdue
}

func (s *RecordStatus) Parse(str string) error {
	switch str {
	case "Pending":
		*s = RecordStatusPending
	case "Partial":
		*s = RecordStatusPartial
	case "Paid":
		*s = RecordStatusPaid
	case "Overdue":
		*s = RecordStatusOverdue
	default:
		return errors.New("invalid record status")
	}
	return nil
}

type FlowDirection string

const (
	FlowDirectionInflow  FlowDirection = "Inflow"
	FlowDirectionOutflow FlowDirection = "Outflow"
)

func (d *FlowDirection) Parse(str string) error {
	switch str {
	case "Inflow":
		*d = FlowDirectionInflow
	case "Outflow":
		*d = FlowDirectionOutflow
	default:
		return errors.New("invalid flow direction")
	}
	return nil
}
