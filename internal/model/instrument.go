package model

import "time"

// Instrument is a piece of laboratory equipment tracked by the inventory.
type Instrument struct {
	ID int64 `json:"id"`
	InstrumentFields
	PhotoPath    string    `json:"photo_path,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// InstrumentFields holds the user-editable attributes of an instrument.
type InstrumentFields struct {
	Group           string `json:"group"`
	Responsible     string `json:"responsible"`
	Researcher      string `json:"researcher" validate:"notblank"`
	Name            string `json:"name" validate:"notblank"`
	InventoryNumber string `json:"inventory_number"`
	UsagePolicy     string `json:"usage_policy" validate:"usage_policy"`
	Status          string `json:"status" validate:"instrument_status"`
	Location        string `json:"location"`
	Description     string `json:"description"`
}

// Usage policies. The values are the literals stored in reserva_uso.
const (
	UsageFree       = "Libre"
	UsageReservable = "Con reserva"
	UsageRestricted = "Uso restringido"
)

// Instrument statuses, as stored in instruments.estado.
const (
	StatusOperational    = "Operativo"
	StatusInRepair       = "En reparación"
	StatusOutOfService   = "Fuera de servicio"
	StatusDecommissioned = "De baja"
)

// UsagePolicies lists the accepted usage policies in display order.
var UsagePolicies = []string{UsageFree, UsageReservable, UsageRestricted}

// InstrumentStatuses lists the accepted instrument statuses in display order.
var InstrumentStatuses = []string{StatusOperational, StatusInRepair, StatusOutOfService, StatusDecommissioned}

// Normalize fills the defaults a new instrument form starts with.
func (f *InstrumentFields) Normalize() {
	if f.UsagePolicy == "" {
		f.UsagePolicy = UsageReservable
	}
	if f.Status == "" {
		f.Status = StatusOperational
	}
}

// Validate checks required fields and enum values.
func (f InstrumentFields) Validate() error {
	return validateStruct(f)
}

// InstrumentFilter narrows an instrument listing. Each non-empty field must be
// contained in the matching column; all given fields must match.
type InstrumentFilter struct {
	Group      string
	Researcher string
	Name       string
}
