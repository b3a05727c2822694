package models

type ServiceType struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:varchar(300)" json:"description"`
}

// DefaultServiceTypes seeds the static reference data on first boot.
var DefaultServiceTypes = []ServiceType{
	{Name: "Oil Change & Fluids"},
	{Name: "Engine & Diagnostics"},
	{Name: "Battery & Electrical"},
	{Name: "Brakes"},
	{Name: "Tires & Wheels"},
	{Name: "Transmission & Drivetrain"},
	{Name: "Suspension & Steering"},
	{Name: "Heating & AC (HVAC)"},
	{Name: "Exhaust & Emissions"},
	{Name: "Towing & Recovery"},
	{Name: "Roadside Assistance"},
	{Name: "Car Wash"},
	{Name: "Detailing (Interior / Exterior)"},
}
