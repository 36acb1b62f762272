package domain

// Computer is a lab inventory record. The ticket workflow only reads it.
type Computer struct {
	ID           int64
	IPAddress    string
	ComputerName *string
	LabName      *string
	Location     *string
	IsActive     bool
}
