package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar date. Any time-of-day carried by the underlying
	// time.Time is ignored for comparisons and formatting.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Vehicle struct {
		ID             int64
		Nickname       string
		Make           string
		Model          string
		Trim           string
		Year           int
		VIN            string
		LicensePlate   string
		CurrentMileage *float64
		PhotoPath      string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	Maintenance struct {
		ID          int64
		VehicleID   int64
		Type        string
		Date        Date
		Mileage     *float64
		Cost        *Money
		ShopName    string
		Notes       string
		ReceiptPath string
		CreatedAt   time.Time
	}

	Mod struct {
		ID          int64
		VehicleID   int64
		Name        string
		Description string
		Date        Date
		Cost        *Money
		PartsList   string
		CreatedAt   time.Time
	}

	User struct {
		ID             int64
		Username       string
		HashedPassword string
		CreatedAt      time.Time
	}
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyMake     = errors.New("empty make")
	ErrEmptyModel    = errors.New("empty model")
	ErrEmptyType     = errors.New("empty maintenance type")
	ErrEmptyName     = errors.New("empty mod name")
)

// dateLayouts are accepted on input; anything beyond the calendar date is
// truncated away.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date. Datetime strings are accepted and
// truncated to their date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}.Truncate(), nil
		}
	}
	return Date{}, ErrInvalidDate
}

// Truncate drops any time-of-day component.
func (d Date) Truncate() Date {
	y, m, day := d.Date()
	return Date{Time: time.Date(y, m, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Year returns the calendar year of the date.
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// validYear reports whether y is a plausible 4-digit vehicle year.
func validYear(y int) bool {
	return y >= 1000 && y <= 9999
}

func (v Vehicle) Validate() error {
	if strings.TrimSpace(v.Make) == "" {
		return ErrEmptyMake
	}
	if strings.TrimSpace(v.Model) == "" {
		return ErrEmptyModel
	}
	if !validYear(v.Year) {
		return ErrInvalidYear
	}
	return nil
}

func (m Maintenance) Validate() error {
	if strings.TrimSpace(m.Type) == "" {
		return ErrEmptyType
	}
	if err := m.Date.Validate(); err != nil {
		return err
	}
	return nil
}

func (m Mod) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if err := m.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// Patch structs carry the fields of a partial update. A nil field leaves
// the stored value untouched; Apply merges field by field and validates
// the result.
type (
	VehiclePatch struct {
		Nickname       *string
		Make           *string
		Model          *string
		Trim           *string
		Year           *int
		VIN            *string
		LicensePlate   *string
		CurrentMileage *float64
	}

	MaintenancePatch struct {
		Type     *string
		Date     *Date
		Mileage  *float64
		Cost     *Money
		ShopName *string
		Notes    *string
	}

	ModPatch struct {
		Name        *string
		Description *string
		Date        *Date
		Cost        *Money
		PartsList   *string
	}
)

func (p VehiclePatch) Apply(v *Vehicle) error {
	if p.Nickname != nil {
		v.Nickname = *p.Nickname
	}
	if p.Make != nil {
		v.Make = *p.Make
	}
	if p.Model != nil {
		v.Model = *p.Model
	}
	if p.Trim != nil {
		v.Trim = *p.Trim
	}
	if p.Year != nil {
		v.Year = *p.Year
	}
	if p.VIN != nil {
		v.VIN = *p.VIN
	}
	if p.LicensePlate != nil {
		v.LicensePlate = *p.LicensePlate
	}
	if p.CurrentMileage != nil {
		v.CurrentMileage = p.CurrentMileage
	}
	return v.Validate()
}

func (p MaintenancePatch) Apply(m *Maintenance) error {
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Date != nil {
		m.Date = p.Date.Truncate()
	}
	if p.Mileage != nil {
		m.Mileage = p.Mileage
	}
	if p.Cost != nil {
		m.Cost = p.Cost
	}
	if p.ShopName != nil {
		m.ShopName = *p.ShopName
	}
	if p.Notes != nil {
		m.Notes = *p.Notes
	}
	return m.Validate()
}

func (p ModPatch) Apply(m *Mod) error {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Date != nil {
		m.Date = p.Date.Truncate()
	}
	if p.Cost != nil {
		m.Cost = p.Cost
	}
	if p.PartsList != nil {
		m.PartsList = *p.PartsList
	}
	return m.Validate()
}
