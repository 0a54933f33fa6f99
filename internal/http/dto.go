package http

import (
	"time"

	"garage/internal/core"
)

// Request bodies use pointer fields so a missing key leaves the stored
// value alone on PATCH. Costs travel as dollars in JSON and as cents
// internally.

type vehicleRequest struct {
	Nickname       *string  `json:"nickname"`
	Make           *string  `json:"make"`
	Model          *string  `json:"model"`
	Trim           *string  `json:"trim"`
	Year           *int     `json:"year"`
	VIN            *string  `json:"vin"`
	LicensePlate   *string  `json:"license_plate"`
	CurrentMileage *float64 `json:"current_mileage"`
}

func (req vehicleRequest) toVehicle() core.Vehicle {
	v := core.Vehicle{}
	if req.Nickname != nil {
		v.Nickname = *req.Nickname
	}
	if req.Make != nil {
		v.Make = *req.Make
	}
	if req.Model != nil {
		v.Model = *req.Model
	}
	if req.Trim != nil {
		v.Trim = *req.Trim
	}
	if req.Year != nil {
		v.Year = *req.Year
	}
	if req.VIN != nil {
		v.VIN = *req.VIN
	}
	if req.LicensePlate != nil {
		v.LicensePlate = *req.LicensePlate
	}
	v.CurrentMileage = req.CurrentMileage
	return v
}

func (req vehicleRequest) toPatch() core.VehiclePatch {
	return core.VehiclePatch{
		Nickname:       req.Nickname,
		Make:           req.Make,
		Model:          req.Model,
		Trim:           req.Trim,
		Year:           req.Year,
		VIN:            req.VIN,
		LicensePlate:   req.LicensePlate,
		CurrentMileage: req.CurrentMileage,
	}
}

type maintenanceRequest struct {
	Type     *string  `json:"type"`
	Date     *string  `json:"date"`
	Mileage  *float64 `json:"mileage"`
	Cost     *float64 `json:"cost"`
	ShopName *string  `json:"shop_name"`
	Notes    *string  `json:"notes"`
}

func (req maintenanceRequest) toMaintenance(vehicleID int64) (core.Maintenance, error) {
	m := core.Maintenance{VehicleID: vehicleID}
	if req.Type != nil {
		m.Type = *req.Type
	}
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return core.Maintenance{}, err
		}
		m.Date = d
	}
	m.Mileage = req.Mileage
	m.Cost = moneyFromDollars(req.Cost)
	if req.ShopName != nil {
		m.ShopName = *req.ShopName
	}
	if req.Notes != nil {
		m.Notes = *req.Notes
	}
	return m, nil
}

func (req maintenanceRequest) toPatch() (core.MaintenancePatch, error) {
	p := core.MaintenancePatch{
		Type:     req.Type,
		Mileage:  req.Mileage,
		Cost:     moneyFromDollars(req.Cost),
		ShopName: req.ShopName,
		Notes:    req.Notes,
	}
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return core.MaintenancePatch{}, err
		}
		p.Date = &d
	}
	return p, nil
}

type modRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Date        *string  `json:"date"`
	Cost        *float64 `json:"cost"`
	PartsList   *string  `json:"parts_list"`
}

func (req modRequest) toMod(vehicleID int64) (core.Mod, error) {
	m := core.Mod{VehicleID: vehicleID}
	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return core.Mod{}, err
		}
		m.Date = d
	}
	m.Cost = moneyFromDollars(req.Cost)
	if req.PartsList != nil {
		m.PartsList = *req.PartsList
	}
	return m, nil
}

func (req modRequest) toPatch() (core.ModPatch, error) {
	p := core.ModPatch{
		Name:        req.Name,
		Description: req.Description,
		Cost:        moneyFromDollars(req.Cost),
		PartsList:   req.PartsList,
	}
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return core.ModPatch{}, err
		}
		p.Date = &d
	}
	return p, nil
}

func moneyFromDollars(d *float64) *core.Money {
	if d == nil {
		return nil
	}
	return &core.Money{Cents: core.CentsFromDollars(*d)}
}

func dollarsFromMoney(m *core.Money) *float64 {
	if m == nil {
		return nil
	}
	d := m.Dollars()
	return &d
}

// Responses

type vehicleResponse struct {
	ID             int64    `json:"id"`
	Nickname       string   `json:"nickname,omitempty"`
	Make           string   `json:"make"`
	Model          string   `json:"model"`
	Trim           string   `json:"trim,omitempty"`
	Year           int      `json:"year"`
	VIN            string   `json:"vin,omitempty"`
	LicensePlate   string   `json:"license_plate,omitempty"`
	CurrentMileage *float64 `json:"current_mileage"`
	PhotoPath      string   `json:"photo_path,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

func toVehicleResponse(v core.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:             v.ID,
		Nickname:       v.Nickname,
		Make:           v.Make,
		Model:          v.Model,
		Trim:           v.Trim,
		Year:           v.Year,
		VIN:            v.VIN,
		LicensePlate:   v.LicensePlate,
		CurrentMileage: v.CurrentMileage,
		PhotoPath:      v.PhotoPath,
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      v.UpdatedAt.Format(time.RFC3339),
	}
}

type maintenanceResponse struct {
	ID          int64    `json:"id"`
	VehicleID   int64    `json:"vehicle_id"`
	Type        string   `json:"type"`
	Date        string   `json:"date"`
	Mileage     *float64 `json:"mileage"`
	Cost        *float64 `json:"cost"`
	ShopName    string   `json:"shop_name,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	ReceiptPath string   `json:"receipt_path,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func toMaintenanceResponse(m core.Maintenance) maintenanceResponse {
	return maintenanceResponse{
		ID:          m.ID,
		VehicleID:   m.VehicleID,
		Type:        m.Type,
		Date:        m.Date.String(),
		Mileage:     m.Mileage,
		Cost:        dollarsFromMoney(m.Cost),
		ShopName:    m.ShopName,
		Notes:       m.Notes,
		ReceiptPath: m.ReceiptPath,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}

type modResponse struct {
	ID          int64    `json:"id"`
	VehicleID   int64    `json:"vehicle_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Date        string   `json:"date"`
	Cost        *float64 `json:"cost"`
	PartsList   string   `json:"parts_list,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func toModResponse(m core.Mod) modResponse {
	return modResponse{
		ID:          m.ID,
		VehicleID:   m.VehicleID,
		Name:        m.Name,
		Description: m.Description,
		Date:        m.Date.String(),
		Cost:        dollarsFromMoney(m.Cost),
		PartsList:   m.PartsList,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}

type maintenanceTotals struct {
	TotalCost             float64 `json:"total_cost"`
	TotalServices         int64   `json:"total_services"`
	AverageCostPerService float64 `json:"average_cost_per_service"`
}

type modTotals struct {
	TotalCost         float64 `json:"total_cost"`
	TotalCount        int64   `json:"total_count"`
	AverageCostPerMod float64 `json:"average_cost_per_mod"`
}

type vehicleStatsResponse struct {
	VehicleID              int64   `json:"vehicle_id"`
	Nickname               string  `json:"nickname,omitempty"`
	Make                   string  `json:"make"`
	Model                  string  `json:"model"`
	Year                   int     `json:"year"`
	MaintenanceCount       int64   `json:"maintenance_service_count"`
	MaintenanceTotalCost   float64 `json:"maintenance_total_cost"`
	MaintenanceAverageCost float64 `json:"maintenance_average_cost"`
	ModsCount              int64   `json:"mods_count"`
	ModsTotalCost          float64 `json:"mods_total_cost"`
	ModsAverageCost        float64 `json:"mods_average_cost"`
}

type dashboardResponse struct {
	Year        int                    `json:"year"`
	AllTime     bool                   `json:"all_time"`
	Maintenance maintenanceTotals      `json:"maintenance"`
	Mods        modTotals              `json:"mods"`
	ByVehicle   []vehicleStatsResponse `json:"by_vehicle"`
}

func toDashboardResponse(stats core.DashboardStats) dashboardResponse {
	resp := dashboardResponse{
		Year:    stats.Period.Year,
		AllTime: stats.Period.AllTime,
		Maintenance: maintenanceTotals{
			TotalCost:             stats.Maintenance.TotalDollars(),
			TotalServices:         stats.Maintenance.Count,
			AverageCostPerService: stats.Maintenance.AverageDollars(),
		},
		Mods: modTotals{
			TotalCost:         stats.Mods.TotalDollars(),
			TotalCount:        stats.Mods.Count,
			AverageCostPerMod: stats.Mods.AverageDollars(),
		},
		ByVehicle: make([]vehicleStatsResponse, 0, len(stats.ByVehicle)),
	}

	for _, vs := range stats.ByVehicle {
		resp.ByVehicle = append(resp.ByVehicle, vehicleStatsResponse{
			VehicleID:              vs.Vehicle.ID,
			Nickname:               vs.Vehicle.Nickname,
			Make:                   vs.Vehicle.Make,
			Model:                  vs.Vehicle.Model,
			Year:                   vs.Vehicle.Year,
			MaintenanceCount:       vs.Maintenance.Count,
			MaintenanceTotalCost:   vs.Maintenance.TotalDollars(),
			MaintenanceAverageCost: vs.Maintenance.AverageDollars(),
			ModsCount:              vs.Mods.Count,
			ModsTotalCost:          vs.Mods.TotalDollars(),
			ModsAverageCost:        vs.Mods.AverageDollars(),
		})
	}

	return resp
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
