package models

// Vehicle is the vehicle profile the maintenance scheduler needs.
// The full vehicle record is owned by the host application.
type Vehicle struct {
	ID                   string   `json:"id" bson:"_id"`
	Name                 string   `json:"name" bson:"name"`
	GrossVehicleWeightKg float64  `json:"gross_vehicle_weight_kg" bson:"gross_vehicle_weight_kg"`
	AnnualDistanceKm     *float64 `json:"annual_distance_km,omitempty" bson:"annual_distance_km,omitempty"` // nil when unknown
}
