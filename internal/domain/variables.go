package domain

// Canonical variable names (CF standard names) served by readers.
const (
	EastwardCurrent            = "eastward_current"
	NorthwardCurrent           = "northward_current"
	XSeaWaterVelocity          = "x_sea_water_velocity"
	YSeaWaterVelocity          = "y_sea_water_velocity"
	XWind                      = "x_wind"
	YWind                      = "y_wind"
	SeaWaterTemperature        = "sea_water_temperature"
	SeaWaterSalinity           = "sea_water_salinity"
	SeaFloorDepthBelowSeaLevel = "sea_floor_depth_below_sea_level"
)

// staticVariables are time-invariant quantities sampled without a time index.
var staticVariables = map[string]bool{
	SeaFloorDepthBelowSeaLevel: true,
}

// IsStatic reports whether the canonical variable has no time dimension.
func IsStatic(name string) bool {
	return staticVariables[name]
}
