package model

// Role tags what an object provides when references are resolved.
type Role string

const (
	RoleNone    Role = ""
	RoleWind    Role = "wind"
	RoleWater   Role = "water"
	RoleWaves   Role = "waves"
	RoleCurrent Role = "current"

	// Weatherer roles used when default weathering processes are inserted.
	RoleMassBalance Role = "mass_balance"
	RoleSpreading   Role = "spreading"
	RoleLangmuir    Role = "langmuir"
)

// EnvironmentRoles lists the roles environment objects can claim, in
// resolution order.
var EnvironmentRoles = []Role{RoleWind, RoleWater, RoleWaves, RoleCurrent}

// Position is a geographic location in degrees with depth in metres (positive
// down).
type Position struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
	Z   float64 `json:"z"`
}

// MetersPerDegreeLat is the length of one degree of latitude (one nautical
// mile per minute).
const MetersPerDegreeLat = 1852.0 * 60.0
