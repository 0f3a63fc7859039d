package model

import "strings"

// StatusCode is the per-element life-cycle code stored in the status_codes
// array.
type StatusCode int64

const (
	StatusNotReleased StatusCode = 0
	StatusInWater     StatusCode = 2
	StatusOnLand      StatusCode = 3
	StatusOffMaps     StatusCode = 7
	StatusToBeRemoved StatusCode = 12
)

func (s StatusCode) String() string {
	switch s {
	case StatusNotReleased:
		return "not_released"
	case StatusInWater:
		return "in_water"
	case StatusOnLand:
		return "on_land"
	case StatusOffMaps:
		return "off_maps"
	case StatusToBeRemoved:
		return "to_be_removed"
	default:
		return "unknown"
	}
}

// FateStatus is a bit set recording which weathering fate has claimed an
// element.
type FateStatus int64

const (
	FateNonWeather FateStatus = 1 << iota
	FateSurfaceWeather
	FateSubsurfWeather
	FateSkim
	FateBurn
	FateDisperse
)

// FateClaimed is the set of fates that take an element out of the regular
// surface/subsurface weathering pool.
const FateClaimed = FateSkim | FateBurn | FateDisperse

// Has reports whether all bits of f are set.
func (s FateStatus) Has(f FateStatus) bool { return s&f == f }

// Any reports whether at least one bit of f is set.
func (s FateStatus) Any(f FateStatus) bool { return s&f != 0 }

func (s FateStatus) String() string {
	if s == 0 {
		return "none"
	}
	names := []struct {
		bit  FateStatus
		name string
	}{
		{FateNonWeather, "non_weather"},
		{FateSurfaceWeather, "surface_weather"},
		{FateSubsurfWeather, "subsurf_weather"},
		{FateSkim, "skim"},
		{FateBurn, "burn"},
		{FateDisperse, "disperse"},
	}
	var parts []string
	for _, n := range names {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
