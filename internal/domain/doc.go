// Package domain models post-harvest spoilage risk for farmer crop cycles.
//
// # Crop Definitions
//
// Each crop type (paddy_boro, wheat, potato, ...) is static configuration: an
// ordered list of growth stages and a storage profile. Definitions are loaded
// from the catalog file and never modified by risk computation.
//
// # Stress Model
//
// A storage profile defines a linear stress ramp per dimension:
//
//	stress = clamp((value - ideal) / (bad - ideal), 0, 1)
//
//	  Humidity:    weather relative humidity against ideal/bad humidity
//	  Temperature: weather temperature against ideal/bad temperature
//	  Rain:        rain probability / 100, only for rain-sensitive crops
//
// A dimension is skipped (stress 0) when the reading is unknown or when the
// bad threshold does not exceed the ideal one. Potato storage, for example,
// lists ideal humidity 90 and bad humidity 70, so humidity never contributes.
//
// # Risk Levels and ETCL
//
// The largest stress selects the bucket. Upper bounds are inclusive, so a
// value sitting on a breakpoint resolves to the lower-risk bucket:
//
//	  <= 0.2  low       96 h
//	  <= 0.5  medium    48 h
//	  <= 0.8  high      24 h
//	   > 0.8  critical   6 h
//
// ETCL (estimated time to crop loss) is the fixed hour estimate of the bucket.
// The dominant risk type is the dimension with the largest stress; ties go to
// humidity, then temperature, then rain.
//
// # Stage Rules
//
// Lifecycle stages map to logical phases (planted/growing -> growing,
// pre_harvest -> pre_harvest, harvested -> harvest_window, stored/completed ->
// post_harvest). The active stage definition is the one of that phase whose
// day range contains the days elapsed since planting, or the lowest-order
// stage of the phase. Its weather rules add advice when every known bound
// matches the current weather.
//
// # Bilingual Text
//
// User-facing text is a [Text] value with a Bengali and an English side.
// Templates use {name} placeholders and are filled by [Render].
package domain
