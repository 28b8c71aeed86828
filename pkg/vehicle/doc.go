// Package vehicle implements the vehicles that drive through a roundabout and
// the traversal protocol they share.
//
// Each [Vehicle] runs in its own goroutine via [Vehicle.Run]. Vehicles never
// talk to each other: they coordinate only through the roundabout's entry
// queues, its admission tokens and the compare-and-set occupancy cell of each
// lane vertex. A vehicle holds at most two lane vertices at any moment, the
// one it is leaving and the one it just took.
//
// Driving styles are presets selected by [Kind]:
//
//	heavy:default     4 km/h per step, 30 km/h max, 1s backoffs, outer lane only
//	light:default     6 km/h per step, 50 km/h max, 1s backoffs
//	light:aggressive 10 km/h per step, 60 km/h max, 100ms backoffs
//
// Speeds are advisory: they only set how long a vehicle sleeps on a segment.
package vehicle
