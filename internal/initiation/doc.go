// Package initiation implements the M-of-N confirmation ladder used to
// promote newly detected targets to firm tracks.
//
// Each Mode owns an ordered ladder of provisional states (Pos1, Pos2,
// Tentative1..3) and a firm threshold N. A track climbs one rung per
// consecutive hit and becomes Firm once it has N hits. Misses never demote a
// track; they accumulate until the eviction threshold for the track's state
// category is reached.
//
// Key types: Mode, State, Track, Machine.
package initiation
