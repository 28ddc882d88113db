package sexp

// Position represents a 2D coordinate in the KiCad coordinate system.
// Schematic files store coordinates directly in millimeters.
type Position struct {
	X float64 // X coordinate in mm
	Y float64 // Y coordinate in mm
}

// Angle represents rotation in degrees
type Angle float64

// PositionAngle combines position with rotation
type PositionAngle struct {
	Position
	Angle Angle
}

// Size represents dimensions in mm
type Size struct {
	Width  float64
	Height float64
}
