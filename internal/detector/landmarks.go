// Package detector provides hand detection interfaces and types for fingerspelling recognition.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// NumFeatures is the length of a flattened feature vector (21 points x 3 coordinates).
const NumFeatures = NumLandmarks * 3

// ScaleEpsilon is added to the scale divisor so a degenerate hand
// (all points on the wrist) does not divide by zero.
const ScaleEpsilon = 1e-6

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the Euclidean length of the point seen as a vector from the origin.
func (p Point3D) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FeatureVector is the flattened, normalized representation of one hand pose:
// point 0's x,y,z followed by point 1's x,y,z and so on.
type FeatureVector [NumFeatures]float64

// Point returns the i-th landmark encoded in the vector.
func (v *FeatureVector) Point(i int) Point3D {
	return Point3D{X: v[i*3], Y: v[i*3+1], Z: v[i*3+2]}
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are divided by
// the largest wrist-to-landmark distance plus ScaleEpsilon, so every point lies
// within the unit sphere.
// Returns a new HandLandmarks instance with normalized points.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]

	var maxDist float64
	for i := 0; i < NumLandmarks; i++ {
		p := Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
		normalized.Points[i] = p
		if d := p.Norm(); d > maxDist {
			maxDist = d
		}
	}

	scale := maxDist + ScaleEpsilon
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}

// Features returns the normalized landmarks flattened in point-major order.
func (h *HandLandmarks) Features() FeatureVector {
	var v FeatureVector
	n := h.Normalize()
	if n == nil {
		return v
	}
	for i, p := range n.Points {
		v[i*3] = p.X
		v[i*3+1] = p.Y
		v[i*3+2] = p.Z
	}
	return v
}

// FromPoints builds HandLandmarks from a slice of points.
// Missing trailing points stay at the origin; extra points are ignored.
func FromPoints(points []Point3D) HandLandmarks {
	var h HandLandmarks
	copy(h.Points[:], points)
	return h
}
