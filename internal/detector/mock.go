package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// LetterALandmarks returns a preset closed fist with the thumb resting
// against the side of the index finger (fingerspelled "A").
func LetterALandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb straight up along the index knuckle
	landmarks.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.76, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.59, Y: 0.70, Z: -0.01}
	landmarks.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.64, Z: -0.02}
	landmarks.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.59, Z: -0.02}

	// Fingers curled into the palm
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.64, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.60, Z: -0.06}
	landmarks.Points[IndexDIP] = Point3D{X: 0.54, Y: 0.65, Z: -0.06}
	landmarks.Points[IndexTip] = Point3D{X: 0.54, Y: 0.68, Z: -0.04}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.63, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.59, Z: -0.06}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.49, Y: 0.64, Z: -0.06}
	landmarks.Points[MiddleTip] = Point3D{X: 0.49, Y: 0.67, Z: -0.04}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.64, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.45, Y: 0.60, Z: -0.06}
	landmarks.Points[RingDIP] = Point3D{X: 0.44, Y: 0.65, Z: -0.06}
	landmarks.Points[RingTip] = Point3D{X: 0.44, Y: 0.68, Z: -0.04}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.41, Y: 0.66, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.41, Y: 0.63, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.40, Y: 0.67, Z: -0.05}
	landmarks.Points[PinkyTip] = Point3D{X: 0.40, Y: 0.69, Z: -0.03}

	return landmarks
}

// LetterBLandmarks returns a preset flat hand with all four fingers extended
// upward and the thumb folded across the palm (fingerspelled "B").
func LetterBLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb folded across the palm
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.56, Y: 0.69, Z: -0.02}
	landmarks.Points[ThumbIP] = Point3D{X: 0.52, Y: 0.67, Z: -0.04}
	landmarks.Points[ThumbTip] = Point3D{X: 0.48, Y: 0.67, Z: -0.05}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.64, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.555, Y: 0.52, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.56, Y: 0.44, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.56, Y: 0.37, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.63, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.50, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.41, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.33, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.64, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.445, Y: 0.52, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.44, Y: 0.44, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.44, Y: 0.37, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.41, Y: 0.66, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.57, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.395, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.39, Y: 0.45, Z: 0.0}

	return landmarks
}

// LetterLLandmarks returns a preset "L": index finger up, thumb out to the
// side, remaining fingers curled.
func LetterLLandmarks() HandLandmarks {
	landmarks := LetterALandmarks()

	landmarks.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.76, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.63, Y: 0.72, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.69, Y: 0.69, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.75, Y: 0.67, Z: 0.0}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.64, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.555, Y: 0.52, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.56, Y: 0.44, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.56, Y: 0.37, Z: 0.0}

	return landmarks
}

// Translate returns a copy of the hand with every point shifted by offset.
func Translate(h HandLandmarks, offset Point3D) HandLandmarks {
	out := h
	for i := range out.Points {
		out.Points[i].X += offset.X
		out.Points[i].Y += offset.Y
		out.Points[i].Z += offset.Z
	}
	return out
}

// Scale returns a copy of the hand with every coordinate multiplied by factor.
func Scale(h HandLandmarks, factor float64) HandLandmarks {
	out := h
	for i := range out.Points {
		out.Points[i].X *= factor
		out.Points[i].Y *= factor
		out.Points[i].Z *= factor
	}
	return out
}
