package stealth

import "math"

// Distance calculates the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	return math.Sqrt(dx*dx + dy*dy)
}

// normalizeAngle wraps an angle to [-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func degToRad(d float64) float64 {
	return d * math.Pi / 180.0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// HideSpot is a static region that makes the player invisible to every
// vision query while they stand inside it.
type HideSpot struct {
	Label    string  `json:"label"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"w"`
	Height   float64 `json:"h"`
	Occupied bool    `json:"occupied"`
}

// Contains reports whether (px, py) lies inside the spot. The right and
// bottom edges are exclusive.
func (h *HideSpot) Contains(px, py float64) bool {
	return px >= h.X && px < h.X+h.Width && py >= h.Y && py < h.Y+h.Height
}

// occluded reports whether the player at (px, py) is inside any occupied spot.
func occluded(px, py float64, spots []*HideSpot) bool {
	for _, s := range spots {
		if s.Occupied && s.Contains(px, py) {
			return true
		}
	}
	return false
}
