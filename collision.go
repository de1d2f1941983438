package main

// EatDominance is the size advantage required to eat another player.
// Pairs within this band bounce off each other unharmed.
const EatDominance = 1.1

// CheckCollision returns true if two circles overlap
func CheckCollision(x1, y1, r1, x2, y2, r2 float64) bool {
	return Distance(x1, y1, x2, y2) < r1+r2
}

// Swallows returns true if a consumer at (cx,cy) fully contains the
// food circle — touching is not enough.
func Swallows(cx, cy, consumerSize float64, f *Food) bool {
	return Distance(cx, cy, f.X, f.Y) < consumerSize-f.Size
}

// Dominates returns true if size a exceeds size b by more than the
// dominance threshold.
func Dominates(a, b float64) bool {
	return a > b*EatDominance
}
