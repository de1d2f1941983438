package main

// Food is a consumable map item: immutable until eaten
type Food struct {
	ID    string
	X, Y  float64
	Size  float64
	Color string
}

// NewFood spawns a food item at a random position inset by its own size
// from the map edges, with a random size in [sizeMin, sizeMax].
func NewFood(mapW, mapH, sizeMin, sizeMax float64) *Food {
	size := randRange(sizeMin, sizeMax)
	return &Food{
		ID:    "food_" + GenerateID(6),
		X:     randRange(size, mapW-size),
		Y:     randRange(size, mapH-size),
		Size:  size,
		Color: randColor(),
	}
}

// ToState converts to protocol state
func (f *Food) ToState() FoodState {
	return FoodState{ID: f.ID, X: f.X, Y: f.Y, Size: f.Size, Color: f.Color}
}
