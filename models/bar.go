package models

// Bar represents a participating venue
type Bar struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Location string   `json:"location,omitempty"`
	Rewards  []Reward `json:"rewards,omitempty"`
}

// Reward represents a reward redeemable at a specific bar
type Reward struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PointsCost int64  `json:"pointsCost"`
	ImageURL   string `json:"imageUrl,omitempty"`
}
