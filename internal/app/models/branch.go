package models

import "time"

// Branch is one physical academy location. Key is what clients send, Code
// prefixes every student ID issued there.
type Branch struct {
	Key  string `json:"key" example:"wardha"`
	Code string `json:"code" example:"WR"`
	Name string `json:"name" example:"Wardha"`
}

// BranchCounter is the persisted high-water mark of student IDs for a branch.
// Count is the last number issued; zero means none yet.
type BranchCounter struct {
	Branch    string    `json:"branch" db:"branch"`
	Count     int64     `json:"count" db:"count"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
