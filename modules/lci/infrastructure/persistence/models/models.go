package models

import "time"

type Activity struct {
	DatabaseName     string
	Code             string
	Name             string
	Location         string
	Unit             string
	ReferenceProduct string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Flow struct {
	DatabaseName string
	Code         string
	Name         string
	Unit         string
	Categories   string
}

type Exchange struct {
	ActivityDatabase string
	ActivityCode     string
	InputDatabase    string
	InputCode        string
	Type             string
	Amount           float64
	Unit             string
	Position         int
}
