package event

import "doorkeeper/internal/domain/event"

type listInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"500" default:"50" doc:"Newest events to return"`
}

type listOutput struct {
	Body struct {
		Count  int           `json:"count"`
		Events []event.Event `json:"events"`
	}
}
