package event

import "time"

// Action is the card operation an event records.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionCheck  Action = "check"
	ActionReset  Action = "reset"
	ActionFormat Action = "format"
)

// OutcomeOK marks a successful operation; failures carry the error code.
const OutcomeOK = "ok"

// Event is one journal entry.
type Event struct {
	ID      string    `json:"id" doc:"UUIDv7 of the event"`
	At      time.Time `json:"at" doc:"When the operation finished"`
	Action  Action    `json:"action" enum:"add,remove,check,reset,format"`
	CardID  uint32    `json:"card_id" doc:"Card the operation targeted, 0 for store-wide actions"`
	Outcome string    `json:"outcome" example:"ok"`
}
