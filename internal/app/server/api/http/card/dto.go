package card

const (
	statusSuccess = "success"
	statusError   = "error"
)

type statusResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"Card added successfully"`
}

type messageOutput struct {
	Body statusResponse
}

// listOutput carries the document rendered by the store as-is.
type listOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type addInput struct {
	Body struct {
		ID   uint32 `json:"id" doc:"Card id, 1..4294967295"`
		Name string `json:"nm" doc:"Card holder name, cut to 31 bytes"`
	}
}

type idInput struct {
	ID uint32 `query:"id" required:"true" doc:"Card id in decimal"`
}

type countOutput struct {
	Body struct {
		CardCount uint16 `json:"card_count"`
	}
}

type checkOutput struct {
	Body struct {
		Exists bool   `json:"exists"`
		Active bool   `json:"active"`
		Status string `json:"status" enum:"active,inactive,not_found"`
	}
}

type defaultCard struct {
	ID      uint32 `json:"id"`
	Name    string `json:"name"`
	Active  bool   `json:"active"`
	Default bool   `json:"default"`
}

type defaultsOutput struct {
	Body struct {
		Status string        `json:"status"`
		Count  int           `json:"count"`
		Cards  []defaultCard `json:"cards"`
	}
}

type validateOutput struct {
	Body struct {
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	}
}
