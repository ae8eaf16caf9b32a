package health

// Input represents the input for health check endpoint
type Input struct{}

// Output represents the output for health check endpoint
type Output struct {
	Body Response
}

// Response represents the health check response
type Response struct {
	Status string `json:"status" example:"OK" enum:"OK,DEGRADED" doc:"Health status of the service"`
	Store  string `json:"store" example:"ok" doc:"Card database state: ok or the store error code"`
	Cards  uint16 `json:"cards" doc:"Stored cards"`
}
