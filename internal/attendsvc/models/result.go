package models

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// OpResult is the structured outcome every public operation returns
// instead of raising past its boundary.
type OpResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func Success(msg string) OpResult { return OpResult{Status: StatusSuccess, Message: msg} }
func Skipped(msg string) OpResult { return OpResult{Status: StatusSkipped, Message: msg} }
func Errored(msg string) OpResult { return OpResult{Status: StatusError, Message: msg} }
