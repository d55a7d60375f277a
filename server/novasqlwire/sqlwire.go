package novasqlwire

import "github.com/bptreeidx/engine/internal/sql/executor"

// ExecuteRequest carries one SQL statement from client to server, tagged
// with an ID the response must echo back so a client issuing several
// requests on one connection can match replies to calls.
type ExecuteRequest struct {
	ID  uint64 `json:"id"`
	SQL string `json:"sql"`
}

// ExecuteResponse answers ExecuteRequest.ID with either a Result or an
// Error message, never both.
type ExecuteResponse struct {
	ID     uint64           `json:"id"`
	Result *executor.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}
