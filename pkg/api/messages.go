package api

type (
	// RunRequest asks the server to execute a single block
	RunRequest struct {
		Spec        BlockSpec   `json:"spec"`
		Config      *RunConfig  `json:"config"`
		State       Args        `json:"state,omitempty"`
		Input       Input       `json:"input"`
		Map         *MapState   `json:"map,omitempty"`
		Credentials Credentials `json:"credentials,omitempty"`
		Project     Project     `json:"project"`
	}

	// RunResponse is returned when a block execution succeeds
	RunResponse struct {
		RunID  RunID        `json:"run_id"`
		Result *BlockResult `json:"result"`
	}

	// HashResponse contains the content hash of a block spec
	HashResponse struct {
		Type BlockType `json:"type"`
		Name Name      `json:"name"`
		Hash string    `json:"hash"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)
