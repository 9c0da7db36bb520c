package academia

// Request is the inbound command surface. It arrives as JSON on the
// CLI's stdin, field names are part of that protocol.
type Request struct {
	Action       string `json:"action"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ForceRefresh bool   `json:"force_refresh"`
}

// Result is the outbound shape for every action. Composite actions
// nest per-area Results under Data keyed by area name. Field names
// are part of the output contract consumed by the frontend.
type Result struct {
	Success        bool      `json:"success"`
	Data           any       `json:"data,omitempty"`
	Type           string    `json:"type,omitempty"`
	Count          int       `json:"count,omitempty"`
	Semester       int       `json:"semester,omitempty"`
	Cached         bool      `json:"cached,omitempty"`
	CacheTimestamp string    `json:"cache_timestamp,omitempty"`
	FreshData      bool      `json:"fresh_data,omitempty"`
	Stale          bool      `json:"stale,omitempty"`
	Fallback       bool      `json:"fallback,omitempty"`
	Error          string    `json:"error,omitempty"`
	Message        string    `json:"message,omitempty"`
	Email          string    `json:"email,omitempty"`
	SessionCreated bool      `json:"session_created,omitempty"`
	Metadata       *Metadata `json:"metadata,omitempty"`
}

// Metadata describes a composite response as a whole.
type Metadata struct {
	Type                string `json:"type,omitempty"`
	GeneratedAt         string `json:"generated_at"`
	Source              string `json:"source"`
	Email               string `json:"email"`
	TotalDataTypes      int    `json:"total_data_types"`
	SuccessfulDataTypes int    `json:"successful_data_types"`
	SuccessRate         string `json:"success_rate"`
	ForceRefresh        bool   `json:"force_refresh,omitempty"`
}
