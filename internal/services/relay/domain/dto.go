package domain

// Credentials is what a caller gets back from creating a service
type Credentials struct {
	ServiceID   string `json:"service_id"`
	APIKey      string `json:"api_key"`
	SecretToken string `json:"secret_token"`
	URL         string `json:"url"`
	Port        int    `json:"port"`
}

// Summary is a read-only view used by the control plane health endpoint
type Summary struct {
	ServiceID string `json:"service_id"`
	Name      string `json:"service_name"`
	Port      int    `json:"port"`
	Commands  int    `json:"commands"`
	QueueLen  int    `json:"queue_length"`
}
