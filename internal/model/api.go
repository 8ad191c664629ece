package model

// APIInfo summarizes one registered API for callers that present or
// mount it.
type APIInfo struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	BasePath    string   `json:"base_path"`
	Servers     []string `json:"servers"`
}
