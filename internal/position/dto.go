package position

// PositionResponse is the catalog entry the tree editor renders.
type PositionResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	CanAuthorize bool   `json:"can_authorize"`
}
