package model

// Actor is the explicit session identity passed into every workflow in
// place of ambient auth state. Handlers populate it from auth headers.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Attribution returns the value stamped into audit fields: the display
// name when known, otherwise the id.
func (a Actor) Attribution() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
