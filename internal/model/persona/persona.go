package persona

// DefaultDescriptor is used whenever persona generation was attempted but
// produced nothing usable.
const DefaultDescriptor = "A friendly, helpful user."

// Persona captures the conversational style derived for a user.
type Persona struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
	Descriptor  string `json:"descriptor"`
	Generated   bool   `json:"generated"`
}
