package models

// UserProfile holds the optional body measurements of a user
type UserProfile struct {
	InitialWeight *float64 `json:"initialWeight,omitempty" firestore:"initialWeight,omitempty"` // kg
	CurrentWeight *float64 `json:"currentWeight,omitempty" firestore:"currentWeight,omitempty"` // kg
	TargetWeight  *float64 `json:"targetWeight,omitempty" firestore:"targetWeight,omitempty"`   // kg
	Height        *float64 `json:"height,omitempty" firestore:"height,omitempty"`               // cm
}

// Fields returns the profile as field name -> value, nil meaning "unset".
// The names match the stored document fields.
func (p UserProfile) Fields() map[string]*float64 {
	return map[string]*float64{
		"initialWeight": p.InitialWeight,
		"currentWeight": p.CurrentWeight,
		"targetWeight":  p.TargetWeight,
		"height":        p.Height,
	}
}

// ChatRole is the author of a chat message
type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatMessage is one entry of the nutrition assistant conversation
type ChatMessage struct {
	Role ChatRole `json:"role" firestore:"role"`
	Text string   `json:"text" firestore:"text"`
}
