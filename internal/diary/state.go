package diary

import "github.com/franckalain/fooddiary/internal/models"

// Session is the single editing/submitting slot of a diary view. It is one
// of Idle, Editing or Submitting, so at most one meal is edited and at most
// one meal is submitted at any time.
type Session interface {
	session()
}

// Idle means no meal is being edited or submitted
type Idle struct{}

// Editing holds the unsaved item list of the meal being composed
type Editing struct {
	MealType models.MealType
	Items    []models.FoodItem
}

// Submitting means a save or delete of MealType is in flight. Pending is the
// edit buffer that was open when the submission started, if any; it comes
// back when the submission does not end in a save.
type Submitting struct {
	MealType models.MealType
	Pending  *Editing
}

func (Idle) session()       {}
func (Editing) session()    {}
func (Submitting) session() {}

// ErrorInfo is the last failure of a view. An empty MealType means the
// error is global (a failed fetch).
type ErrorInfo struct {
	MealType models.MealType
	Message  string
}

// State is the whole state of one diary day view
type State struct {
	DailyLog models.DailyLog
	Loading  bool
	Session  Session
	Error    *ErrorInfo
}

// InitialState is the state of a freshly mounted view, already loading
func InitialState() State {
	return State{
		DailyLog: models.DailyLog{},
		Loading:  true,
		Session:  Idle{},
	}
}

// EditBuffer returns the open edit buffer, including the one held while a
// submission is in flight
func (s State) EditBuffer() (Editing, bool) {
	switch sess := s.Session.(type) {
	case Editing:
		return sess, true
	case Submitting:
		if sess.Pending != nil {
			return *sess.Pending, true
		}
	}
	return Editing{}, false
}

// Submitting returns the meal type whose save or delete is in flight
func (s State) Submitting() (models.MealType, bool) {
	if sess, ok := s.Session.(Submitting); ok {
		return sess.MealType, true
	}
	return "", false
}
