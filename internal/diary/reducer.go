package diary

import "github.com/franckalain/fooddiary/internal/models"

// Reduce returns the state that results from applying action to state. It
// performs no I/O and never modifies state or the slices and maps it holds.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case FetchStart:
		return InitialState()

	case FetchSuccess:
		state.Loading = false
		state.Session = settle(state.Session)
		state.Error = nil
		state.DailyLog = a.Log.Clone()
		return state

	case FetchError:
		state.Loading = false
		state.Error = &ErrorInfo{Message: a.Message}
		return state

	case SubmitStart:
		if _, busy := state.Session.(Submitting); busy {
			return state
		}
		var pending *Editing
		if edit, ok := state.Session.(Editing); ok {
			pending = &edit
		}
		state.Session = Submitting{MealType: a.MealType, Pending: pending}
		state.Error = nil
		return state

	case SaveSuccess:
		state.Session = Idle{}
		state.DailyLog = state.DailyLog.With(a.MealType, a.Meal)
		return state

	case DeleteSuccess:
		state.Session = settle(state.Session)
		if edit, ok := state.Session.(Editing); ok && edit.MealType == a.MealType {
			state.Session = Idle{}
		}
		state.Error = nil
		state.DailyLog = state.DailyLog.Without(a.MealType)
		return state

	case SubmitError:
		state.Session = settle(state.Session)
		state.Error = &ErrorInfo{MealType: a.MealType, Message: a.Message}
		return state

	case StartEdit:
		if _, editing := state.EditBuffer(); editing {
			return state
		}
		edit := Editing{MealType: a.MealType, Items: copyItems(a.Items)}
		if sub, ok := state.Session.(Submitting); ok {
			sub.Pending = &edit
			state.Session = sub
		} else {
			state.Session = edit
		}
		state.Error = nil
		return state

	case CancelEdit:
		switch sess := state.Session.(type) {
		case Editing:
			state.Session = Idle{}
		case Submitting:
			sess.Pending = nil
			state.Session = sess
		}
		state.Error = nil
		return state

	case AddItem:
		return editItems(state, func(items []models.FoodItem) []models.FoodItem {
			return append(items, a.Item)
		})

	case RemoveItem:
		return editItems(state, func(items []models.FoodItem) []models.FoodItem {
			if a.Index < 0 || a.Index >= len(items) {
				return items
			}
			return append(items[:a.Index], items[a.Index+1:]...)
		})

	case UpdateItem:
		return editItems(state, func(items []models.FoodItem) []models.FoodItem {
			if a.Index < 0 || a.Index >= len(items) {
				return items
			}
			items[a.Index] = a.Item
			return items
		})

	default:
		return state
	}
}

// settle ends a submission, giving back the edit buffer it held
func settle(s Session) Session {
	sub, ok := s.(Submitting)
	if !ok {
		return s
	}
	if sub.Pending != nil {
		return *sub.Pending
	}
	return Idle{}
}

// editItems applies fn to a copy of the open edit buffer. Without an open
// buffer the state is returned unchanged.
func editItems(state State, fn func([]models.FoodItem) []models.FoodItem) State {
	switch sess := state.Session.(type) {
	case Editing:
		sess.Items = fn(copyItems(sess.Items))
		state.Session = sess
	case Submitting:
		if sess.Pending == nil {
			return state
		}
		edit := *sess.Pending
		edit.Items = fn(copyItems(edit.Items))
		sess.Pending = &edit
		state.Session = sess
	}
	return state
}

func copyItems(items []models.FoodItem) []models.FoodItem {
	out := make([]models.FoodItem, len(items))
	copy(out, items)
	return out
}
