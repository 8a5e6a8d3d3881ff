package diary

import "github.com/franckalain/fooddiary/internal/models"

// ActionType names an action
type ActionType string

const (
	ActionFetchStart    ActionType = "FETCH_START"
	ActionFetchSuccess  ActionType = "FETCH_SUCCESS"
	ActionFetchError    ActionType = "FETCH_ERROR"
	ActionSubmitStart   ActionType = "SUBMIT_START"
	ActionSaveSuccess   ActionType = "SAVE_SUCCESS"
	ActionDeleteSuccess ActionType = "DELETE_SUCCESS"
	ActionSubmitError   ActionType = "SUBMIT_ERROR"
	ActionStartEdit     ActionType = "START_EDIT"
	ActionCancelEdit    ActionType = "CANCEL_EDIT"
	ActionAddItem       ActionType = "ADD_ITEM"
	ActionRemoveItem    ActionType = "REMOVE_ITEM"
	ActionUpdateItem    ActionType = "UPDATE_ITEM"
)

// Action is anything that can be dispatched to Reduce. Actions Reduce does
// not know leave the state unchanged.
type Action interface {
	Type() ActionType
}

type FetchStart struct{}

type FetchSuccess struct {
	Log models.DailyLog
}

type FetchError struct {
	Message string
}

type SubmitStart struct {
	MealType models.MealType
}

type SaveSuccess struct {
	MealType models.MealType
	Meal     models.Meal
}

type DeleteSuccess struct {
	MealType models.MealType
}

type SubmitError struct {
	MealType models.MealType
	Message  string
}

type StartEdit struct {
	MealType models.MealType
	Items    []models.FoodItem
}

type CancelEdit struct{}

type AddItem struct {
	Item models.FoodItem
}

type RemoveItem struct {
	Index int
}

type UpdateItem struct {
	Index int
	Item  models.FoodItem
}

func (FetchStart) Type() ActionType    { return ActionFetchStart }
func (FetchSuccess) Type() ActionType  { return ActionFetchSuccess }
func (FetchError) Type() ActionType    { return ActionFetchError }
func (SubmitStart) Type() ActionType   { return ActionSubmitStart }
func (SaveSuccess) Type() ActionType   { return ActionSaveSuccess }
func (DeleteSuccess) Type() ActionType { return ActionDeleteSuccess }
func (SubmitError) Type() ActionType   { return ActionSubmitError }
func (StartEdit) Type() ActionType     { return ActionStartEdit }
func (CancelEdit) Type() ActionType    { return ActionCancelEdit }
func (AddItem) Type() ActionType       { return ActionAddItem }
func (RemoveItem) Type() ActionType    { return ActionRemoveItem }
func (UpdateItem) Type() ActionType    { return ActionUpdateItem }
