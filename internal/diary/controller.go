package diary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/franckalain/fooddiary/internal/analysis"
	"github.com/franckalain/fooddiary/internal/database"
	"github.com/franckalain/fooddiary/internal/models"
	"github.com/franckalain/fooddiary/internal/observability"
)

var (
	// ErrNoDay is returned by edit operations before the first LoadDay
	ErrNoDay = errors.New("no day loaded")
	// ErrReadOnlyDay is returned when modifying a day in the future
	ErrReadOnlyDay = errors.New("day is read-only")
	// ErrBusy is returned while another save or delete is in flight
	ErrBusy = errors.New("another meal is being submitted")
	// ErrNotEditing is returned by buffer operations without an open edit
	ErrNotEditing = errors.New("no meal is being edited")
	// ErrAlreadyEditing is returned when an edit is already open
	ErrAlreadyEditing = errors.New("another meal is being edited")
	// ErrItemIndex is returned for an edit buffer index out of range
	ErrItemIndex = errors.New("item index out of range")
	// ErrInvalidItem is returned for an item with negative calories
	ErrInvalidItem = errors.New("invalid food item")
	// ErrEditReplaced is returned when the edit buffer closed during an operation
	ErrEditReplaced = errors.New("edit buffer was closed or replaced")
)

// Day describes the day a controller currently shows
type Day struct {
	Key      string
	Date     time.Time
	Label    string
	ReadOnly bool
}

// Option configures a Controller
type Option func(*Controller)

// WithClock replaces time.Now, which decides today and read-only days
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller drives the diary state of one view: it calls the store and the
// analysis collaborators and dispatches their outcomes into Reduce.
// It is safe for concurrent use.
type Controller struct {
	store    database.DiaryStore
	analyzer analysis.ItemAnalyzer
	feedback analysis.FeedbackGenerator
	userID   string
	now      func() time.Time
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	day         time.Time
	dateKey     string
	generation  uint64
	editEpoch   uint64
	seq         uint64
	subscribers []func(State)

	notifyMu  sync.Mutex
	delivered uint64
}

// NewController creates the controller of one diary view for userID
func NewController(store database.DiaryStore, analyzer analysis.ItemAnalyzer, feedback analysis.FeedbackGenerator, userID string, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		analyzer: analyzer,
		feedback: feedback,
		userID:   userID,
		now:      time.Now,
		logger:   observability.WithFields("component", "diary", "user_id", userID),
		state:    InitialState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Day returns the day being shown
func (c *Controller) Day() Day {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	return Day{
		Key:      c.dateKey,
		Date:     c.day,
		Label:    models.DisplayDate(c.day, now),
		ReadOnly: c.dateKey != "" && models.IsFutureDay(c.day, now),
	}
}

// Subscribe registers fn to receive every new state
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// commitLocked reduces action if gen is still current. Callers hold c.mu.
func (c *Controller) commitLocked(gen uint64, action Action) bool {
	if gen != c.generation {
		c.logger.Debug("dropping stale action", "action", action.Type())
		return false
	}
	_, hadBuffer := c.state.EditBuffer()
	c.state = Reduce(c.state, action)
	if _, hasBuffer := c.state.EditBuffer(); action.Type() == ActionStartEdit || (hadBuffer && !hasBuffer) {
		c.editEpoch++
	}
	c.seq++
	return true
}

// update is a state change waiting to be delivered to subscribers
type update struct {
	seq   uint64
	state State
	subs  []func(State)
}

// pendingLocked captures the current state for delivery. Callers hold c.mu.
func (c *Controller) pendingLocked() update {
	return update{
		seq:   c.seq,
		state: c.state,
		subs:  append([]func(State){}, c.subscribers...),
	}
}

// deliver notifies subscribers unless a newer state already reached them.
// Subscribers run one at a time and must not call mutating methods.
func (c *Controller) deliver(u update) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if u.seq <= c.delivered {
		return
	}
	c.delivered = u.seq
	for _, fn := range u.subs {
		fn(u.state)
	}
}

// dispatch applies action and notifies subscribers, unless a newer LoadDay
// has replaced the view since gen was taken
func (c *Controller) dispatch(gen uint64, action Action) {
	c.mu.Lock()
	applied := c.commitLocked(gen, action)
	u := c.pendingLocked()
	c.mu.Unlock()

	if applied {
		c.deliver(u)
	}
}

// LoadDay switches the view to day, discarding any edit or error, and
// fetches its log. A future day is read-only and shown empty.
func (c *Controller) LoadDay(ctx context.Context, day time.Time) error {
	day = models.StartOfDay(day)
	dateKey := models.DateKey(day)

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.day = day
	c.dateKey = dateKey
	readOnly := models.IsFutureDay(day, c.now())
	c.mu.Unlock()

	c.dispatch(gen, FetchStart{})

	if readOnly {
		c.dispatch(gen, FetchSuccess{Log: models.DailyLog{}})
		return nil
	}

	log, err := c.store.GetDailyLog(ctx, c.userID, dateKey)
	if err != nil {
		c.logger.Error("failed to load diary", "date", dateKey, "error", err)
		c.dispatch(gen, FetchError{Message: userMessage(err, "load the diary")})
		return fmt.Errorf("load day %s: %w", dateKey, err)
	}

	c.dispatch(gen, FetchSuccess{Log: log})
	return nil
}

// checkWritableLocked rejects edits before a day is loaded and on future days
func (c *Controller) checkWritableLocked() error {
	if c.dateKey == "" {
		return ErrNoDay
	}
	if models.IsFutureDay(c.day, c.now()) {
		return ErrReadOnlyDay
	}
	return nil
}

// StartEdit opens the edit buffer of mealType, seeded with the logged items
func (c *Controller) StartEdit(mealType models.MealType) error {
	if !mealType.Valid() {
		return fmt.Errorf("unknown meal type %q", mealType)
	}

	c.mu.Lock()
	if err := c.checkWritableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if _, editing := c.state.EditBuffer(); editing {
		c.mu.Unlock()
		return ErrAlreadyEditing
	}
	items := c.state.DailyLog[mealType].Items
	c.commitLocked(c.generation, StartEdit{MealType: mealType, Items: items})
	u := c.pendingLocked()
	c.mu.Unlock()

	c.deliver(u)
	return nil
}

// CancelEdit discards the edit buffer
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	c.dispatch(gen, CancelEdit{})
}

// editBufferLocked returns the open edit buffer of a writable day
func (c *Controller) editBufferLocked() (Editing, error) {
	if err := c.checkWritableLocked(); err != nil {
		return Editing{}, err
	}
	edit, ok := c.state.EditBuffer()
	if !ok {
		return Editing{}, ErrNotEditing
	}
	return edit, nil
}

// AddItem analyzes description and appends the result to the edit buffer.
// Degraded results are added too, so the user can see and remove them.
// If the buffer is closed or replaced during the analysis the item is
// dropped and ErrEditReplaced is returned.
func (c *Controller) AddItem(ctx context.Context, description string) (analysis.ItemResult, error) {
	c.mu.Lock()
	_, err := c.editBufferLocked()
	gen, epoch := c.generation, c.editEpoch
	c.mu.Unlock()
	if err != nil {
		return analysis.ItemResult{}, err
	}

	result := c.analyzer.AnalyzeItem(ctx, description)

	c.mu.Lock()
	if gen != c.generation || epoch != c.editEpoch {
		c.mu.Unlock()
		c.logger.Debug("dropping item for a closed edit buffer", "item", result.Item.Name)
		return result, ErrEditReplaced
	}
	c.commitLocked(gen, AddItem{Item: result.Item})
	u := c.pendingLocked()
	c.mu.Unlock()

	c.deliver(u)
	return result, nil
}

// editItem validates index against the edit buffer and applies action
func (c *Controller) editItem(index int, action Action) error {
	c.mu.Lock()
	edit, err := c.editBufferLocked()
	if err == nil && (index < 0 || index >= len(edit.Items)) {
		err = ErrItemIndex
	}
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.commitLocked(c.generation, action)
	u := c.pendingLocked()
	c.mu.Unlock()

	c.deliver(u)
	return nil
}

// RemoveItem removes the item at index from the edit buffer
func (c *Controller) RemoveItem(index int) error {
	return c.editItem(index, RemoveItem{Index: index})
}

// UpdateItem replaces the item at index in the edit buffer
func (c *Controller) UpdateItem(index int, item models.FoodItem) error {
	if item.Calories < 0 {
		return fmt.Errorf("%w: calories must not be negative, got %d", ErrInvalidItem, item.Calories)
	}
	return c.editItem(index, UpdateItem{Index: index, Item: item})
}

// submission is a save or delete that passed the checks and was started
type submission struct {
	gen     uint64
	dateKey string
	edit    Editing
}

// beginSubmit dispatches SubmitStart unless a submission is already in
// flight. With fromBuffer set, the meal type and items come from the edit
// buffer read under the same lock; otherwise mealType is used.
func (c *Controller) beginSubmit(mealType models.MealType, fromBuffer bool) (submission, error) {
	c.mu.Lock()
	var edit Editing
	err := c.checkWritableLocked()
	if err == nil && fromBuffer {
		edit, err = c.editBufferLocked()
		mealType = edit.MealType
	}
	if err == nil {
		if _, busy := c.state.Submitting(); busy {
			err = ErrBusy
		}
	}
	if err != nil {
		c.mu.Unlock()
		return submission{}, err
	}

	sub := submission{gen: c.generation, dateKey: c.dateKey, edit: edit}
	sub.edit.MealType = mealType
	c.commitLocked(sub.gen, SubmitStart{MealType: mealType})
	u := c.pendingLocked()
	c.mu.Unlock()

	c.deliver(u)
	return sub, nil
}

// Save generates feedback for the edit buffer and stores the meal. Saving an
// empty buffer deletes the meal instead.
func (c *Controller) Save(ctx context.Context) error {
	sub, err := c.beginSubmit("", true)
	if err != nil {
		return err
	}
	mealType := sub.edit.MealType
	if len(sub.edit.Items) == 0 {
		return c.deleteMeal(ctx, sub)
	}

	fb := c.feedback.GenerateFeedback(ctx, models.DescribeItems(sub.edit.Items))
	meal := models.NewMeal(sub.edit.Items, fb.Feedback)

	if err := c.store.SaveMeal(ctx, c.userID, sub.dateKey, mealType, meal); err != nil {
		c.logger.Error("failed to save meal", "date", sub.dateKey, "meal_type", mealType, "error", err)
		c.dispatch(sub.gen, SubmitError{MealType: mealType, Message: userMessage(err, "save the meal")})
		return fmt.Errorf("save %s: %w", mealType, err)
	}

	c.logger.Info("meal saved", "date", sub.dateKey, "meal_type", mealType, "calories", meal.TotalCalories)
	c.dispatch(sub.gen, SaveSuccess{MealType: mealType, Meal: meal})
	return nil
}

// Delete removes the logged meal of mealType
func (c *Controller) Delete(ctx context.Context, mealType models.MealType) error {
	if !mealType.Valid() {
		return fmt.Errorf("unknown meal type %q", mealType)
	}

	sub, err := c.beginSubmit(mealType, false)
	if err != nil {
		return err
	}
	return c.deleteMeal(ctx, sub)
}

func (c *Controller) deleteMeal(ctx context.Context, sub submission) error {
	mealType := sub.edit.MealType
	if err := c.store.DeleteMeal(ctx, c.userID, sub.dateKey, mealType); err != nil {
		c.logger.Error("failed to delete meal", "date", sub.dateKey, "meal_type", mealType, "error", err)
		c.dispatch(sub.gen, SubmitError{MealType: mealType, Message: userMessage(err, "delete the meal")})
		return fmt.Errorf("delete %s: %w", mealType, err)
	}

	c.logger.Info("meal deleted", "date", sub.dateKey, "meal_type", mealType)
	c.dispatch(sub.gen, DeleteSuccess{MealType: mealType})
	return nil
}

// userMessage turns a store error into the text shown to the user
func userMessage(err error, action string) string {
	if errors.Is(err, database.ErrPermissionDenied) {
		return fmt.Sprintf("Permission denied while trying to %s. Check the access rules of the document store for this user.", action)
	}
	return fmt.Sprintf("Could not %s. Please try again.", action)
}
