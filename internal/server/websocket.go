package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"

	"github.com/franckalain/fooddiary/internal/analysis"
	"github.com/franckalain/fooddiary/internal/diary"
	"github.com/franckalain/fooddiary/internal/models"
	"github.com/franckalain/fooddiary/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, this should be more restrictive
	},
}

// inboundMessage is what clients send: {"type": ..., "data": {...}}
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type messageData struct {
	Date        string           `json:"date"`
	MealType    string           `json:"mealType"`
	Description string           `json:"description"`
	Index       *int             `json:"index"`
	Item        *models.FoodItem `json:"item"`
}

// connection serializes writes to one websocket
type connection struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *slog.Logger
}

func (c *connection) sendMessage(messageType string, data any) {
	msg := map[string]any{
		"type": messageType,
		"data": data,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Warn("error sending message", "type", messageType, "error", err)
	}
}

func (c *connection) sendError(message string) {
	msg := map[string]any{
		"type":    "error",
		"message": message,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Warn("error sending error message", "error", err)
	}
}

func (c *connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.Close()
}

// session is one diary view bound to a websocket connection
type session struct {
	server     *Server
	conn       *connection
	controller *diary.Controller
	ctx        context.Context
	wg         conc.WaitGroup
}

func (s *Server) handleWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	uid := userID(c)
	connID := uuid.New().String()
	conn := &connection{
		id:     connID,
		conn:   ws,
		logger: s.logger.With("connection_id", connID, "user_id", uid),
	}
	defer conn.close()

	s.clients.Store(conn.id, conn)
	defer s.clients.Delete(conn.id)

	// in-flight saves outlive the request; they finish before the handler returns
	ctx := observability.WithRequestID(context.WithoutCancel(c.Request.Context()), conn.id)

	sess := &session{
		server:     s,
		conn:       conn,
		controller: diary.NewController(s.store, s.analyzer, s.feedback, uid, diary.WithClock(s.opts.Now)),
		ctx:        ctx,
	}
	sess.controller.Subscribe(func(state diary.State) {
		conn.sendMessage("diary_state", newDiaryStateDTO(state, sess.controller.Day()))
	})
	defer sess.wg.Wait()

	conn.logger.Info("diary connection opened")
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				conn.logger.Warn("error reading message", "error", err)
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			conn.sendError("Invalid message format")
			continue
		}
		sess.handleMessage(msg)
	}
	conn.logger.Info("diary connection closed")
}

// handleMessage runs buffer edits inline and operations that call the store
// or a model in the background, so the view stays responsive while they run
func (sess *session) handleMessage(msg inboundMessage) {
	var data messageData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			sess.conn.sendError("Invalid message data")
			return
		}
	}

	switch msg.Type {
	case "load_day":
		sess.wg.Go(func() { sess.loadDay(data) })
	case "start_edit":
		sess.withMealType(data, func(t models.MealType) error { return sess.controller.StartEdit(t) })
	case "cancel_edit":
		sess.controller.CancelEdit()
	case "add_item":
		sess.wg.Go(func() { sess.addItem(data) })
	case "remove_item":
		if data.Index == nil {
			sess.conn.sendError("Missing item index")
			return
		}
		sess.report(sess.controller.RemoveItem(*data.Index))
	case "update_item":
		if data.Index == nil || data.Item == nil {
			sess.conn.sendError("Missing item index or item")
			return
		}
		sess.report(sess.controller.UpdateItem(*data.Index, *data.Item))
	case "save_meal":
		sess.wg.Go(func() { sess.report(sess.controller.Save(sess.ctx)) })
	case "delete_meal":
		sess.withMealType(data, func(t models.MealType) error {
			sess.wg.Go(func() { sess.report(sess.controller.Delete(sess.ctx, t)) })
			return nil
		})
	case "analyze_meal":
		sess.wg.Go(func() { sess.analyzeMeal(data) })
	default:
		sess.conn.sendError("Unknown message type")
	}
}

func (sess *session) withMealType(data messageData, fn func(models.MealType) error) {
	t, err := models.ParseMealType(data.MealType)
	if err != nil {
		sess.conn.sendError("Invalid meal type")
		return
	}
	sess.report(fn(t))
}

func (sess *session) loadDay(data messageData) {
	now := sess.server.opts.Now()
	day := now
	if data.Date != "" {
		parsed, err := models.ParseDateKey(data.Date, now.Location())
		if err != nil {
			sess.conn.sendError("Invalid date")
			return
		}
		day = parsed
	}
	// failures are already part of the pushed state
	_ = sess.controller.LoadDay(sess.ctx, day)
}

func (sess *session) addItem(data messageData) {
	result, err := sess.controller.AddItem(sess.ctx, data.Description)
	if err != nil {
		sess.report(err)
		return
	}
	sess.conn.sendMessage("item_added", analyzedItem{
		Name:     result.Item.Name,
		Calories: result.Item.Calories,
		Outcome:  result.Outcome.String(),
	})
}

func (sess *session) analyzeMeal(data messageData) {
	result, err := sess.server.orchestrator.AnalyzeMeal(sess.ctx, data.Description)
	switch {
	case errors.Is(err, analysis.ErrEmptyInput):
		sess.conn.sendError("Describe at least one food item")
	case err != nil:
		sess.conn.sendError("The meal could not be analyzed, try again")
	default:
		sess.conn.sendMessage("meal_analysis", newMealAnalysisResponse(result))
	}
}

// report sends controller rejections to the client. Store failures are
// already in the pushed state and are not repeated.
func (sess *session) report(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, diary.ErrBusy):
		sess.conn.sendError("Another meal is being saved, wait for it to finish")
	case errors.Is(err, diary.ErrReadOnlyDay):
		sess.conn.sendError("Future days cannot be edited")
	case errors.Is(err, diary.ErrNotEditing):
		sess.conn.sendError("No meal is being edited")
	case errors.Is(err, diary.ErrAlreadyEditing):
		sess.conn.sendError("Finish the meal you are editing first")
	case errors.Is(err, diary.ErrEditReplaced):
		sess.conn.sendError("The meal was closed before the item was added")
	case errors.Is(err, diary.ErrNoDay):
		sess.conn.sendError("Load a day first")
	case errors.Is(err, diary.ErrItemIndex):
		sess.conn.sendError("No such item")
	case errors.Is(err, diary.ErrInvalidItem):
		sess.conn.sendError("Calories must not be negative")
	default:
		sess.conn.logger.Debug("operation failed", "error", err)
	}
}
