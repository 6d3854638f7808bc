package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cps-exam-service/internal/app"
	"cps-exam-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type WSHandler struct {
	service  *app.ExamService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ExamService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option int `json:"option"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type confirmFlag struct {
	Confirm bool `json:"confirm"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type confirmPayload struct {
	Action     string `json:"action"`
	Unanswered int    `json:"unanswered"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var errBadPayload = errors.New("invalid payload")

// ServeWS upgrades HTTP requests to websockets and runs one exam attempt per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	examID := r.URL.Query().Get("examId")
	userID := r.URL.Query().Get("userId")
	if examID == "" || userID == "" {
		http.Error(w, "missing examId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	started, err := h.service.Start(ctx, examID, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	attemptID := started.AttemptID
	connLog := h.log.With().Str("exam_id", examID).Str("user_id", userID).Logger()

	updates, cancel, err := h.service.Subscribe(ctx, attemptID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	// attemptID changes on restart, so resolve it when the connection ends
	defer func() { h.service.Abandon(context.Background(), attemptID) }()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				connLog.Debug().Err(err).Msg("ws write failed")
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: started}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		result, err := h.dispatch(ctx, attemptID, inbound)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			continue
		}
		switch result.Outcome {
		case domain.OutcomeDeclined:
			send <- outboundMessage[any]{Type: "confirm", Payload: confirmPayload{
				Action:     inbound.Type,
				Unanswered: result.Unanswered,
			}}
		case domain.OutcomeApplied:
			if inbound.Type == "restart" {
				attemptID = result.View.AttemptID
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, attemptID string, in inboundMessage) (domain.TransitionResult, error) {
	switch in.Type {
	case "select":
		var p selectPayload
		if err := decode(in.Payload, &p); err != nil {
			return domain.TransitionResult{}, err
		}
		return h.service.Select(ctx, attemptID, p.Option)
	case "next":
		var p confirmFlag
		if err := decode(in.Payload, &p); err != nil {
			return domain.TransitionResult{}, err
		}
		return h.service.Next(ctx, attemptID, p.Confirm)
	case "previous":
		return h.service.Previous(ctx, attemptID)
	case "flag":
		return h.service.ToggleFlag(ctx, attemptID)
	case "review":
		return h.service.EnterReview(ctx, attemptID)
	case "jump":
		var p jumpPayload
		if err := decode(in.Payload, &p); err != nil {
			return domain.TransitionResult{}, err
		}
		return h.service.JumpTo(ctx, attemptID, p.Index)
	case "return":
		return h.service.ReturnToExam(ctx, attemptID)
	case "finish":
		var p confirmFlag
		if err := decode(in.Payload, &p); err != nil {
			return domain.TransitionResult{}, err
		}
		return h.service.Finish(ctx, attemptID, p.Confirm)
	case "results":
		var p confirmFlag
		if err := decode(in.Payload, &p); err != nil {
			return domain.TransitionResult{}, err
		}
		return h.service.ViewResults(ctx, attemptID, p.Confirm)
	case "restart":
		return h.service.Restart(ctx, attemptID)
	default:
		return domain.TransitionResult{}, errors.New("unsupported message type")
	}
}

// decode tolerates a missing payload and leaves v at its zero value.
func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}
