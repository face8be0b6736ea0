package websocket

import (
	"encoding/json"
	"errors"

	"video-voting-be/internal/dto"
	"video-voting-be/internal/pkg/logger"
	"video-voting-be/internal/pkg/serverutils"
	"video-voting-be/internal/service"
)

// inboundFrame is the wire shape of every client command.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Dispatcher decodes inbound command frames and routes them to the
// orchestrator. It owns the request/response half of the protocol; room
// broadcasts flow from the orchestrator through the event bus instead.
type Dispatcher struct {
	orchestrator service.IOrchestratorService
	hub          *Hub
	logger       logger.ILogger
}

func NewDispatcher(orchestrator service.IOrchestratorService, hub *Hub, log logger.ILogger) *Dispatcher {
	return &Dispatcher{
		orchestrator: orchestrator,
		hub:          hub,
		logger:       log,
	}
}

func (d *Dispatcher) HandleMessage(connID string, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		d.sendError(connID, "Malformed message")
		return
	}

	switch frame.Event {
	case dto.CmdCreateSession:
		d.createSession(connID)
	case dto.CmdJoinSession:
		d.joinSession(connID, frame.Data)
	case dto.CmdStartVoting:
		d.startVoting(connID)
	case dto.CmdVote:
		d.vote(connID, frame.Data)
	default:
		d.sendError(connID, "Unknown command: "+frame.Event)
	}
}

func (d *Dispatcher) createSession(connID string) {
	res, err := d.orchestrator.CreateSession(connID)
	if err != nil {
		d.logger.Error("Dispatcher", "Failed to create session", map[string]interface{}{
			"conn_id": connID,
			"error":   err.Error(),
		})
		d.sendError(connID, "Failed to create session")
		return
	}

	// Host joins their own session room so they receive broadcasts.
	d.hub.JoinRoom(res.SessionID, connID)
	d.send(connID, dto.EventSessionCreated, res)
}

func (d *Dispatcher) joinSession(connID string, data json.RawMessage) {
	var req dto.JoinSessionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		d.sendError(connID, "Malformed message")
		return
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		d.sendError(connID, err.Error())
		return
	}

	res, err := d.orchestrator.JoinSession(req.SessionID, connID)
	if err != nil {
		d.sendError(connID, errorMessage(err))
		return
	}

	d.hub.JoinRoom(req.SessionID, connID)
	d.send(connID, dto.EventSessionJoined, res)

	// Count goes out after the room join so the new voter sees it too.
	d.orchestrator.AnnounceUserCount(req.SessionID)
}

func (d *Dispatcher) startVoting(connID string) {
	if err := d.orchestrator.StartVoting(connID); err != nil {
		d.sendError(connID, errorMessage(err))
	}
}

func (d *Dispatcher) vote(connID string, data json.RawMessage) {
	var req dto.VoteRequest
	if err := json.Unmarshal(data, &req); err != nil {
		d.sendError(connID, "Malformed message")
		return
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		d.sendError(connID, err.Error())
		return
	}

	res, err := d.orchestrator.Vote(req.SessionID, connID, req.OptionID)
	if err != nil {
		d.sendError(connID, errorMessage(err))
		return
	}

	d.send(connID, dto.EventVoteRecorded, res)
}

func (d *Dispatcher) send(connID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(outboundFrame{Event: event, Data: data})
	if err != nil {
		return
	}
	d.hub.SendToConn(connID, frame)
}

func (d *Dispatcher) sendError(connID, message string) {
	d.send(connID, dto.EventError, dto.ErrorResponse{Message: message})
}

// errorMessage maps rejection errors to the strings clients display.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, service.ErrNotInSession):
		return "Not in a session"
	case errors.Is(err, service.ErrNoParticipants):
		return "Cannot start voting with no participants"
	case errors.Is(err, service.ErrNoOptions):
		return "No voting options available"
	case errors.Is(err, service.ErrWrongPhase):
		return "Action not allowed right now"
	case errors.Is(err, service.ErrVoteRejected):
		return "Failed to record vote"
	default:
		return "Internal error"
	}
}
