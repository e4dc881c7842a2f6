package domain

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
)

// Client-to-server events.
const (
	EventCreateSession   = "createSession"
	EventJoinSession     = "joinSession"
	EventLeaveSession    = "leaveSession"
	EventLeaderUpdate    = "leaderUpdate"
	EventStateUpdate     = "stateUpdate" // global-deployment alias for leaderUpdate
	EventLeaderSeeked    = "leaderSeeked"
	EventFollowerTimeReq = "followerTimeReq"
	EventTimeResponse    = "timeResponse"
	EventChangeLeader    = "changeLeader"
)

// Server-to-client events.
const (
	EventUserID         = "userId"
	EventSessionCreated = "sessionCreated"
	EventSessionJoined  = "sessionJoined"
	EventSessionLeft    = "sessionLeft"
	EventFollowerUpdate = "followerUpdate"
	EventFollowerSeeked = "followerSeeked"
	EventLeadRequest    = "leadRequest"
	EventTimeRequest    = "timeRequest"
	EventTimeUpdate     = "timeUpdate"
	EventLeaderStatus   = "leaderStatus"
	EventError          = "error"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// PlaybackState is the payload a leader pushes: playhead position in
// milliseconds and whether playback is running. Fields are pointers so a
// missing field fails validation instead of silently defaulting.
type PlaybackState struct {
	LastKnownTime *float64 `json:"lastKnownTime" validate:"required,finite,gte=0"`
	IsPlaying     *bool    `json:"isPlaying" validate:"required"`
}

func (p PlaybackState) Time() float64 {
	if p.LastKnownTime == nil {
		return 0
	}
	return *p.LastKnownTime
}

func (p PlaybackState) Playing() bool {
	return p.IsPlaying != nil && *p.IsPlaying
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// Validate checks the payload field by field, lastKnownTime first, and maps
// the first failure to its wire error message.
func (p PlaybackState) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Field() == "IsPlaying" {
		return Validation("Invalid isPlaying.")
	}
	return Validation("Invalid lastKnownTime.")
}

// Connection is the transport-side handle for one client. The coordination
// core only sends events or closes; reading and keepalive stay transport-side.
type Connection interface {
	Send(event string, payload any) error
	Close() error
}

// MessageHandler consumes one inbound frame from an identified connection.
type MessageHandler interface {
	Handle(conn Connection, userID string, data []byte)
}

// Coordinator is the coordination core behind the wire protocol: identity,
// session membership, leadership and state relay.
type Coordinator interface {
	Connect(conn Connection) (userID string)
	Disconnect(userID string)
	CreateSession(userID string, state PlaybackState) (sessionID string, err error)
	JoinSession(userID, sessionID string) error
	LeaveSession(userID string) error
	ApplyLeaderUpdate(userID string, state PlaybackState) error
	ApplyLeaderSeek(userID string, state PlaybackState) error
	ToggleLeader(userID string) (bool, error)
	RequestTime(userID string) error
	ResolveTime(userID, requestID string, state json.RawMessage) error
}
