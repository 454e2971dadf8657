package backend

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/trackify-app/trackify/internal/domain/directory"
	"github.com/trackify-app/trackify/internal/domain/inspector"
	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/domain/session"
)

// envelope is the usual {"data": ..., "message": ...} response shape.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// unwrapData returns the "data" member of an enveloped response. A body
// without one is taken as a bare document only when it carries one of
// keys; anything else, such as {"message": "..."}, yields nil.
func unwrapData(body []byte, keys ...string) json.RawMessage {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return nil
	}
	if data, ok := members["data"]; ok {
		return data
	}
	for _, k := range keys {
		if _, ok := members[k]; ok {
			return body
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Members that identify a bare user or location document.
var (
	userKeys     = []string{"_id"}
	locationKeys = []string{"latitude", "longitude"}
)

// userDTO is the user document as the backend serializes it.
type userDTO struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	EmailID   string `json:"emailId"`
	IsAdmin   *bool  `json:"isAdmin"`
	IsOnline  bool   `json:"isOnline"`
}

func (u userDTO) toSession(area session.Area) *session.Session {
	role := area.DefaultRole()
	if u.IsAdmin != nil {
		role = session.RoleOrdinary
		if *u.IsAdmin {
			role = session.RoleAdministrator
		}
	}
	return &session.Session{
		UserID:    u.ID,
		FirstName: u.FirstName,
		EmailID:   u.EmailID,
		Role:      role,
		IsPresent: u.IsOnline,
		CreatedAt: time.Now().UTC(),
	}
}

func (u userDTO) toProfile() *inspector.Profile {
	return &inspector.Profile{
		UserID:    u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		EmailID:   u.EmailID,
		IsOnline:  u.IsOnline,
	}
}

// locationDTO is a stored location document.
type locationDTO struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Accuracy  float64    `json:"accuracy"`
	Speed     *float64   `json:"speed"`
	Timestamp *time.Time `json:"timestamp"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

func (l locationDTO) toSample() *location.PositionSample {
	s := &location.PositionSample{
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Accuracy:  l.Accuracy,
		Speed:     l.Speed,
	}
	switch {
	case l.Timestamp != nil:
		s.CapturedAt = *l.Timestamp
	case l.UpdatedAt != nil:
		s.CapturedAt = *l.UpdatedAt
	}
	return s
}

// usersPageDTO is the body of GET /admin/users.
type usersPageDTO struct {
	Data       []directory.Entry `json:"data"`
	Pagination struct {
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}
