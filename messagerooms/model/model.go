// Package model holds the records exchanged with the MessageRooms server.
//
// The server owns the shape of users, rooms and messages; the client only
// relies on a handful of fields (ids, names, message text). Only ids are
// decoded strictly. Any other key that is unknown, or does not fit its typed
// field, is retained in Attrs so records survive a decode/encode round trip.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ID identifies a user, room or message. The server emits ids either as
// JSON strings or as numbers; both decode to the same textual form. Records
// remember which form each id arrived in and encode it back the same way.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id must be a string or number: %w", err)
		}
		*id = ID(n.String())
		return nil
	}
}

func (id ID) String() string { return string(id) }

// numberKeys lists the id keys of a record that arrived as JSON numbers.
type numberKeys map[string]bool

// User is the authenticated account record.
type User struct {
	ID       ID
	Nickname string
	Attrs    map[string]any

	numbers numberKeys
}

func (u *User) UnmarshalJSON(b []byte) error {
	r, err := parseRecord(b)
	if err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	out, err := r.user()
	if err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	*u = out
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	m := cloneAttrs(u.Attrs)
	u.numbers.putID(m, "id", u.ID)
	putString(m, "nickname", u.Nickname)
	return json.Marshal(m)
}

// Room is a chat room as listed by the server.
type Room struct {
	ID        ID
	RoomName  string
	UserID    ID
	CreatedBy *User
	Users     []User
	Attrs     map[string]any

	numbers numberKeys
}

func (r *Room) UnmarshalJSON(b []byte) error {
	rec, err := parseRecord(b)
	if err != nil {
		return fmt.Errorf("decode room: %w", err)
	}
	out, err := rec.room()
	if err != nil {
		return fmt.Errorf("decode room: %w", err)
	}
	*r = out
	return nil
}

func (r Room) MarshalJSON() ([]byte, error) {
	m := cloneAttrs(r.Attrs)
	r.numbers.putID(m, "id", r.ID)
	putString(m, "room_name", r.RoomName)
	r.numbers.putID(m, "user_id", r.UserID)
	if r.CreatedBy != nil {
		m["created_by"] = *r.CreatedBy
	}
	if len(r.Users) > 0 {
		m["users"] = r.Users
	}
	return json.Marshal(m)
}

// Name returns the display name of the room, falling back to its id.
func (r Room) Name() string {
	if r.RoomName != "" {
		return r.RoomName
	}
	if s, ok := r.Attrs["name"].(string); ok && s != "" {
		return s
	}
	return string(r.ID)
}

// RoomDetail is the selected room together with the caller's membership.
type RoomDetail struct {
	Room     Room `json:"roomDetails"`
	IsMember bool `json:"is_member"`
}

// Message is a single chat message posted to a room.
type Message struct {
	ID          ID
	RoomID      ID
	UserID      ID
	MessageText string
	CreatedAt   time.Time
	CreatedBy   *User
	Attrs       map[string]any

	numbers numberKeys
}

func (m *Message) UnmarshalJSON(b []byte) error {
	r, err := parseRecord(b)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	out, err := r.message()
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	*m = out
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := cloneAttrs(m.Attrs)
	m.numbers.putID(out, "id", m.ID)
	m.numbers.putID(out, "room_id", m.RoomID)
	m.numbers.putID(out, "user_id", m.UserID)
	putString(out, "message_text", m.MessageText)
	if !m.CreatedAt.IsZero() {
		out["created_at"] = m.CreatedAt.Format(time.RFC3339)
	}
	if m.CreatedBy != nil {
		out["created_by"] = *m.CreatedBy
	}
	return json.Marshal(out)
}

// Text returns the message body. Older servers send it as "text".
func (m Message) Text() string {
	if m.MessageText != "" {
		return m.MessageText
	}
	if s, ok := m.Attrs["text"].(string); ok {
		return s
	}
	return ""
}

// Author returns the nickname of the sender when the server included it.
func (m Message) Author() string {
	if m.CreatedBy != nil && m.CreatedBy.Nickname != "" {
		return m.CreatedBy.Nickname
	}
	return string(m.UserID)
}

// timeLayouts are tried in order for string timestamps. The second is the
// DATETIME form MySQL-backed servers emit.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05"}

// record is a JSON object being consumed into a typed value. Keys are
// removed as they are taken; whatever is left becomes Attrs.
type record struct {
	rest    map[string]any
	numbers numberKeys
}

func parseRecord(data []byte) (*record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &record{rest: map[string]any{}}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return &record{rest: raw}, nil
}

func (r *record) user() (User, error) {
	var (
		u   User
		err error
	)
	if u.ID, err = r.id("id"); err != nil {
		return User{}, err
	}
	r.take("nickname", &u.Nickname)
	u.Attrs, u.numbers = r.remainder(), r.numbers
	return u, nil
}

func (r *record) room() (Room, error) {
	var (
		room Room
		err  error
	)
	if room.ID, err = r.id("id"); err != nil {
		return Room{}, err
	}
	r.take("room_name", &room.RoomName)
	room.UserID = r.optionalID("user_id")
	room.CreatedBy = r.nestedUser("created_by")
	room.Users = r.users("users")
	room.Attrs, room.numbers = r.remainder(), r.numbers
	return room, nil
}

func (r *record) message() (Message, error) {
	var (
		m   Message
		err error
	)
	if m.ID, err = r.id("id"); err != nil {
		return Message{}, err
	}
	if m.RoomID, err = r.id("room_id"); err != nil {
		return Message{}, err
	}
	m.UserID = r.optionalID("user_id")
	r.take("message_text", &m.MessageText)
	r.take("created_at", &m.CreatedAt)
	m.CreatedBy = r.nestedUser("created_by")
	m.Attrs, m.numbers = r.remainder(), r.numbers
	return m, nil
}

// id takes key as an identifier; anything but a string, number or null is
// an error.
func (r *record) id(key string) (ID, error) {
	v, ok := r.rest[key]
	if !ok {
		return "", nil
	}
	switch v := v.(type) {
	case nil:
		delete(r.rest, key)
		return "", nil
	case string:
		delete(r.rest, key)
		return ID(v), nil
	case json.Number:
		delete(r.rest, key)
		if r.numbers == nil {
			r.numbers = numberKeys{}
		}
		r.numbers[key] = true
		return ID(v.String()), nil
	default:
		return "", fmt.Errorf("%s must be a string or number, got %T", key, v)
	}
}

// optionalID is id for references the client does not rely on. A value of
// the wrong type stays in Attrs.
func (r *record) optionalID(key string) ID {
	id, err := r.id(key)
	if err != nil {
		return ""
	}
	return id
}

// take decodes key into dst with weak typing. When the value does not fit,
// dst is left untouched and the value stays in Attrs.
func (r *record) take(key string, dst any) {
	v, ok := r.rest[key]
	if !ok {
		return
	}
	if v == nil {
		delete(r.rest, key)
		return
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		DecodeHook:       timeHook,
	})
	if err != nil {
		return
	}
	if err := decoder.Decode(v); err != nil {
		return
	}
	delete(r.rest, key)
}

func (r *record) nestedUser(key string) *User {
	m, ok := r.rest[key].(map[string]any)
	if !ok {
		return nil
	}
	u, err := (&record{rest: cloneAttrs(m)}).user()
	if err != nil {
		return nil
	}
	delete(r.rest, key)
	return &u
}

// users takes a list of user objects; one bad element keeps the whole list
// in Attrs.
func (r *record) users(key string) []User {
	list, ok := r.rest[key].([]any)
	if !ok {
		return nil
	}
	out := make([]User, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil
		}
		u, err := (&record{rest: cloneAttrs(m)}).user()
		if err != nil {
			return nil
		}
		out = append(out, u)
	}
	delete(r.rest, key)
	return out
}

func (r *record) remainder() map[string]any {
	if len(r.rest) == 0 {
		return nil
	}
	return r.rest
}

// timeHook turns unix seconds and the known string layouts into time.Time.
func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	switch v := data.(type) {
	case json.Number:
		secs, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return time.Unix(secs, 0).UTC(), nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("unrecognised time %q", v)
	}
	return data, nil
}

// putID writes id under key, as a number when it was received as one.
func (n numberKeys) putID(m map[string]any, key string, id ID) {
	if id == "" {
		return
	}
	if n[key] && isNumber(string(id)) {
		m[key] = json.Number(id)
		return
	}
	m[key] = string(id)
}

func isNumber(s string) bool {
	if s == "" || !(s[0] == '-' || (s[0] >= '0' && s[0] <= '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

func cloneAttrs(attrs map[string]any) map[string]any {
	m := make(map[string]any, len(attrs)+4)
	for k, v := range attrs {
		m[k] = v
	}
	return m
}

func putString(m map[string]any, key, value string) {
	if value == "" {
		return
	}
	m[key] = value
}
