package assign

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/randalmurphal/taskmentor/pkg/docstore"
)

// Collection names. Field names in the records below are the persisted
// contract shared with existing data.
const (
	GoalsCollection    = "goals"
	TasksCollection    = "tasks"
	ProjectsCollection = "projects"
	ChatsCollection    = "chats"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// ProjectActive is the status of projects eligible for planning.
const ProjectActive = "active"

// Chat author types.
const (
	UserTypeUser  = "user"
	UserTypeAgent = "agent"
)

// GoalText is a user's goals as free text. It also decodes the legacy
// representation, an array of strings, by joining the entries with newlines.
type GoalText string

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (g *GoalText) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*g = GoalText(rv.StringValue())
	case bsontype.Array:
		vals, err := rv.Array().Values()
		if err != nil {
			return fmt.Errorf("decode goals array: %w", err)
		}
		lines := make([]string, 0, len(vals))
		for _, v := range vals {
			if s, ok := v.StringValueOK(); ok {
				lines = append(lines, s)
			}
		}
		*g = GoalText(strings.Join(lines, "\n"))
	case bsontype.Null, bsontype.Undefined:
		*g = ""
	default:
		return fmt.Errorf("decode goals: unexpected BSON type %s", t)
	}
	return nil
}

// Lines splits the text into individual goals, one per non-blank line.
func (g GoalText) Lines() []string {
	var out []string
	for _, line := range strings.Split(string(g), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// GoalRecord is a user's stored goals, unique per UserID.
type GoalRecord struct {
	ID        docstore.ID `bson:"_id,omitempty" json:"_id,omitempty"`
	UserID    string      `bson:"userId" json:"userId"`
	Goals     GoalText    `bson:"goals" json:"goals"`
	CreatedAt time.Time   `bson:"created_at,omitempty" json:"created_at,omitzero"`
	UpdatedAt time.Time   `bson:"updated_at,omitempty" json:"updated_at,omitzero"`
}

// Task is a unit of work assigned to a user.
type Task struct {
	ID          docstore.ID `bson:"_id,omitempty" json:"_id,omitempty"`
	ProjectID   string      `bson:"project_id" json:"project_id"`
	Title       string      `bson:"title" json:"title"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
	Status      string      `bson:"status" json:"status"`
	AssignedTo  string      `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	CreatedAt   time.Time   `bson:"created_at,omitempty" json:"created_at,omitzero"`
}

// Project is read-only from this service's point of view.
type Project struct {
	ID          docstore.ID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name        string      `bson:"name" json:"name"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
	Status      string      `bson:"status" json:"status"`
	CreatedAt   time.Time   `bson:"created_at,omitempty" json:"created_at,omitzero"`
}

// ChatMessage is one entry of a user's chat history.
type ChatMessage struct {
	ID        docstore.ID `bson:"_id,omitempty" json:"_id,omitempty"`
	UserID    string      `bson:"userId" json:"userId"`
	UserType  string      `bson:"userType" json:"userType"`
	Message   string      `bson:"message" json:"message"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
}
