package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated operator as seen by handlers, independent of
// how the token was carried.
type Identity interface {
	UserID() uuid.UUID
	// Actor returns the value recorded in audit trails: the display name when
	// the token carries one, otherwise the user id.
	Actor() string
	Roles() []string
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	name          string
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID { return i.userID }

func (i *identity) Actor() string {
	if i.name != "" {
		return i.name
	}
	if i.userID == uuid.Nil {
		return ""
	}
	return i.userID.String()
}

func (i *identity) Roles() []string { return i.roles }

func (i *identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }

func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	uid, ok := c.Value(ContextUserIDKey).(uuid.UUID)
	if !ok {
		return &identity{}
	}

	roleList, _ := c.Value(ContextRolesKey).([]string)
	name, _ := c.Value(ContextUserNameKey).(string)

	return &identity{
		userID:        uid,
		name:          name,
		roles:         roleList,
		authenticated: true,
	}
}
