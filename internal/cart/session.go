package cart

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	guestSessionPrefix = "sess_"
	userSessionPrefix  = "user_"
)

// NewSessionID issues an opaque guest cart key: sess_<unixMillis>_<random>.
func NewSessionID() string {
	return newSessionIDAt(time.Now())
}

func newSessionIDAt(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s%d_%s", guestSessionPrefix, now.UnixMilli(), random)
}

// UserSessionID is the cart key that owns a signed-in user's lines.
func UserSessionID(userID int64) string {
	return fmt.Sprintf("%s%d", userSessionPrefix, userID)
}

// IsGuestSession reports whether sessionID was issued to an anonymous visitor.
func IsGuestSession(sessionID string) bool {
	return strings.HasPrefix(sessionID, guestSessionPrefix)
}

// SessionOwner returns the user that owns a user_<id> cart key.
func SessionOwner(sessionID string) (int64, bool) {
	raw, ok := strings.CutPrefix(sessionID, userSessionPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
