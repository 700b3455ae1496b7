package history

import domain "github.com/Singh2236/chatLocalAnom/domain/chat"

// ServiceRecent is the request-reply service that returns a room's backlog.
const ServiceRecent = "recent"

// DefaultLimit bounds a history read when the caller does not.
const DefaultLimit = 100

// RecentRequest asks for the newest messages of a room.
type RecentRequest struct {
	Room  string `json:"room"`
	Limit int    `json:"limit"`
}

// RecentResponse carries messages oldest first.
type RecentResponse struct {
	Messages []domain.Message `json:"messages"`
}

// Config selects and configures a backend.
type Config struct {
	Backend       string
	DBPath        string
	DBDebug       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Limit         int
	Retention     int
}
