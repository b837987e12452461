package config

import (
	"time"

	"github.com/spf13/viper"
)

// Policy bounds one action kind: at most MaxRequests calls per fixed Window.
type Policy struct {
	Window      time.Duration
	MaxRequests int
}

// Action names shared by the limiter identifiers and the action guards.
const (
	ActionCreatePost    = "createPost"
	ActionCreateComment = "createComment"
	ActionDeleteComment = "deleteComment"
	ActionVote          = "vote"
	ActionDeleteAccount = "deleteAccount"
	ActionGeneral       = "general"
)

// DefaultPolicy applies to any action without an explicit entry.
var DefaultPolicy = Policy{
	Window:      time.Minute,
	MaxRequests: 60,
}

// Policies is the process-wide policy table. The vote policy is scoped
// per post, so 1 per window still lets a user vote on many posts.
var Policies = map[string]Policy{
	ActionCreatePost:    {Window: time.Hour, MaxRequests: 3},
	ActionCreateComment: {Window: time.Hour, MaxRequests: 10},
	ActionDeleteComment: {Window: time.Minute, MaxRequests: 10},
	ActionVote:          {Window: 10 * time.Second, MaxRequests: 1},
	ActionDeleteAccount: {Window: time.Hour, MaxRequests: 1},
	ActionGeneral:       DefaultPolicy,
}

// PolicyFor returns the policy for action, falling back to DefaultPolicy.
func PolicyFor(action string) Policy {
	if p, ok := Policies[action]; ok {
		return p
	}
	return DefaultPolicy
}

// Config holds runtime settings read from the environment.
type Config struct {
	ListenAddr  string
	StorageType string
	RedisAddr   string
	DatabaseDSN string
}

// Load reads runtime configuration from WRITEGATE_* environment
// variables with local-dev defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("writegate")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("storage_type", "memory")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("database_dsn", "file::memory:?cache=shared")

	return &Config{
		ListenAddr:  v.GetString("listen_addr"),
		StorageType: v.GetString("storage_type"),
		RedisAddr:   v.GetString("redis_addr"),
		DatabaseDSN: v.GetString("database_dsn"),
	}, nil
}
