package config

// Config is the app-level configuration file (YAML or JSON).
//
// This is deployment configuration only. Per-tenant feature settings
// (routing-table registrations, feed subscriptions, ...) live in the
// settings store, not here.
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Logging LoggingConfig `json:"logging"`
	Store   StoreConfig   `json:"store"`
	Feed    FeedConfig    `json:"feed"`
	HTTP    HTTPConfig    `json:"http"`
	Rules   RulesConfig   `json:"rules"`
	Recruit RecruitConfig `json:"recruit"`
}

type GatewayConfig struct {
	// Driver selects a registered gateway transport.
	Driver string `json:"driver"`
	Token  string `json:"token"`
	AppID  string `json:"app_id"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type StoreConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (e.g. "500ms", "2s").
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type FeedConfig struct {
	APIKey string `json:"api_key"`
	// Interval is a Go duration string; defaults to "1m".
	Interval string `json:"interval,omitempty"`
}

type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default ":3000"
}

// RulesConfig names the channels the local post rules watch.
type RulesConfig struct {
	TriageChannelName     string `json:"triage_channel_name"`      // level-routing triage channel
	FriendCodeChannelID   string `json:"friend_code_channel_id"`   // 8-character-only channel
	ForbiddenTerminalRune string `json:"forbidden_terminal_rune"`  // word-chain terminal rune(s)
}

type RecruitConfig struct {
	// Cooldown is a Go duration string; defaults to "5m".
	Cooldown string `json:"cooldown,omitempty"`
}
