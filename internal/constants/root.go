package constants

import "time"

const (
	AppName            = "moldtrack"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/moldtrack"
	DefaultConfigPath  = "~/.config/moldtrack/config.yaml"
	DefaultDatabase    = "~/.config/moldtrack/moldtrack.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// DateTimeFormat is used when printing timestamps to the terminal
	DateTimeFormat = "2006-01-02 15:04"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "moldtrack-"
	BackupFileSuffix = ".db"

	// Event bus constants
	DefaultEventSubject   = "moldtrack.events"
	NATSFlushTimeout      = 5 * time.Second
	NATSReconnectWait     = 2 * time.Second
	NATSConnectTimeout    = 5 * time.Second
	DefaultBoardRefresh   = 10 * time.Second
	MinBoardRefreshPeriod = time.Second
)

const (
	// Ratings given by reviewers and at job completion
	MinRating = 1
	MaxRating = 10

	// Progress is stored as a whole percentage
	MinProgress = 0
	MaxProgress = 100
)

const (
	EnvDatabase = "MOLDTRACK_DATABASE"
	EnvNATSURL  = "MOLDTRACK_NATS_URL"
	EnvActor    = "MOLDTRACK_ACTOR"
)

func init() {
	if MinRating >= MaxRating || MinProgress >= MaxProgress {
		panic("rating and progress bounds must be ordered")
	}
}
