package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// parseFlags registers the configuration flags on fs and parses args.
// Remaining positional arguments (e.g. a subcommand) stay available through
// fs.Args.
//
// Flags:
//
//	-a local API address in format [host]:[port]
//	-d local SQLite DSN
//	-c/-config json file path with configs
//	-driver remote driver (postgres, supabase, postgrest, memory)
//	-remote-dsn remote PostgreSQL DSN
//	-remote-url supabase project URL
//	-remote-key supabase API key
//	-health-url connectivity probe URL
//	-request-timeout remote request timeout (e.g., "30s", "1m")
//	-sync-interval background sync interval
//	-max-retries delivery attempts before an item is marked failed
//	-backup-dir backup output directory
//	-session session id used as relevance filter
//	-log-level zerolog level
func parseFlags(fs *flag.FlagSet, args []string) (*StructuredConfig, error) {
	if fs.Parsed() {
		return nil, errors.New("flags already parsed")
	}

	var serverAddress NetAddress
	var databaseDSN string
	var jsonConfigPath string
	var driver string
	var remoteDSN string
	var remoteURL string
	var remoteKey string
	var healthURL string
	var requestTimeout time.Duration
	var syncInterval time.Duration
	var maxRetries int
	var backupDir string
	var sessionID string
	var logLevel string

	fs.Var(&serverAddress, "a", "Local API address host:port")
	fs.StringVar(&databaseDSN, "d", "", "Local database DSN")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&driver, "driver", "", "Remote driver: postgres, supabase, postgrest or memory")
	fs.StringVar(&remoteDSN, "remote-dsn", "", "Remote PostgreSQL DSN")
	fs.StringVar(&remoteURL, "remote-url", "", "Supabase project URL")
	fs.StringVar(&remoteKey, "remote-key", "", "Supabase API key")
	fs.StringVar(&healthURL, "health-url", "", "Connectivity probe URL")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Remote request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval (e.g., 1m)")
	fs.IntVar(&maxRetries, "max-retries", 0, "Delivery attempts before a queue item is marked failed")
	fs.StringVar(&backupDir, "backup-dir", "", "Backup output directory")
	fs.StringVar(&sessionID, "session", "", "Session id used as relevance filter")
	fs.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &StructuredConfig{
		App: App{
			LogLevel:  logLevel,
			BackupDir: backupDir,
			SessionID: sessionID,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Adapter: Adapter{
			Driver:         driver,
			DSN:            remoteDSN,
			URL:            remoteURL,
			APIKey:         remoteKey,
			HealthURL:      healthURL,
			RequestTimeout: requestTimeout,
		},
		Server: Server{
			HTTPAddress: serverAddress.String(),
		},
		Workers: Workers{
			SyncInterval: syncInterval,
			MaxRetries:   maxRetries,
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
