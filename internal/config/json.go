package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

type StructuredJSONConfig struct {
	App struct {
		Version   string `json:"version"`
		LogLevel  string `json:"log_level"`
		LogFile   string `json:"log_file"`
		BackupDir string `json:"backup_dir"`
		SessionID string `json:"session_id"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Adapter struct {
		Driver         string   `json:"driver"`
		DSN            string   `json:"dsn"`
		URL            string   `json:"url"`
		APIKey         string   `json:"api_key"`
		AccessToken    string   `json:"access_token"`
		HealthURL      string   `json:"health_url"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	Workers struct {
		SyncInterval     Duration `json:"sync_interval"`
		ProbeInterval    Duration `json:"probe_interval"`
		MaxRetries       int      `json:"max_retries"`
		RetryBaseDelay   Duration `json:"retry_base_delay"`
		RetryMaxDelay    Duration `json:"retry_max_delay"`
		FullPullInterval Duration `json:"full_pull_interval"`
	} `json:"workers,omitempty"`

	Backup struct {
		BatchSize int `json:"batch_size"`
	} `json:"backup,omitempty"`

	Collections models.CollectionRegistry `json:"collections,omitempty"`
	Preferences models.PreferenceRegistry `json:"preferences,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			Version:   jsonCfg.App.Version,
			LogLevel:  jsonCfg.App.LogLevel,
			LogFile:   jsonCfg.App.LogFile,
			BackupDir: jsonCfg.App.BackupDir,
			SessionID: jsonCfg.App.SessionID,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Adapter: Adapter{
			Driver:         jsonCfg.Adapter.Driver,
			DSN:            jsonCfg.Adapter.DSN,
			URL:            jsonCfg.Adapter.URL,
			APIKey:         jsonCfg.Adapter.APIKey,
			AccessToken:    jsonCfg.Adapter.AccessToken,
			HealthURL:      jsonCfg.Adapter.HealthURL,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		Workers: Workers{
			SyncInterval:     time.Duration(jsonCfg.Workers.SyncInterval),
			ProbeInterval:    time.Duration(jsonCfg.Workers.ProbeInterval),
			MaxRetries:       jsonCfg.Workers.MaxRetries,
			RetryBaseDelay:   time.Duration(jsonCfg.Workers.RetryBaseDelay),
			RetryMaxDelay:    time.Duration(jsonCfg.Workers.RetryMaxDelay),
			FullPullInterval: time.Duration(jsonCfg.Workers.FullPullInterval),
		},
		Backup: Backup{
			BatchSize: jsonCfg.Backup.BatchSize,
		},
		Registries: Registries{
			Collections: jsonCfg.Collections,
			Preferences: jsonCfg.Preferences,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
