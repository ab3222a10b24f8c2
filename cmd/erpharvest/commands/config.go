package commands

import (
	"time"

	"erpharvest/lib/configutil"
	"erpharvest/services/harvest/ids"
	"erpharvest/services/harvest/report"
)

type HttpConfig struct {
	TimeoutSeconds   int `json:"timeout_seconds"`
	MaxRetries       int `json:"max_retries"`
	RetryWaitSeconds int `json:"retry_wait_seconds"`
}

type OutputConfig struct {
	ResultsDir  string `json:"results_dir"`
	ResumeDir   string `json:"resume_dir"`
	MetadataDir string `json:"metadata_dir"`
}

type Config struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`

	// pause between consecutive page requests
	DelayMs  int `json:"delay_ms"`
	JitterMs int `json:"jitter_ms"`

	// ids at or above this value are treated as real-space when no
	// --space flag is given
	AutoSpaceThreshold int64 `json:"auto_space_threshold"`

	Http   HttpConfig        `json:"http"`
	Output OutputConfig      `json:"output"`
	Smtp   report.SmtpConfig `json:"smtp"`
}

func readConfig() (Config, error) {
	config, err := configutil.ReadConfig[Config](configFile)
	if err != nil {
		return Config{}, err
	}
	if config.DelayMs <= 0 {
		config.DelayMs = 2000
	}
	if config.AutoSpaceThreshold <= 0 {
		config.AutoSpaceThreshold = ids.DefaultAutoThreshold
	}
	if config.Output.ResultsDir == "" {
		config.Output.ResultsDir = "results"
	}
	if config.Output.ResumeDir == "" {
		config.Output.ResumeDir = "Resume"
	}
	if config.Output.MetadataDir == "" {
		config.Output.MetadataDir = "metadata"
	}
	return config, nil
}

func (c Config) delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

func (c Config) jitter() time.Duration {
	return time.Duration(c.JitterMs) * time.Millisecond
}
