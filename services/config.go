package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Export  ExportConfig  `yaml:"export"`
	Upload  UploadConfig  `yaml:"upload"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Listen      string `yaml:"listen"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
	StaticDir   string `yaml:"static_dir"`
}

type ExportConfig struct {
	Quality     int    `yaml:"quality"`
	Workers     int    `yaml:"workers"`
	ArchiveName string `yaml:"archive_name"`
	OutputDir   string `yaml:"output_dir"`
}

type UploadConfig struct {
	Formats   []string `yaml:"formats"`
	MaxFileMB int      `yaml:"max_file_mb"`
}

type StorageConfig struct {
	Provider string   `yaml:"provider"`
	S3       S3Config `yaml:"s3"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig is used when no config file exists; a file only overrides
// the keys it sets.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:      "127.0.0.1:8080",
			BodyLimitMB: 64,
			StaticDir:   "./static",
		},
		Export: ExportConfig{
			Quality:     DefaultQuality,
			Workers:     4,
			ArchiveName: DefaultArchiveName,
			OutputDir:   "exports",
		},
		Upload: UploadConfig{
			Formats:   []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp"},
			MaxFileMB: 32,
		},
		Storage: StorageConfig{
			Provider: "local",
			S3:       S3Config{UseSSL: true, ForcePathStyle: true},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Export.Quality <= 0 || config.Export.Quality > 100 {
		return nil, fmt.Errorf("export.quality must be within 1..100, got %d", config.Export.Quality)
	}
	if config.Export.Workers < 1 {
		config.Export.Workers = 1
	}
	if config.Export.ArchiveName == "" {
		config.Export.ArchiveName = DefaultArchiveName
	}
	return config, nil
}
