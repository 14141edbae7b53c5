package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/open-teleop/console/pkg/config"
	customlog "github.com/open-teleop/console/pkg/log"
)

// ConfigObserver is notified after a new configuration has been persisted and applied.
// This avoids a direct dependency on the teleop service.
type ConfigObserver interface {
	ConfigUpdated(cfg *config.Config)
}

// ConfigObserverFunc adapts a function to ConfigObserver.
type ConfigObserverFunc func(cfg *config.Config)

func (f ConfigObserverFunc) ConfigUpdated(cfg *config.Config) { f(cfg) }

// TeleopConfigService defines the interface for managing the operational bindings configuration.
type TeleopConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.Config
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	UpdateKeyBindings(kb config.KeyBindings) error
	UpdateGamepadBindings(gb config.GamepadBindings) error
	SetObserver(o ConfigObserver)
}

// teleopConfigService implements the TeleopConfigService interface.
// currentConfig is never mutated in place: updates swap in a new value, so a
// pointer handed out by GetCurrentConfig stays consistent for its reader.
type teleopConfigService struct {
	operationalConfigPath string
	logger                customlog.Logger
	observer              ConfigObserver
	currentConfig         *config.Config
	mu                    sync.RWMutex
	now                   func() time.Time
}

// NewTeleopConfigService creates a new TeleopConfigService and loads the bindings file.
// A missing or unreadable file is replaced with the default bindings.
func NewTeleopConfigService(operationalConfigPath string, logger customlog.Logger) (TeleopConfigService, error) {
	if operationalConfigPath == "" {
		return nil, fmt.Errorf("operational configuration path cannot be empty")
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}

	service := &teleopConfigService{
		operationalConfigPath: operationalConfigPath,
		logger:                logger.WithField("component", "config"),
		currentConfig:         config.DefaultConfig(),
		now:                   time.Now,
	}

	if err := service.LoadConfig(); err != nil {
		return nil, err
	}

	service.logger.Infof("TeleopConfigService initialized for path: %s", operationalConfigPath)
	return service, nil
}

// LoadConfig reads the bindings file from disk and makes it current.
// Missing file: defaults are written. Corrupt or invalid file: it is deleted and
// defaults are written in its place. Only a failure to write defaults is returned.
func (s *teleopConfigService) LoadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading operational configuration from: %s", s.operationalConfigPath)
	data, err := os.ReadFile(s.operationalConfigPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warnf("Failed to read config '%s': %v. Using default config.", s.operationalConfigPath, err)
			s.currentConfig = config.DefaultConfig()
			return nil
		}
		s.logger.Infof("No operational config at '%s', writing defaults", s.operationalConfigPath)
		return s.resetToDefaultsUnlocked()
	}

	cfg, err := config.ParseConfig(data)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		s.logger.Warnf("Failed to parse config '%s': %v. Using default config.", s.operationalConfigPath, err)
		if rmErr := os.Remove(s.operationalConfigPath); rmErr != nil {
			s.logger.Warnf("Failed to delete corrupted config: %v", rmErr)
		} else {
			s.logger.Warnf("Deleted corrupted config file.")
		}
		return s.resetToDefaultsUnlocked()
	}

	s.currentConfig = cfg
	s.logger.Infof("Loaded operational configuration ID: %s, Version: %s", cfg.ConfigID, cfg.Version)
	return nil
}

func (s *teleopConfigService) resetToDefaultsUnlocked() error {
	cfg := config.DefaultConfig()
	cfg.LastUpdated = s.now().UTC().Format(time.RFC3339)
	s.currentConfig = cfg

	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("error serializing default config: %w", err)
	}
	return s.persistConfigUnlocked(data)
}

// GetCurrentConfig returns the current configuration snapshot. Callers must treat it as read-only.
func (s *teleopConfigService) GetCurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML reads the bindings file from disk and returns its raw YAML content.
func (s *teleopConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	path := s.operationalConfigPath
	s.mu.RUnlock()

	s.logger.Debugf("Reading raw operational configuration YAML from: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Errorf("Error reading operational config file '%s' for YAML export: %v", path, err)
		return nil, fmt.Errorf("error reading operational config file '%s': %w", path, err)
	}
	return data, nil
}

// UpdateConfig validates, persists and applies a complete configuration given as YAML.
func (s *teleopConfigService) UpdateConfig(newConfigYAML []byte) error {
	newCfg, err := config.ParseConfig(newConfigYAML)
	if err != nil {
		s.logger.Errorf("Failed to parse provided YAML configuration: %v", err)
		return &config.ValidationError{Field: "yaml", Reason: err.Error()}
	}
	return s.apply(func(cfg *config.Config) { *cfg = *newCfg })
}

// UpdateKeyBindings replaces the keyboard bindings and keeps everything else.
func (s *teleopConfigService) UpdateKeyBindings(kb config.KeyBindings) error {
	return s.apply(func(cfg *config.Config) { cfg.Keyboard = kb })
}

// UpdateGamepadBindings replaces the gamepad bindings and keeps everything else.
func (s *teleopConfigService) UpdateGamepadBindings(gb config.GamepadBindings) error {
	return s.apply(func(cfg *config.Config) { cfg.Gamepad = gb })
}

// apply copies the current config, lets mutate edit the copy, then validates,
// persists and swaps it in. All of it happens under the write lock so
// concurrent partial updates cannot drop each other.
func (s *teleopConfigService) apply(mutate func(cfg *config.Config)) error {
	s.mu.Lock()
	newCfg := *s.currentConfig
	mutate(&newCfg)

	if err := newCfg.Validate(); err != nil {
		s.mu.Unlock()
		s.logger.Errorf("Rejected configuration: %v", err)
		return err
	}
	if newCfg.ConfigID == "" {
		newCfg.ConfigID = "custom"
	}
	newCfg.LastUpdated = s.now().UTC().Format(time.RFC3339)

	data, err := newCfg.Marshal()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("error serializing config: %w", err)
	}
	// Persist before applying so a write failure leaves the active config untouched.
	if err := s.persistConfigUnlocked(data); err != nil {
		s.mu.Unlock()
		return err
	}
	oldCfgID := s.currentConfig.ConfigID
	s.currentConfig = &newCfg
	observer := s.observer
	s.mu.Unlock()

	s.logger.Infof("Updated operational configuration. ID %s -> %s, Version: %s", oldCfgID, newCfg.ConfigID, newCfg.Version)

	if observer != nil {
		go observer.ConfigUpdated(&newCfg)
	} else {
		s.logger.Debugf("No config observer registered, skipping update notification.")
	}
	return nil
}

// persistConfigUnlocked writes through a temp file and rename. Caller holds the lock.
func (s *teleopConfigService) persistConfigUnlocked(yamlData []byte) error {
	dir := filepath.Dir(s.operationalConfigPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory '%s': %w", dir, err)
	}

	tmp := s.operationalConfigPath + ".tmp"
	if err := os.WriteFile(tmp, yamlData, 0644); err != nil {
		s.logger.Errorf("Error writing operational config file '%s': %v", tmp, err)
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	if err := os.Rename(tmp, s.operationalConfigPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	s.logger.Debugf("Persisted configuration to %s", s.operationalConfigPath)
	return nil
}

// SetObserver registers the component notified after each successful update.
func (s *teleopConfigService) SetObserver(o ConfigObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}
