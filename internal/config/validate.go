package config

import (
	"fmt"
	"time"
)

// Bounds on user-tunable values
const (
	minRehideInterval = time.Second
	maxMoveAttempts   = 20
)

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if err := validateSettings(&c.Settings); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := validateCache(&c.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := validateMove(&c.Move); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	if c.Click.Timeout <= 0 {
		return fmt.Errorf("click: timeout must be positive")
	}
	if err := validateTempShow(&c.TempShow); err != nil {
		return fmt.Errorf("tempShow: %w", err)
	}
	return nil
}

func validateSettings(s *Settings) error {
	if s.RehideInterval.D() < minRehideInterval {
		return fmt.Errorf("rehideInterval %s is below the minimum %s", s.RehideInterval, minRehideInterval)
	}
	return nil
}

func validateCache(cc *CacheConfig) error {
	if cc.RefreshInterval <= 0 {
		return fmt.Errorf("refreshInterval must be positive")
	}
	if cc.MoveCooldown < 0 {
		return fmt.Errorf("moveCooldown must not be negative")
	}
	return nil
}

func validateMove(m *MoveConfig) error {
	if m.Attempts < 1 || m.Attempts > maxMoveAttempts {
		return fmt.Errorf("attempts must be between 1 and %d, got %d", maxMoveAttempts, m.Attempts)
	}
	if m.MinTimeout <= 0 {
		return fmt.Errorf("minTimeout must be positive")
	}
	if m.MaxTimeout < m.MinTimeout {
		return fmt.Errorf("maxTimeout %s is below minTimeout %s", m.MaxTimeout, m.MinTimeout)
	}
	if m.InitialTimeout < m.MinTimeout || m.InitialTimeout > m.MaxTimeout {
		return fmt.Errorf("initialTimeout %s is outside [%s, %s]", m.InitialTimeout, m.MinTimeout, m.MaxTimeout)
	}
	if m.QuiescenceTimeout <= 0 {
		return fmt.Errorf("quiescenceTimeout must be positive")
	}
	return nil
}

func validateTempShow(ts *TempShowConfig) error {
	if ts.SettleDelay < 0 {
		return fmt.Errorf("settleDelay must not be negative")
	}
	if ts.MaxRehideAttempts < 1 {
		return fmt.Errorf("maxRehideAttempts must be at least 1")
	}
	if ts.InterfaceRehideFactor < 1 {
		return fmt.Errorf("interfaceRehideFactor must be at least 1")
	}
	return nil
}
