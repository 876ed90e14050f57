package fitting

import (
	"errors"
	"fmt"
)

const (
	DefaultSpeedThreshold        = 0.85
	DefaultEstimateSafetyFactor  = 0.95
	DefaultSynthesisSafetyFactor = 0.85
	DefaultCheapShortenRetries   = 2
	DefaultRealShortenRetries    = 2
)

var ErrInvalidConfig = errors.New("invalid fitting config")

type Config struct {
	// SpeedThreshold is the lowest available/actual ratio that is absorbed
	// by stretching instead of shortening.
	SpeedThreshold      float64
	CheapShortenRetries int
	RealShortenRetries  int
	// EstimateSafetyFactor scales the target ratio of estimate-driven
	// shortening.
	EstimateSafetyFactor float64
	// SynthesisSafetyFactor scales the target ratio of synthesis-driven
	// shortening.
	SynthesisSafetyFactor float64
	Language              string
}

func DefaultConfig() Config {
	return Config{
		SpeedThreshold:        DefaultSpeedThreshold,
		CheapShortenRetries:   DefaultCheapShortenRetries,
		RealShortenRetries:    DefaultRealShortenRetries,
		EstimateSafetyFactor:  DefaultEstimateSafetyFactor,
		SynthesisSafetyFactor: DefaultSynthesisSafetyFactor,
		Language:              "en",
	}
}

func (c Config) Validate() error {
	switch {
	case c.SpeedThreshold <= 0 || c.SpeedThreshold > 1:
		return fmt.Errorf("%w: speed threshold %v not in (0,1]", ErrInvalidConfig, c.SpeedThreshold)
	case c.CheapShortenRetries < 0:
		return fmt.Errorf("%w: cheap shorten retries %d < 0", ErrInvalidConfig, c.CheapShortenRetries)
	case c.RealShortenRetries < 0:
		return fmt.Errorf("%w: real shorten retries %d < 0", ErrInvalidConfig, c.RealShortenRetries)
	case c.EstimateSafetyFactor <= 0 || c.EstimateSafetyFactor > 1:
		return fmt.Errorf("%w: estimate safety factor %v not in (0,1]", ErrInvalidConfig, c.EstimateSafetyFactor)
	case c.SynthesisSafetyFactor <= 0 || c.SynthesisSafetyFactor > 1:
		return fmt.Errorf("%w: synthesis safety factor %v not in (0,1]", ErrInvalidConfig, c.SynthesisSafetyFactor)
	}
	return nil
}
