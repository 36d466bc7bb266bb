package tracker

import (
	"fmt"

	"github.com/banshee-data/trackinit/internal/config"
	"github.com/banshee-data/trackinit/internal/gating"
	"github.com/banshee-data/trackinit/internal/initiation"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Params are the resolved parameters of one initiation run.
type Params struct {
	DopplerThreshold float64         `json:"doppler_threshold" validate:"gt=0"`
	RangeThreshold   float64         `json:"range_threshold" validate:"gt=0"`
	TimeThreshold    float64         `json:"time_threshold" validate:"gte=0"`
	Mode             initiation.Mode `json:"mode" validate:"required"`
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	p, _ := ParamsFromConfig(config.DefaultTrackingConfig())
	return p
}

// ParamsFromConfig resolves cfg, applying defaults for unset fields.
func ParamsFromConfig(cfg *config.TrackingConfig) (Params, error) {
	if cfg == nil {
		cfg = config.EmptyTrackingConfig()
	}
	mode, err := cfg.GetMode()
	if err != nil {
		return Params{}, err
	}
	p := Params{
		DopplerThreshold: cfg.GetDopplerThreshold(),
		RangeThreshold:   cfg.GetRangeThreshold(),
		TimeThreshold:    cfg.GetTimeThreshold(),
		Mode:             mode,
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks the thresholds and the mode.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid tracker params: %w", err)
	}
	if !p.Mode.Valid() {
		return fmt.Errorf("%w: %d", initiation.ErrUnknownMode, uint8(p.Mode))
	}
	return nil
}

// Thresholds returns the gate widths.
func (p Params) Thresholds() gating.Thresholds {
	return gating.Thresholds{
		Doppler: p.DopplerThreshold,
		Range:   p.RangeThreshold,
		Time:    p.TimeThreshold,
	}
}
