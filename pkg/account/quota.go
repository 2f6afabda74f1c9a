package account

import (
	"encoding/json"
	"fmt"
)

const (
	warnPercent = 80.0
	fullPercent = 100.0
)

// Usage is the bandwidth part of the diagnose document. Fields the
// dispatcher does not interpret are kept in Extra.
type Usage struct {
	UsedGB      float64
	RemainingGB float64
	// HasRemaining is false when the server left remaining_gb out, in which
	// case no quota check is possible.
	HasRemaining bool
	Extra        map[string]any
}

func (u *Usage) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*u = Usage{Extra: raw}
	if v, ok := raw["used_gb"].(float64); ok {
		u.UsedGB = v
	}
	if v, ok := raw["remaining_gb"].(float64); ok {
		u.RemainingGB = v
		u.HasRemaining = true
	}
	return nil
}

// Total is used plus remaining
func (u Usage) Total() float64 {
	return u.UsedGB + u.RemainingGB
}

// Percent of the quota consumed, 0 when the total is unknown
func (u Usage) Percent() float64 {
	if !u.HasRemaining || u.Total() <= 0 {
		return 0
	}
	return u.UsedGB / u.Total() * 100
}

// QuotaError means the bandwidth quota is used up
type QuotaError struct {
	UsedGB  float64
	Percent float64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("bandwidth quota exceeded (%.2f GB used, %.0f%%)", e.UsedGB, e.Percent)
}

// CheckQuota reports warn at 80% and a *QuotaError at 100%.
// Without a usable total nothing is checked.
func CheckQuota(u Usage) (warn bool, err error) {
	if !u.HasRemaining || u.Total() <= 0 {
		return false, nil
	}
	pct := u.Percent()
	if pct >= fullPercent {
		return false, &QuotaError{UsedGB: u.UsedGB, Percent: pct}
	}
	return pct >= warnPercent, nil
}
