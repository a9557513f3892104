package monitor

// Rules is the single current security-rule configuration owned by the
// monitor. It is replaced wholesale on update; every replacement is audited.
type Rules struct {
	MaxDailyAmount   float64  `json:"maxDailyAmount"`
	AllowedAddresses []string `json:"allowedAddresses"`
	AutoBlockUnknown bool     `json:"autoBlockUnknown"`
	AlertThreshold   float64  `json:"alertThreshold"`
}

// RulesUpdate is a partial rules change. Nil fields keep their current
// value; unknown fields are dropped during decoding.
type RulesUpdate struct {
	MaxDailyAmount   *float64 `json:"maxDailyAmount"`
	AllowedAddresses []string `json:"allowedAddresses"`
	AutoBlockUnknown *bool    `json:"autoBlockUnknown"`
	AlertThreshold   *float64 `json:"alertThreshold"`
}

// merge applies the non-nil fields of u over r and returns the result.
func (r Rules) merge(u RulesUpdate) Rules {
	out := r
	if u.MaxDailyAmount != nil {
		out.MaxDailyAmount = *u.MaxDailyAmount
	}
	if u.AllowedAddresses != nil {
		out.AllowedAddresses = append([]string(nil), u.AllowedAddresses...)
	}
	if u.AutoBlockUnknown != nil {
		out.AutoBlockUnknown = *u.AutoBlockUnknown
	}
	if u.AlertThreshold != nil {
		out.AlertThreshold = *u.AlertThreshold
	}
	return out
}

// clone returns a copy safe to hand to callers.
func (r Rules) clone() Rules {
	out := r
	out.AllowedAddresses = append([]string(nil), r.AllowedAddresses...)
	return out
}
