package model

// Metrics is the snapshot of derived quantities a signal was decided on.
type Metrics struct {
	Price                float64 `json:"price"`
	Position             float64 `json:"position"` // 0.0 ~ 1.0 within the 30-session range
	VolumeRatio          float64 `json:"volume_ratio"`
	VolumeRatioYesterday float64 `json:"volume_ratio_yesterday"`
	Volume5dRatio        float64 `json:"volume_5d_ratio"`
	PctChg               float64 `json:"pct_chg"`
}
