package admin

import "math"

// DashboardResponse is the HTTP and CLI view of Stats, with pass rates also
// given as percentages rounded to one decimal.
type DashboardResponse struct {
	*Stats
	TheoryPassPercent    float64 `json:"theory_pass_percent"`
	PracticalPassPercent float64 `json:"practical_pass_percent"`
}

func NewDashboardResponse(st *Stats) DashboardResponse {
	return DashboardResponse{
		Stats:                st,
		TheoryPassPercent:    percent(st.TheoryPassRate),
		PracticalPassPercent: percent(st.PracticalPassRate),
	}
}

func percent(r float64) float64 {
	return math.Round(r*1000) / 10
}
