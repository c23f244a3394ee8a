package models

type DashboardStats struct {
	UniversitiesTotal         int `json:"universities_total"`
	UniversitiesCompeting     int `json:"universities_competing"`
	PlayersTotal              int `json:"players_total"`
	PlayersCheckedIn          int `json:"players_checked_in"`
	MatchesScheduled          int `json:"matches_scheduled"`
	MatchesLive               int `json:"matches_live"`
	MatchesCompleted          int `json:"matches_completed"`
	TournamentsTotal          int `json:"tournaments_total"`
	AdminRequestsPending      int `json:"admin_requests_pending"`
	UniversityRequestsPending int `json:"university_requests_pending"`
}

type SuperAdminDashboard struct {
	Stats              DashboardStats      `json:"stats"`
	AdminRequests      []AdminRequest      `json:"admin_requests"`
	UniversityRequests []UniversityRequest `json:"university_requests"`
}
