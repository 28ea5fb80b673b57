package models

type Stats struct {
	Items          int `json:"items"`
	Locations      int `json:"locations"`
	ChangelogTotal int `json:"changelog_total"`
	ChangesLast7d  int `json:"changes_last_7d"`
}
