package domain

type Tag struct {
	Name       string `json:"name"`
	LinksCount int64  `json:"links_count"`
	Visits     int64  `json:"visits"`
	Color      string `json:"color"`
	IsLight    bool   `json:"is_light"`
}

type Domain struct {
	Authority string `json:"authority"`
	IsDefault bool   `json:"is_default"`
}
