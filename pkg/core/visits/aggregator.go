package visits

func newVisitsStats() VisitsStats {
	return VisitsStats{
		OS:           Stats{},
		Browsers:     Stats{},
		Referrers:    Stats{},
		Countries:    Stats{},
		Cities:       Stats{},
		CitiesForMap: map[string]CityStats{},
		VisitedURLs:  Stats{},
	}
}

// Aggregate folds visits into grouped statistics. It never fails: missing
// locations count as Unknown and unparseable coordinates as 0.
func Aggregate(visits []NormalizedVisit) VisitsStats {
	stats := newVisitsStats()
	for _, v := range visits {
		stats.OS[v.OS]++
		stats.Browsers[v.Browser]++
		// An empty referer is direct traffic and gets its own bucket.
		stats.Referrers[v.Referer]++
		stats.Countries[orUnknown(v.Country)]++
		stats.Cities[orUnknown(v.City)]++
		updateCitiesForMap(stats.CitiesForMap, v)
		if v.VisitedURL != nil {
			stats.VisitedURLs[*v.VisitedURL]++
		}
	}
	return stats
}

func updateCitiesForMap(cities map[string]CityStats, v NormalizedVisit) {
	if v.City == "" || v.City == Unknown {
		return
	}

	city, ok := cities[v.City]
	if !ok {
		// First seen coordinates are kept for the city.
		city = CityStats{
			CityName: v.City,
			LatLong:  [2]float64{coordinateOrZero(v.Latitude), coordinateOrZero(v.Longitude)},
		}
	}
	city.Count++
	cities[v.City] = city
}

func coordinateOrZero(c *Coordinate) float64 {
	if c == nil {
		return 0
	}
	return c.Float()
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

// Summarize counts the visits with and without the potential bot flag.
func Summarize(visits []NormalizedVisit) Highlights {
	h := Highlights{Total: len(visits)}
	for _, v := range visits {
		if v.PotentialBot {
			h.Bots++
		}
	}
	h.NonBots = h.Total - h.Bots
	return h
}

// FilterBots drops potential bots when exclude is set. The input is returned
// unchanged otherwise.
func FilterBots(visits []NormalizedVisit, exclude bool) []NormalizedVisit {
	if !exclude {
		return visits
	}
	out := make([]NormalizedVisit, 0, len(visits))
	for _, v := range visits {
		if !v.PotentialBot {
			out = append(out, v)
		}
	}
	return out
}
