package catalog

import "slices"

const topEntries = 10

// Stats summarizes the catalog.
type Stats struct {
	Total          int            `json:"total_internships"`
	Paid           int            `json:"paid_internships"`
	Unpaid         int            `json:"unpaid_internships"`
	Remote         int            `json:"remote_internships"`
	OnSite         int            `json:"onsite_internships"`
	Domains        map[string]int `json:"domains"`
	TopLocations   []Count        `json:"top_locations"`
	TopCompanies   []Count        `json:"top_companies"`
	AverageStipend float64        `json:"average_stipend"`
}

type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (c *Catalog) Stats() Stats {
	stats := Stats{
		Total:        len(c.listings),
		Domains:      make(map[string]int),
		TopLocations: []Count{},
		TopCompanies: []Count{},
	}

	locations := newCounter()
	companies := newCounter()
	paidSum := 0.0

	for _, l := range c.listings {
		if l.IsPaid {
			stats.Paid++
			paidSum += float64(l.StipendAmount)
		}
		if l.IsRemote() {
			stats.Remote++
		}
		stats.Domains[l.Domain]++
		locations.add(l.Location)
		companies.add(l.Company)
	}

	stats.Unpaid = stats.Total - stats.Paid
	stats.OnSite = stats.Total - stats.Remote
	stats.TopLocations = locations.top(topEntries)
	stats.TopCompanies = companies.top(topEntries)

	if stats.Paid > 0 {
		stats.AverageStipend = paidSum / float64(stats.Paid)
	}

	return stats
}

// counter keeps first-seen order so equal counts rank by appearance.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(name string) {
	if _, ok := c.counts[name]; !ok {
		c.order = append(c.order, name)
	}
	c.counts[name]++
}

func (c *counter) top(n int) []Count {
	out := make([]Count, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, Count{Name: name, Count: c.counts[name]})
	}

	slices.SortStableFunc(out, func(a, b Count) int {
		return b.Count - a.Count
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
