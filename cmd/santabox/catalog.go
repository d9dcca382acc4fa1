package main

import (
	"fmt"
	"strings"
)

type example struct {
	Day  int    `json:"day"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type exampleYear struct {
	Year     int       `json:"year"`
	Examples []example `json:"examples"`
}

// exampleDays lists the published solutions per year.
var exampleDays = []struct {
	year, days int
}{
	{2018, 14},
	{2022, 25},
}

// exampleCatalog returns the solution scripts the editor offers, hosted
// next to the puzzle inputs under baseURL.
func exampleCatalog(baseURL string) []exampleYear {
	baseURL = strings.TrimSuffix(baseURL, "/")

	catalog := make([]exampleYear, 0, len(exampleDays))
	for _, y := range exampleDays {
		group := exampleYear{Year: y.year, Examples: make([]example, 0, y.days)}
		for day := 1; day <= y.days; day++ {
			name := fmt.Sprintf("aoc%d_day%02d.santa", y.year, day)
			group.Examples = append(group.Examples, example{
				Day:  day,
				Name: name,
				URL:  fmt.Sprintf("%s/%d/santa-lang/%s", baseURL, y.year, name),
			})
		}
		catalog = append(catalog, group)
	}
	return catalog
}
