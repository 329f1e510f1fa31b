package model

import (
	"strings"
	"time"
)

// CompanySizeBands enumerates the recognized employee-count bands, ordered
// smallest to largest. Band adjacency for scoring is index distance.
var CompanySizeBands = []string{
	"1-10",
	"11-50",
	"51-200",
	"201-500",
	"501-1000",
	"1001-5000",
	"5001-10000",
	"10001+",
}

// CompanySizeBandIndex returns the position of band in CompanySizeBands,
// or -1 if the band is not recognized. Matching is case-insensitive on the
// literal band string.
func CompanySizeBandIndex(band string) int {
	for i, b := range CompanySizeBands {
		if strings.EqualFold(b, strings.TrimSpace(band)) {
			return i
		}
	}
	return -1
}

// RawProfile holds the public profile fields returned by a fetch. Produced
// once per successful fetch and never mutated afterward.
type RawProfile struct {
	URL             string    `json:"url"`
	Name            string    `json:"name,omitempty"`
	Headline        string    `json:"headline,omitempty"`
	CurrentPosition string    `json:"current_position,omitempty"`
	CurrentCompany  string    `json:"current_company,omitempty"`
	Location        string    `json:"location,omitempty"`
	Industry        string    `json:"industry,omitempty"`
	ExperienceYears int       `json:"experience_years,omitempty"`
	CompanySize     string    `json:"company_size,omitempty"`
	Skills          []string  `json:"skills,omitempty"`
	Education       []string  `json:"education,omitempty"`
	Connections     string    `json:"connections,omitempty"`
	About           string    `json:"about,omitempty"`
	FetchedAt       time.Time `json:"fetched_at"`
}
