// Package entity defines the entities and errors used in the application.
// It mirrors the records returned by the short.io API (domains and links)
// together with the error taxonomy shared by every layer.
package entity

import "time"

// Domain is a hostname usable as a shortening namespace.
type Domain struct {
	ID              int64     `json:"id"`
	Hostname        string    `json:"hostname"`
	UnicodeHostname string    `json:"unicodeHostname,omitempty"`
	Title           string    `json:"title,omitempty"`
	LinkType        string    `json:"linkType,omitempty"`
	State           string    `json:"state,omitempty"`
	HTTPSLinks      bool      `json:"httpsLinks"`
	IsFavorite      bool      `json:"isFavorite"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FindDomain returns the domain with the given hostname.
// An empty hostname or no match falls back to the first domain.
func FindDomain(domains []Domain, hostname string) (Domain, bool) {
	if len(domains) == 0 {
		return Domain{}, false
	}

	for _, d := range domains {
		if hostname != "" && d.Hostname == hostname {
			return d, true
		}
	}

	return domains[0], true
}
