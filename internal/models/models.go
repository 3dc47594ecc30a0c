// package models defines the data model for the ledger sync engine
package models

import (
	"fmt"
	"strings"
)

// APIVersion selects the wire protocol used to talk to a server.
//
// The integer values match the codes persisted by earlier releases so stored
// profiles keep their selection.
type APIVersion int

const (
	APIAuto  APIVersion = 0
	APIHTML  APIVersion = 1
	APIv1_32 APIVersion = -6
	APIv1_40 APIVersion = -7
	APIv1_50 APIVersion = -8
)

// JSONVersions lists the JSON protocol versions newest first.
func JSONVersions() []APIVersion {
	return []APIVersion{APIv1_50, APIv1_40, APIv1_32}
}

// APIVersionFromCode maps a persisted code to an [APIVersion]. Unknown codes, including
// those of retired protocol versions, map to [APIAuto].
func APIVersionFromCode(code int) APIVersion {
	switch v := APIVersion(code); v {
	case APIAuto, APIHTML, APIv1_32, APIv1_40, APIv1_50:
		return v
	default:
		return APIAuto
	}
}

// ParseAPIVersion parses the textual form used in configuration files.
func ParseAPIVersion(s string) (APIVersion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "automatic":
		return APIAuto, nil
	case "html", "legacy":
		return APIHTML, nil
	case "1.32", "v1.32", "v1_32":
		return APIv1_32, nil
	case "1.40", "v1.40", "v1_40":
		return APIv1_40, nil
	case "1.50", "v1.50", "v1_50":
		return APIv1_50, nil
	default:
		return APIAuto, fmt.Errorf("unknown api version %q", s)
	}
}

// Code returns the persisted integer code.
func (v APIVersion) Code() int { return int(v) }

// IsJSON reports whether v names an explicit JSON protocol version.
func (v APIVersion) IsJSON() bool {
	switch v {
	case APIv1_32, APIv1_40, APIv1_50:
		return true
	}
	return false
}

// Description is the human readable label.
func (v APIVersion) Description() string {
	switch v {
	case APIAuto:
		return "(automatic)"
	case APIHTML:
		return "(HTML)"
	case APIv1_32:
		return "1.32"
	case APIv1_40:
		return "1.40"
	case APIv1_50:
		return "1.50"
	default:
		return fmt.Sprintf("unknown(%d)", int(v))
	}
}

// String returns the configuration form of v.
func (v APIVersion) String() string {
	switch v {
	case APIAuto:
		return "auto"
	case APIHTML:
		return "html"
	default:
		return v.Description()
	}
}

// Credentials holds HTTP basic auth settings.
type Credentials struct {
	User     string
	Password string
}

// Profile describes a remote ledger server.
//
// A Profile with an empty ID has not been saved and cannot be used to submit transactions.
type Profile struct {
	ID              string
	Name            string
	URL             string
	Auth            *Credentials
	APIVersion      APIVersion
	DefaultCurrency string
}

// HasIdentity reports whether the profile was saved.
func (p Profile) HasIdentity() bool {
	return p.ID != ""
}

// UsesAuth reports whether requests should carry basic auth credentials.
func (p Profile) UsesAuth() bool {
	return p.Auth != nil && p.Auth.User != ""
}

// WithAPIVersion returns a copy of p with the protocol selector replaced.
func (p Profile) WithAPIVersion(v APIVersion) Profile {
	p.APIVersion = v
	return p
}

// Label returns the name if set, falling back to the URL.
func (p Profile) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.URL
}
