package tasks

import "github.com/desertthunder/ledgerx/internal/models"

// VersionCatalog orders the protocol versions tried for a profile.
type VersionCatalog struct {
	versions []models.APIVersion
}

// DefaultCatalog knows every JSON version, newest first.
func DefaultCatalog() VersionCatalog {
	return VersionCatalog{versions: models.JSONVersions()}
}

// NewCatalog builds a catalog from versions in preference order. Non-JSON entries are ignored.
func NewCatalog(versions ...models.APIVersion) VersionCatalog {
	c := VersionCatalog{}
	for _, v := range versions {
		if v.IsJSON() {
			c.versions = append(c.versions, v)
		}
	}
	return c
}

// Candidates lists the versions to try for selector, always ending with [models.APIHTML]:
//   - auto: every JSON version, newest first
//   - an explicit version: that version only
//   - html: nothing but the HTML form
func (c VersionCatalog) Candidates(selector models.APIVersion) []models.APIVersion {
	var out []models.APIVersion
	switch {
	case selector == models.APIAuto:
		out = append(out, c.versions...)
	case selector.IsJSON():
		out = append(out, selector)
	}
	return append(out, models.APIHTML)
}

// JSONCandidates is [VersionCatalog.Candidates] without the HTML sentinel.
func (c VersionCatalog) JSONCandidates(selector models.APIVersion) []models.APIVersion {
	all := c.Candidates(selector)
	return all[:len(all)-1]
}
