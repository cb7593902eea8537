package config

import (
	"sort"
	"strings"
)

// Table is the defaults table consulted in non-interactive runs. Keys are
// installer form field names plus a few driver settings (host,
// download_processwire, processwire_version, download_rockfrontend).
type Table map[string]any

// BuiltinTable returns a fresh copy of the built-in defaults, tuned for a
// DDEV project with the stock db/db/db credentials.
func BuiltinTable() Table {
	return Table{
		"debug":                 false,
		"download_processwire":  true,
		"processwire_version":   "dev",
		"download_rockfrontend": false,
		"profile":               "site-blank",
		"dbName":                "db",
		"dbUser":                "db",
		"dbPass":                "db",
		"dbHost":                "db",
		"dbCon":                 "Hostname",
		"dbPort":                "3306",
		"dbCharset":             "utf8mb4",
		"dbEngine":              "InnoDB",
		"dbTablesAction":        "remove",
		"admin_name":            "adm",
		"username":              "ddevadmin",
		"userpass":              "ddevadmin",
		"userpass_confirm":      "ddevadmin",
		"useremail":             "admin@example.com",
		"timezone":              "America/Bogota",
		"debugMode":             1,
	}
}

// Merge returns t overlaid with other. viper lowercases map keys, so an
// incoming key that matches an existing one case-insensitively replaces
// it under the existing spelling.
func (t Table) Merge(other map[string]any) Table {
	out := make(Table, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		key := k
		for existing := range t {
			if strings.EqualFold(existing, k) {
				key = existing
				break
			}
		}
		out[key] = v
	}
	return out
}

func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
