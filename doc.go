// Package main provides the entry point of NITA, the internal tools portal.
// It serves a JSON API, built on Fiber, through which staff log in with a local,
// OpenLDAP or FreeIPA account and launch the internal services their roles grant.
// Administrators manage users, roles, the service registry and its icons.
// Persistence uses gorm with MySQL, PostgreSQL or SQLite.
package main
