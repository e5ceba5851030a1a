// Package datasets registers the report schemas with the core registry.
// Import this package to ensure both dataset kinds are registered.
package datasets
