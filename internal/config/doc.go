// Package config provides configuration loading, merging, and validation
// facilities for the spendlytics binaries.
//
// Configuration is assembled from multiple sources. For each field the
// first source that sets it wins:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON config file (the only source for the collection and preference
//     registries)
//  4. Built-in defaults
//
// The main entry points are [GetStructuredConfig] for the raw merged
// configuration and [GetClientConfig] for the validated runtime view.
package config
