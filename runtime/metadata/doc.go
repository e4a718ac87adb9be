// Package metadata holds emitted documentation metadata for introspection.
//
// Every compiled unit becomes an Entry keyed by its target: a symbol
// reference, or a guide title under its parent. Entries are JSON-safe; raw
// expressions, deferred references and example functions are carried as
// tagged objects:
//
//	{"$expr": "Array.prototype"}
//	{"$lazy": "Array", "kind": "belongsTo"}
//	{"$function": "return 1;", "async": false}
//
// A Registry indexes entries for lookup by the HTTP API and the CLI.
// Registering an entry whose target is already known merges the two:
// nested mappings merge key by key, while fields listed as overrides
// replace the previous value outright.
//
// Example usage:
//
//	reg := metadata.NewRegistry()
//	if err := reg.RegisterArtifact(data); err != nil {
//		return err
//	}
//	entry, err := reg.Symbol("Array.prototype.map")
package metadata
