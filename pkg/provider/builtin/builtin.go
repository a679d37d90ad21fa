// Package builtin provides the complete list of source formats.
//
// This package exists to break import cycles: the provider packages import
// pkg/provider, so pkg/provider cannot import them back. Consumers that need
// every format import this package instead.
//
//	reg := builtin.NewRegistry(provider.Options{Logger: logger})
//	defer reg.Close()
package builtin

import (
	"github.com/matzehuels/graftwood/pkg/provider"
	"github.com/matzehuels/graftwood/pkg/provider/dot"
	"github.com/matzehuels/graftwood/pkg/provider/mongodb"
	"github.com/matzehuels/graftwood/pkg/provider/ontology"
	"github.com/matzehuels/graftwood/pkg/provider/sqldb"
	"github.com/matzehuels/graftwood/pkg/provider/text"
	"github.com/matzehuels/graftwood/pkg/provider/xmldoc"
)

// All is the canonical list of supported formats.
var All = []*provider.Format{
	text.Format,
	xmldoc.Format,
	dot.Format,
	ontology.Format,
	sqldb.Format,
	mongodb.Format,
}

// Find returns the format with the given name, or nil if not found.
func Find(name string) *provider.Format {
	for _, f := range All {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// NewRegistry creates a registry for every builtin format.
func NewRegistry(opts provider.Options) *provider.Registry {
	return provider.NewRegistry(opts, All...)
}
