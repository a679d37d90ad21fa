// Package provider holds what the format-specific providers share: their
// [Options], the embeddable [Base] (recursion guard, balancer, fetcher) and
// the [Registry] that routes sources to providers.
//
// # Formats
//
// Each provider package exports a [Format] value naming the schemes and
// extensions it handles. The builtin subpackage collects them, since the
// provider packages import this package and it cannot import them back:
//
//	reg := builtin.NewRegistry(provider.Options{Logger: logger})
//	defer reg.Close()
//	engine := mount.NewEngine(reg, logger)
//	t, err := engine.Open(ctx, "notes.txt", nil)
//
// # Routing
//
// Sources with a backend scheme (sqlite:, postgres://, mongodb://) select a
// provider by scheme. Everything else (bare paths, file:// and http(s) URLs)
// selects by document extension, longest match first, so ".onto.toml" wins
// over ".toml".
package provider
