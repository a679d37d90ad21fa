// Package mongodb provides a tree provider for MongoDB deployments
// ("mongodb://" and "mongodb+srv://" connection strings).
//
// The root lists the databases (or, when the connection string names a
// database in its path, that database's collections). Databases and
// collections are lazy mounts of the form "?db=<name>" and
// "?db=<name>&collection=<name>". A collection lists at most
// DocumentLimit documents, optionally narrowed by a "filter" parameter holding an
// Extended JSON query. Every field becomes a child node; embedded
// documents and arrays become branches.
//
// Query parameters other than db, collection and filter are connection
// options and stay part of the connection string. One client is kept per
// provider and reused while continuations point at the same deployment.
package mongodb
