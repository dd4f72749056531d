// Package store implements the version store and change log on top of a
// storage.Provider. It owns the key layout (namespaces "versions" and
// "changes", plus the "latest" pointer key) and must not import concrete
// backends.
package store
