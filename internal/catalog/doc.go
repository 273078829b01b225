// Package catalog holds the plugins available to the editor for the
// selected pipeline artifact.
//
// A Catalog is fed by a Backend (HCL manifests on disk or the remote REST
// API) and is reloaded wholesale whenever the selected artifact changes.
// Entries from a previous artifact never survive a reload, and a reload that
// is overtaken by a newer one drops its results.
//
// Each plugin name may be available in several versions. The editor adds
// nodes at the version returned by GetVersion, which is the version pinned
// with SetVersion or, failing that, the latest fetched one.
package catalog
