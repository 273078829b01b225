// internal/nodeid/doc.go

/*
Package nodeid derives the human-readable labels and the internal ids of
nodes placed on the pipeline canvas.

Labels are what connections reference and what the exported document calls
a stage name, so they must be unique within a graph. A new node gets its
plugin (or template) name as label; when nodes with that name already exist
a numeric suffix is appended, e.g. `Stream`, `Stream2`, `Stream3`.

Ids are internal only: a slug of the label plus a short random suffix.
*/
package nodeid
