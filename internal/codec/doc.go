// Package codec converts pipeline graphs to and from the exported pipeline
// document:
//
//	{
//	  "artifact": {"name": "...", "version": "...", "scope": "..."},
//	  "config": {
//	    "source":      {"name": "...", "plugin": {...}, "outputSchema": "...", "inputSchema": "..."},
//	    "transforms":  [...],
//	    "sinks":       [...],
//	    "connections": [{"from": "...", "to": "..."}]
//	  }
//	}
//
// Node ids, icons, locks, warnings and the selection are editor-only and
// never exported. Imported graphs get fresh ids.
package codec
