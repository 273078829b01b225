// Package hcl provides the HCL manifest implementation of the catalog
// backend. Plugin manifests are plain HCL files describing pipeline
// artifacts and the plugins available to them:
//
//	artifact "cdap-etl-batch" {
//	  version = "3.2.0"
//	  scope   = "SYSTEM"
//	}
//
//	plugin "source" "Stream" {
//	  description = "Reads events from a stream."
//	  pipelines   = ["cdap-etl-batch"]
//
//	  artifact "core-plugins" {
//	    version = "1.0.0"
//	    scope   = "SYSTEM"
//	  }
//
//	  property "name" {
//	    type        = string
//	    description = "Stream to read."
//	  }
//	  property "duration" {
//	    type    = string
//	    default = "1h"
//	  }
//	}
package hcl
