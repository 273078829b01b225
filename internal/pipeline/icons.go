// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pipeline

import "strings"

// DefaultIcon is used for plugins without a dedicated icon.
const DefaultIcon = "fa-plug"

var pluginIcons = map[string]string{
	"script":          "fa-code",
	"scriptfilter":    "fa-code",
	"twitter":         "fa-twitter",
	"cube":            "fa-cubes",
	"data":            "fa-database",
	"database":        "fa-database",
	"table":           "fa-table",
	"kafka":           "icon-kafka",
	"stream":          "icon-plugin-stream",
	"jms":             "icon-jms",
	"projection":      "icon-projection",
	"amazonsqs":       "icon-amazonsqs",
	"datagenerator":   "icon-datagenerator",
	"validator":       "icon-validator",
	"corevalidator":   "corevalidator",
	"logparser":       "icon-logparser",
	"file":            "icon-file",
	"s3":              "icon-s3",
	"s3avro":          "icon-s3avro",
	"s3parquet":       "icon-s3parquet",
	"snapshotavro":    "icon-snapshotavro",
	"snapshotparquet": "icon-snapshotparquet",
	"tpfsavro":        "icon-tpfsavro",
	"tpfsparquet":     "icon-tpfsparquet",
	"sink":            "icon-sink",
	"hive":            "icon-hive",
	"cassandra":       "icon-cassandra",
	"teradata":        "icon-teradata",
	"elasticsearch":   "icon-elasticsearch",
	"hbase":           "icon-hbase",
	"mongodb":         "icon-mongodb",
	"javascript":      "icon-javascript",
	"deduper":         "icon-deduper",
	"distinct":        "icon-distinct",
	"wrangler":        "icon-DataPreparation",
}

// IconFor returns the icon class for a plugin name.
func IconFor(pluginName string) string {
	if icon, ok := pluginIcons[strings.ToLower(pluginName)]; ok {
		return icon
	}
	return DefaultIcon
}
