// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migrations holds the schema files. The PostgreSQL files in this
// directory are read from disk at startup; the SQLite files are compiled in.
package migrations

import "embed"

// SQLite holds the embedded store's migrations under the "sqlite" directory.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
